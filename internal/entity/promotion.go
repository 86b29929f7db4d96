package entity

import (
	"time"

	"github.com/joseph-ayodele/promo-tracker/constants"
)

// Fields is the structured part of a promotion.
type Fields struct {
	ServiceName      string `json:"service_name"`
	PromoDescription string `json:"promo_description"`
	Category         string `json:"category"`
	DiscountValue    string `json:"discount_value"`
	CouponCode       string `json:"coupon_code"`
	ExpiryDate       string `json:"expiry_date"`
	Contact          string `json:"contact"`
	Location         string `json:"location"`
	AdTitle          string `json:"ad_title"`
	AdText           string `json:"ad_text"`
}

// IsStructurallyEmpty reports whether no field other than the description carries a value.
func (f Fields) IsStructurallyEmpty() bool {
	return f.ServiceName == "" && f.Category == "" && f.DiscountValue == "" &&
		f.CouponCode == "" && f.ExpiryDate == ""
}

// PromotionCandidate is one extraction attempt's result. Treated as a value
// once it leaves the structuring step.
type PromotionCandidate struct {
	Website      string `json:"website"`
	PageURL      string `json:"page_url"`
	ImageURL     string `json:"image_url"`
	BusinessName string `json:"business_name"`
	SourceKind   string `json:"source_kind"` // constants.HTML | IMAGE | PDF | AI_OVERVIEW | AD

	RawText string `json:"offer_details"`
	Fields

	UsedFallback bool `json:"used_fallback"`

	ContentFingerprint string `json:"content_fingerprint"`
	ImageFingerprint   string `json:"image_fingerprint,omitempty"` // sha256 hex of image bytes
	ImagePHash         uint64 `json:"image_phash,omitempty"`       // dHash, 0 if undecodable

	GoogleReviews *float64  `json:"google_reviews,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// HasImage reports whether the candidate was sourced from image bytes.
func (c PromotionCandidate) HasImage() bool {
	return c.ImageFingerprint != ""
}

// TaggedPromotion is a candidate classified against the baseline.
type TaggedPromotion struct {
	PromotionCandidate
	NewOrUpdated constants.PromoStatus `json:"new_or_updated"`
}

// DateScraped is the YYYY-MM-DD form used in exports.
func (t TaggedPromotion) DateScraped() string {
	if t.ScrapedAt.IsZero() {
		return ""
	}
	return t.ScrapedAt.UTC().Format("2006-01-02")
}

// CompetitorRunResult is one competitor's output for one run.
type CompetitorRunResult struct {
	Competitor string            `json:"competitor"`
	Website    string            `json:"website"`
	ScrapedAt  time.Time         `json:"scraped_at"`
	Promotions []TaggedPromotion `json:"promotions"`
	Count      int               `json:"count"`
}

// NewCompetitorRunResult copies promos so the result does not alias the caller's slice.
func NewCompetitorRunResult(competitor, website string, scrapedAt time.Time, promos []TaggedPromotion) CompetitorRunResult {
	out := make([]TaggedPromotion, len(promos))
	copy(out, promos)
	return CompetitorRunResult{
		Competitor: competitor,
		Website:    website,
		ScrapedAt:  scrapedAt,
		Promotions: out,
		Count:      len(out),
	}
}
