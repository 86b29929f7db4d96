package export

import (
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// PromotionRecord is the exported shape of one promotion.
type PromotionRecord struct {
	Website          string `json:"website"`
	PageURL          string `json:"page_url"`
	BusinessName     string `json:"business_name"`
	ServiceName      string `json:"service_name"`
	PromoDescription string `json:"promo_description"`
	Category         string `json:"category"`
	DiscountValue    string `json:"discount_value"`
	CouponCode       string `json:"coupon_code"`
	ExpiryDate       string `json:"expiry_date"`
	OfferDetails     string `json:"offer_details"`
	ImageURL         string `json:"image_url"`
	DateScraped      string `json:"date_scraped"`
	NewOrUpdated     string `json:"new_or_updated"`
}

func ToRecord(p entity.TaggedPromotion) PromotionRecord {
	return PromotionRecord{
		Website:          p.Website,
		PageURL:          p.PageURL,
		BusinessName:     p.BusinessName,
		ServiceName:      p.ServiceName,
		PromoDescription: p.PromoDescription,
		Category:         p.Category,
		DiscountValue:    p.DiscountValue,
		CouponCode:       p.CouponCode,
		ExpiryDate:       p.ExpiryDate,
		OfferDetails:     p.RawText,
		ImageURL:         p.ImageURL,
		DateScraped:      p.DateScraped(),
		NewOrUpdated:     string(p.NewOrUpdated),
	}
}

// CompetitorFile is the per-competitor JSON document.
type CompetitorFile struct {
	Competitor string            `json:"competitor"`
	ScrapedAt  string            `json:"scraped_at"`
	Promotions []PromotionRecord `json:"promotions"`
	Count      int               `json:"count"`
}

func ToCompetitorFile(r entity.CompetitorRunResult) CompetitorFile {
	records := make([]PromotionRecord, 0, len(r.Promotions))
	for _, p := range r.Promotions {
		records = append(records, ToRecord(p))
	}
	return CompetitorFile{
		Competitor: r.Competitor,
		ScrapedAt:  r.ScrapedAt.UTC().Format(time.RFC3339),
		Promotions: records,
		Count:      len(records),
	}
}

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a competitor name into a file name stem.
func Slug(name string) string {
	s := strings.Trim(reSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if s == "" {
		return "competitor"
	}
	return s
}
