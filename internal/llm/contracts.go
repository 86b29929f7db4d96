package llm

import (
	"context"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// PromoFields is the normalized shape we want from the LLM.
type PromoFields struct {
	ServiceName string `json:"service_name"`
	// DiscountValue is the amount as printed: "$20 off", "15%", "free".
	DiscountValue    string `json:"discount_value"`
	CouponCode       string `json:"coupon_code"`
	ExpiryDate       string `json:"expiry_date"`
	Category         string `json:"category"`
	PromoDescription string `json:"promo_description"`
	AdTitle          string `json:"ad_title,omitempty"`
	AdText           string `json:"ad_text,omitempty"`
	Contact          string `json:"contact,omitempty"`
	Location         string `json:"location,omitempty"`
}

func (p PromoFields) ToEntity() entity.Fields {
	return entity.Fields{
		ServiceName:      p.ServiceName,
		PromoDescription: p.PromoDescription,
		Category:         p.Category,
		DiscountValue:    p.DiscountValue,
		CouponCode:       p.CouponCode,
		ExpiryDate:       p.ExpiryDate,
		Contact:          p.Contact,
		Location:         p.Location,
		AdTitle:          p.AdTitle,
		AdText:           p.AdText,
	}
}

type ExtractRequest struct {
	Text              string
	Competitor        string
	Website           string
	PageURL           string
	SourceKind        string
	AllowedCategories []string
}

// FieldExtractor is the interface the structuring engine depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (PromoFields, []byte /*rawJSON*/, error)
}
