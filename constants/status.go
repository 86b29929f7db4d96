package constants

// PromoStatus is the change classification of a promotion against the baseline.
type PromoStatus string

// Stable values (exported in sheets and JSON as-is).
const (
	StatusNew     PromoStatus = "NEW"
	StatusUpdated PromoStatus = "UPDATED"
	StatusSame    PromoStatus = "SAME"
)

// PromoKeywords mark a text block as a likely promotion.
var PromoKeywords = []string{
	"coupon", "discount", "save", "off", "special", "deal",
	"offer", "promo", "rebate", "free", "sale", "%", "$",
}
