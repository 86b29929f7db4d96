package llm

// requiredFields must be present, as strings, in every model response.
var requiredFields = []string{
	"service_name", "discount_value", "coupon_code", "expiry_date", "category", "promo_description",
}

var optionalFields = []string{"ad_title", "ad_text", "contact", "location"}

// BuildPromotionJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the model as a system message and also use it locally to validate.
func BuildPromotionJSONSchema(allowedCategories []string) map[string]any {
	props := map[string]any{}
	for _, k := range requiredFields {
		props[k] = map[string]any{"type": "string"}
	}
	for _, k := range optionalFields {
		props[k] = map[string]any{"type": "string"}
	}
	props["promo_description"] = map[string]any{"type": "string", "minLength": 1}

	// Constrain category if a taxonomy is provided; empty stays allowed for "unknown".
	if len(allowedCategories) > 0 {
		enum := append([]string{""}, allowedCategories...)
		props["category"] = map[string]any{
			"type": "string",
			"enum": enum,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             requiredFields,
	}
}
