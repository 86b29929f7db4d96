package llm

import (
	"strings"
)

const maxPromptText = 3000

// BuildSystemPrompt composes the system message: output contract, category
// rules and formatting hygiene.
func BuildSystemPrompt(req ExtractRequest) string {
	var catLine string
	if len(req.AllowedCategories) > 0 {
		catLine = "'category' MUST be exactly one of: " + strings.Join(req.AllowedCategories, ", ") +
			". Use 'auto service' when the offer covers general maintenance or nothing else fits. "
	} else {
		catLine = "'category' is a short lower-case service label (e.g. 'oil change', 'brakes', 'tires'). "
	}

	parts := []string{
		"You extract automotive service promotions from scraped web text or OCR output. Return ONLY JSON that matches the provided JSON Schema.",
		"Every schema key must be present. Use an empty string when a value is not shown; never output null.",
		"'service_name' is the service being promoted, lower-case, without prices (e.g. 'synthetic oil change').",
		"'discount_value' is the offer amount as printed: '$20 off', '15%', 'free', '$49.99'.",
		"'coupon_code' only when a code is printed. 'expiry_date' as printed, or YYYY-MM-DD when the date is unambiguous.",
		catLine,
		"'promo_description' is one or two clean sentences describing the offer, no markdown.",
		"'ad_title' is the headline of the ad if one is visible; 'ad_text' the supporting copy.",
		"Do not invent offers that are not in the text.",
	}
	if c := strings.TrimSpace(req.Competitor); c != "" {
		parts = append(parts, "The business is "+c+".")
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the source hints and the (truncated) text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if req.PageURL != "" {
		b.WriteString("Page: ")
		b.WriteString(req.PageURL)
		b.WriteString("\n")
	}
	if req.SourceKind != "" {
		b.WriteString("Source: ")
		b.WriteString(req.SourceKind)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nText (first ~3k chars):\n")
	if len(text) > maxPromptText {
		b.WriteString(text[:maxPromptText])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
