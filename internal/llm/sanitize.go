package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var reFence = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)\\s*```$")

// StripCodeFences removes a surrounding ```json ... ``` block, which some
// models emit even when asked for bare JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	// tolerate leading chatter before the object
	if i := strings.IndexByte(s, '{'); i > 0 {
		if j := strings.LastIndexByte(s, '}'); j > i {
			return s[i : j+1]
		}
	}
	return s
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (discount -> discount_value, description -> promo_description)
// - null on a known field becomes ""
// - Coerces numbers to strings
// - Removes unknown keys (strict additionalProperties = false friendliness)
// - Trims strings
//
// Type mismatches it cannot fix (objects, arrays) are left for the validator to reject.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the schema
	renamed("discount", "discount_value")
	renamed("offer", "discount_value")
	renamed("coupon", "coupon_code")
	renamed("promo_code", "coupon_code")
	renamed("expiry", "expiry_date")
	renamed("expires", "expiry_date")
	renamed("description", "promo_description")
	renamed("service", "service_name")

	allowed := make(map[string]struct{}, len(requiredFields)+len(optionalFields))
	for _, k := range requiredFields {
		allowed[k] = struct{}{}
	}
	for _, k := range optionalFields {
		allowed[k] = struct{}{}
	}

	// 2) drop unknown keys
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 3) coerce scalar values to trimmed strings
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			m[k] = ""
		case string:
			s := strings.TrimSpace(t)
			if strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "none") {
				s = ""
			}
			m[k] = s
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			// not coercible in any meaningful way
			if slices.Contains(optionalFields, k) {
				delete(m, k)
				dropped = append(dropped, k+"(type)")
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.structure.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
