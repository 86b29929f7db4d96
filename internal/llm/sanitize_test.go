package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"```\n{\"a\":1}```":           `{"a":1}`,
		"Here you go: {\"a\":1} done": `{"a":1}`,
		`{"a":1}`:                     `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeFences(in), in)
	}
}

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	raw := []byte(`{
		"service_name": " brakes ",
		"discount": 15,
		"coupon_code": null,
		"expiry_date": "N/A",
		"category": "brakes",
		"description": "15% off brake pads",
		"confidence": 0.9
	}`)

	out, dropped, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "brakes", m["service_name"])
	assert.Equal(t, "15", m["discount_value"])
	assert.Equal(t, "", m["coupon_code"])
	assert.Equal(t, "", m["expiry_date"])
	assert.Equal(t, "15% off brake pads", m["promo_description"])
	assert.NotContains(t, m, "confidence")
	assert.Contains(t, dropped, "confidence(unknown)")

	assert.NoError(t, ValidateJSONAgainstSchema(BuildPromotionJSONSchema(nil), out))
}

func TestValidate_RejectsMissingAndMistyped(t *testing.T) {
	schema := BuildPromotionJSONSchema([]string{"oil change", "brakes"})

	missing := []byte(`{"service_name":"oil change","discount_value":"$20","coupon_code":"","category":"oil change","promo_description":"x"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, missing))

	mistyped := []byte(`{"service_name":["oil"],"discount_value":"$20","coupon_code":"","expiry_date":"","category":"oil change","promo_description":"x"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, mistyped))

	badEnum := []byte(`{"service_name":"oil","discount_value":"$20","coupon_code":"","expiry_date":"","category":"car wash","promo_description":"x"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, badEnum))

	ok := []byte(`{"service_name":"oil","discount_value":"$20","coupon_code":"","expiry_date":"","category":"","promo_description":"x"}`)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, ok))
}
