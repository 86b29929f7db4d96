package constants

import (
	"strings"
)

type Category string

const (
	OilChange    Category = "oil change"
	Brakes       Category = "brakes"
	Battery      Category = "battery"
	Exhaust      Category = "exhaust"
	Tires        Category = "tires"
	Seasonal     Category = "seasonal"
	CoolantFlush Category = "coolant flush"
	Transmission Category = "transmission"
	AutoService  Category = "auto service"
)

var allCategories = []Category{
	OilChange,
	Brakes,
	Battery,
	Exhaust,
	Tires,
	Seasonal,
	CoolantFlush,
	Transmission,
	AutoService,
}

// serviceKeywords is checked in order, so more specific words come first.
var serviceKeywords = []struct {
	keyword  string
	category Category
}{
	{"synthetic", OilChange},
	{"oil", OilChange},
	{"brake", Brakes},
	{"battery", Battery},
	{"exhaust", Exhaust},
	{"muffler", Exhaust},
	{"tire", Tires},
	{"tyre", Tires},
	{"winter", Seasonal},
	{"seasonal", Seasonal},
	{"coolant", CoolantFlush},
	{"antifreeze", CoolantFlush},
	{"transmission", Transmission},
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free text (a model's category guess or a service name)
// onto the category set. The bool reports whether anything matched.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return AutoService, false
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}
	for _, kw := range serviceKeywords {
		if strings.Contains(normalized, kw.keyword) {
			return kw.category, true
		}
	}
	return AutoService, false
}
