// Package tracker classifies the current promotion set against the persisted baseline.
package tracker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// Key identifies a promotion across runs.
type Key struct {
	Website     string
	ServiceName string
	Category    string
}

var reSpace = regexp.MustCompile(`\s+`)

func norm(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(strings.ToLower(s), " "))
}

// KeyOf builds the (website, service_name, category) key for c.
func KeyOf(c entity.PromotionCandidate) Key {
	return Key{
		Website:     norm(c.Website),
		ServiceName: norm(c.ServiceName),
		Category:    norm(c.Category),
	}
}

// index groups baseline promotions by key. Several offers can share a key
// (fallback records, two prices for one service), so every entry is kept.
func index(previous entity.Baseline) map[Key][]entity.PromotionCandidate {
	idx := make(map[Key][]entity.PromotionCandidate)
	for _, name := range sortedNames(previous) {
		for _, p := range previous.Competitors[name].Promotions {
			k := KeyOf(p.PromotionCandidate)
			idx[k] = append(idx[k], p.PromotionCandidate)
		}
	}
	return idx
}

// Tag assigns NEW, UPDATED or SAME to every current candidate. A candidate is
// SAME when any baseline entry under its key carries the same offer. It does
// not modify its inputs and the output order follows current.
func Tag(current []entity.PromotionCandidate, previous entity.Baseline) []entity.TaggedPromotion {
	idx := index(previous)
	out := make([]entity.TaggedPromotion, 0, len(current))
	for _, c := range current {
		out = append(out, entity.TaggedPromotion{PromotionCandidate: c, NewOrUpdated: status(c, idx[KeyOf(c)])})
	}
	return out
}

func status(c entity.PromotionCandidate, prev []entity.PromotionCandidate) constants.PromoStatus {
	if len(prev) == 0 {
		return constants.StatusNew
	}
	for _, p := range prev {
		if sameOffer(p, c) {
			return constants.StatusSame
		}
	}
	return constants.StatusUpdated
}

func sameOffer(a, b entity.PromotionCandidate) bool {
	return a.DiscountValue == b.DiscountValue &&
		a.CouponCode == b.CouponCode &&
		a.ExpiryDate == b.ExpiryDate &&
		a.PromoDescription == b.PromoDescription
}

// Disappeared returns baseline promotions for the given websites whose key is
// absent from current. Websites not listed are ignored so competitors that
// were not scraped this run are not reported.
func Disappeared(current []entity.PromotionCandidate, previous entity.Baseline, websites []string) []entity.TaggedPromotion {
	scope := make(map[string]bool, len(websites))
	for _, w := range websites {
		scope[norm(w)] = true
	}
	seen := make(map[Key]bool, len(current))
	for _, c := range current {
		seen[KeyOf(c)] = true
	}

	var out []entity.TaggedPromotion
	for _, name := range sortedNames(previous) {
		for _, p := range previous.Competitors[name].Promotions {
			k := KeyOf(p.PromotionCandidate)
			if scope[k.Website] && !seen[k] {
				out = append(out, p)
			}
		}
	}
	return out
}

func sortedNames(b entity.Baseline) []string {
	names := make([]string, 0, len(b.Competitors))
	for n := range b.Competitors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
