package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

func promo(website, service, category, discount, coupon string) entity.PromotionCandidate {
	return entity.PromotionCandidate{
		Website: website,
		RawText: service + " " + discount,
		Fields: entity.Fields{
			ServiceName:   service,
			Category:      category,
			DiscountValue: discount,
			CouponCode:    coupon,
		},
	}
}

func baselineOf(competitor string, promos ...entity.PromotionCandidate) entity.Baseline {
	tagged := make([]entity.TaggedPromotion, 0, len(promos))
	for _, p := range promos {
		tagged = append(tagged, entity.TaggedPromotion{PromotionCandidate: p, NewOrUpdated: constants.StatusNew})
	}
	return entity.EmptyBaseline().With([]entity.CompetitorRunResult{
		entity.NewCompetitorRunResult(competitor, "speedy.com", time.Unix(0, 0), tagged),
	}, time.Unix(0, 0))
}

func TestTag_SpeedyScenario(t *testing.T) {
	prev := baselineOf("Speedy", promo("speedy.com", "oil change", "oil change", "$20 off", "CODE123"))

	cases := []struct {
		name string
		cur  entity.PromotionCandidate
		want constants.PromoStatus
	}{
		{"coupon changed", promo("speedy.com", "oil change", "oil change", "$20 off", "CODE456"), constants.StatusUpdated},
		{"identical", promo("speedy.com", "oil change", "oil change", "$20 off", "CODE123"), constants.StatusSame},
		{"new key", promo("speedy.com", "brake service", "brake", "$20 off", ""), constants.StatusNew},
		{"website case ignored", promo("Speedy.COM", "Oil  Change", "oil change", "$20 off", "CODE123"), constants.StatusSame},
		{"other website", promo("midas.com", "oil change", "oil change", "$20 off", "CODE123"), constants.StatusNew},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Tag([]entity.PromotionCandidate{tc.cur}, prev)
			require.Len(t, out, 1)
			assert.Equal(t, tc.want, out[0].NewOrUpdated)
			assert.Equal(t, tc.cur, out[0].PromotionCandidate)
		})
	}
}

func TestTag_EmptyBaselineAllNew(t *testing.T) {
	out := Tag([]entity.PromotionCandidate{
		promo("speedy.com", "oil change", "oil change", "$20", ""),
		promo("speedy.com", "battery", "battery", "free", ""),
	}, entity.EmptyBaseline())
	require.Len(t, out, 2)
	for _, p := range out {
		assert.Equal(t, constants.StatusNew, p.NewOrUpdated)
	}
}

func TestTag_DescriptionAndExpiryCount(t *testing.T) {
	base := promo("speedy.com", "oil change", "oil change", "$20", "")
	base.ExpiryDate = "2025-12-31"
	prev := baselineOf("Speedy", base)

	cur := base
	cur.ExpiryDate = "2026-01-31"
	assert.Equal(t, constants.StatusUpdated, Tag([]entity.PromotionCandidate{cur}, prev)[0].NewOrUpdated)

	cur = base
	cur.PromoDescription = "now with free top-up"
	assert.Equal(t, constants.StatusUpdated, Tag([]entity.PromotionCandidate{cur}, prev)[0].NewOrUpdated)

	cur = base
	cur.RawText = "different OCR noise"
	assert.Equal(t, constants.StatusSame, Tag([]entity.PromotionCandidate{cur}, prev)[0].NewOrUpdated)
}

func TestTag_MatchesAcrossCompetitorEntries(t *testing.T) {
	prev := baselineOf("Speedy Auto (old name)", promo("speedy.com", "oil change", "oil change", "$20 off", "CODE123"))
	out := Tag([]entity.PromotionCandidate{promo("speedy.com", "oil change", "oil change", "$20 off", "CODE123")}, prev)
	assert.Equal(t, constants.StatusSame, out[0].NewOrUpdated)
}

func TestTag_SharedKeyOffers(t *testing.T) {
	a := promo("speedy.com", "oil change", "oil change", "$20 off", "")
	b := promo("speedy.com", "oil change", "oil change", "$49.99", "")
	prev := baselineOf("Speedy", a, b)

	out := Tag([]entity.PromotionCandidate{a, b}, prev)
	require.Len(t, out, 2)
	assert.Equal(t, constants.StatusSame, out[0].NewOrUpdated)
	assert.Equal(t, constants.StatusSame, out[1].NewOrUpdated)

	c := promo("speedy.com", "oil change", "oil change", "$59.99", "")
	assert.Equal(t, constants.StatusUpdated, Tag([]entity.PromotionCandidate{c}, prev)[0].NewOrUpdated)
}

func TestTag_FallbackRecordsShareEmptyKey(t *testing.T) {
	fb := func(text string) entity.PromotionCandidate {
		return entity.PromotionCandidate{
			Website:      "speedy.com",
			RawText:      text,
			Fields:       entity.Fields{PromoDescription: text},
			UsedFallback: true,
		}
	}
	first, second := fb("Save $20 on synthetic oil"), fb("Free tire check with any service")
	prev := baselineOf("Speedy", first, second)

	out := Tag([]entity.PromotionCandidate{second, first}, prev)
	assert.Equal(t, constants.StatusSame, out[0].NewOrUpdated)
	assert.Equal(t, constants.StatusSame, out[1].NewOrUpdated)
}

func TestDisappeared(t *testing.T) {
	prev := baselineOf("Speedy",
		promo("speedy.com", "oil change", "oil change", "$20 off", ""),
		promo("speedy.com", "tire rotation", "tires", "$10", ""),
	)
	gone := Disappeared([]entity.PromotionCandidate{promo("speedy.com", "oil change", "oil change", "$25 off", "")}, prev, []string{"Speedy.com"})
	require.Len(t, gone, 1)
	assert.Equal(t, "tire rotation", gone[0].ServiceName)

	assert.Empty(t, Disappeared(nil, prev, []string{"midas.com"}))
}
