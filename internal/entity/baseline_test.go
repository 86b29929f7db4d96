package entity

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promo(service string) TaggedPromotion {
	return TaggedPromotion{PromotionCandidate: PromotionCandidate{RawText: service, Fields: Fields{ServiceName: service}}}
}

func TestBaseline_WithAndPromotions(t *testing.T) {
	now := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, EmptyBaseline().Promotions())

	b := EmptyBaseline().With([]CompetitorRunResult{
		NewCompetitorRunResult("Speedy", "speedy.com", now, []TaggedPromotion{promo("oil change"), promo("brakes")}),
		NewCompetitorRunResult("Midas", "midas.com", now, []TaggedPromotion{promo("tires")}),
	}, now)
	require.Equal(t, int64(1), b.Version)

	next := b.With([]CompetitorRunResult{
		NewCompetitorRunResult("Midas", "midas.com", now, []TaggedPromotion{promo("battery")}),
	}, now.Add(time.Hour))
	assert.Equal(t, int64(2), next.Version)

	var services []string
	for _, p := range next.Promotions() {
		services = append(services, p.ServiceName)
	}
	sort.Strings(services)
	assert.Equal(t, []string{"battery", "brakes", "oil change"}, services)
	assert.Len(t, b.Promotions(), 3)
}

func TestPromotionCandidate_HasImage(t *testing.T) {
	assert.False(t, PromotionCandidate{ImageURL: "https://x.com/a.png"}.HasImage())
	assert.True(t, PromotionCandidate{ImageFingerprint: "abc"}.HasImage())
}
