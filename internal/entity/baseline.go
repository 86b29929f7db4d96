package entity

import "time"

// Baseline is the persisted promotion set of earlier runs, keyed by competitor name.
// Version increases by one on every successful save.
type Baseline struct {
	Version     int64                          `json:"version"`
	SavedAt     time.Time                      `json:"saved_at"`
	Competitors map[string]CompetitorRunResult `json:"competitors"`
}

// EmptyBaseline is the starting point when nothing has been persisted yet.
func EmptyBaseline() Baseline {
	return Baseline{Competitors: map[string]CompetitorRunResult{}}
}

// Promotions flattens every competitor's promotions in no particular order.
func (b Baseline) Promotions() []TaggedPromotion {
	var out []TaggedPromotion
	for _, r := range b.Competitors {
		out = append(out, r.Promotions...)
	}
	return out
}

// With returns a copy of b whose entries for the given results are replaced.
// Entries for other competitors are carried over untouched.
func (b Baseline) With(results []CompetitorRunResult, savedAt time.Time) Baseline {
	next := Baseline{
		Version:     b.Version + 1,
		SavedAt:     savedAt,
		Competitors: make(map[string]CompetitorRunResult, len(b.Competitors)+len(results)),
	}
	for k, v := range b.Competitors {
		next.Competitors[k] = v
	}
	for _, r := range results {
		next.Competitors[r.Competitor] = r
	}
	return next
}
