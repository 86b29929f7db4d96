package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/serpapi"
)

// OverviewSearcher is satisfied by *serpapi.Client.
type OverviewSearcher interface {
	Overview(ctx context.Context, business string) (serpapi.Overview, error)
}

// OverviewStrategy pulls the search engine's AI Overview for a business.
type OverviewStrategy struct {
	search OverviewSearcher
}

func NewOverviewStrategy(search OverviewSearcher) *OverviewStrategy {
	return &OverviewStrategy{search: search}
}

func (s *OverviewStrategy) Kind() string { return constants.AIOverview }
func (s *OverviewStrategy) Name() string { return "serpapi" }

func (s *OverviewStrategy) Extract(ctx context.Context, src Source) (string, bool, error) {
	if strings.TrimSpace(src.Query) == "" {
		return "", false, nil
	}
	ov, err := s.search.Overview(ctx, src.Query)
	if errors.Is(err, serpapi.ErrNoOverview) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	text := CleanMarkdown(ov.Text)
	return text, text != "", nil
}
