package extract

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/constants"
)

// AdStrategy reads the copy of one paid search ad. Ads are listed by the
// search client before extraction, so Source.Text already holds the copy.
type AdStrategy struct{}

func (AdStrategy) Kind() string { return constants.AD }
func (AdStrategy) Name() string { return "serpapi_ads" }

func (AdStrategy) Extract(_ context.Context, src Source) (string, bool, error) {
	if strings.TrimSpace(src.Text) == "" {
		return "", false, nil
	}
	text := CleanBlockText(src.Text)
	return text, text != "", nil
}
