package common

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// LoadCompetitors reads the competitor list from a JSON file, either a bare
// array or an object with a "competitors" array.
func LoadCompetitors(path string) ([]entity.Competitor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "read competitors file")
	}
	return ParseCompetitors(raw)
}

func ParseCompetitors(raw []byte) ([]entity.Competitor, error) {
	var list []entity.Competitor
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "decode competitors", err)
		}
	} else {
		var doc struct {
			Competitors []entity.Competitor `json:"competitors"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "decode competitors", err)
		}
		list = doc.Competitors
	}

	seen := make(map[string]struct{}, len(list))
	for i := range list {
		c := &list[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Website = strings.ToLower(strings.TrimSpace(c.Website))

		v := NewValidator().
			Field("name", c.Name, Required, MaxLength(200)).
			Field("website", c.Website, Required, Domain)
		if !c.AIOverviewPrimary {
			v.Field("pages", c.Pages, Required, HTTPURLs)
		}
		if err := v.Error(); err != nil {
			return nil, fmt.Errorf("competitor #%d: %w", i+1, err)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, NewAppError("CONFIG_ERROR", "duplicate competitor name "+c.Name, ErrInvalidInput)
		}
		seen[c.Name] = struct{}{}
	}
	return list, nil
}
