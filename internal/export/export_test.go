package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

var scraped = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func promo(service, discount string, status constants.PromoStatus) entity.TaggedPromotion {
	rating := 4.6
	return entity.TaggedPromotion{
		PromotionCandidate: entity.PromotionCandidate{
			Website:      "speedy.com",
			PageURL:      "https://speedy.com/deals",
			BusinessName: "Speedy Auto",
			SourceKind:   constants.HTML,
			RawText:      service + " " + discount,
			Fields: entity.Fields{
				ServiceName:      service,
				PromoDescription: discount + " on " + service,
				Category:         "Oil Change",
				DiscountValue:    discount,
				Location:         "Edmonton",
			},
			GoogleReviews: &rating,
			ScrapedAt:     scraped,
		},
		NewOrUpdated: status,
	}
}

func TestBuildWorkbook_ColumnsAndRows(t *testing.T) {
	promos := []entity.TaggedPromotion{
		promo("oil change", "$10 off", constants.StatusNew),
		promo("brake service", "15% off", constants.StatusSame),
	}
	book, err := BuildWorkbook(promos)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	first := rows[1]
	assert.Equal(t, "speedy.com", first[0])
	assert.Equal(t, "4.6", first[3])
	assert.Equal(t, "oil change", first[4])
	assert.Equal(t, "Edmonton", first[8])
	assert.Equal(t, "NEW", first[12])
	assert.Equal(t, "2025-03-14", first[13])
	assert.Equal(t, "SAME", rows[2][12])
}

func TestBuildWorkbook_Empty(t *testing.T) {
	book, err := BuildWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestToCompetitorFile(t *testing.T) {
	r := entity.NewCompetitorRunResult("Speedy Auto", "speedy.com", scraped, []entity.TaggedPromotion{
		promo("oil change", "$10 off", constants.StatusUpdated),
	})
	doc := ToCompetitorFile(r)
	assert.Equal(t, "Speedy Auto", doc.Competitor)
	assert.Equal(t, "2025-03-14T09:30:00Z", doc.ScrapedAt)
	assert.Equal(t, 1, doc.Count)
	assert.Equal(t, "UPDATED", doc.Promotions[0].NewOrUpdated)
	assert.Equal(t, "oil change $10 off", doc.Promotions[0].OfferDetails)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "speedy_auto_service", Slug("Speedy Auto  Service!"))
	assert.Equal(t, "competitor", Slug("***"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}

func TestService_WriteRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	results := []entity.CompetitorRunResult{
		entity.NewCompetitorRunResult("Speedy Auto", "speedy.com", scraped, []entity.TaggedPromotion{
			promo("oil change", "$10 off", constants.StatusNew),
		}),
		entity.NewCompetitorRunResult("Fast Lube", "fastlube.ca", scraped, nil),
	}
	merged := append([]entity.TaggedPromotion{}, results[0].Promotions...)

	out, err := NewService(dir, nil).WriteRun(context.Background(), results, merged)
	require.NoError(t, err)
	require.Len(t, out.Competitors, 2)
	assert.Equal(t, filepath.Join(dir, "speedy_auto_promotions.json"), out.Competitors[0])

	raw, err := os.ReadFile(out.Competitors[1])
	require.NoError(t, err)
	var empty CompetitorFile
	require.NoError(t, json.Unmarshal(raw, &empty))
	assert.Equal(t, "Fast Lube", empty.Competitor)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Promotions)

	raw, err = os.ReadFile(out.Merged)
	require.NoError(t, err)
	var records []PromotionRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "oil change", records[0].ServiceName)

	_, err = os.Stat(out.Workbook)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file left behind: %s", e.Name())
	}
}

func TestService_WriteRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := []entity.CompetitorRunResult{entity.NewCompetitorRunResult("A", "a.com", scraped, nil)}
	_, err := NewService(t.TempDir(), nil).WriteRun(ctx, results, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
