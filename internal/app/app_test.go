package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Setenv("LLM_API_KEY", "test-key")
	cfg := common.LoadConfig()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = filepath.Join(t.TempDir(), "baseline.db")
	cfg.OCR.VisionAPIKey = ""
	cfg.SerpAPI.APIKey = ""
	cfg.Fetch.FirecrawlAPIKey = ""
	return cfg
}

func TestOCREngines(t *testing.T) {
	cfg := testConfig(t)
	engines := OCREngines(cfg.OCR, nil)
	require.Len(t, engines, 1)
	assert.Equal(t, "tesseract", engines[0].Name())

	cfg.OCR.VisionAPIKey = "vision-key"
	engines = OCREngines(cfg.OCR, nil)
	require.Len(t, engines, 2)
	assert.Equal(t, "google-vision", engines[0].Name())
	assert.Equal(t, "tesseract", engines[1].Name())
}

func TestExtractor_SearchNeedsKey(t *testing.T) {
	cfg := testConfig(t)
	search := SearchClient(cfg.SerpAPI, nil)
	require.Nil(t, search)
	chain := Extractor(cfg, search, nil)
	assert.True(t, chain.Supports(constants.HTML))
	assert.True(t, chain.Supports(constants.IMAGE))
	assert.True(t, chain.Supports(constants.PDF))
	assert.False(t, chain.Supports(constants.AIOverview))
	assert.False(t, chain.Supports(constants.AD))

	cfg.SerpAPI.APIKey = "serp-key"
	search = SearchClient(cfg.SerpAPI, nil)
	require.NotNil(t, search)
	chain = Extractor(cfg, search, nil)
	assert.True(t, chain.Supports(constants.AIOverview))
	assert.True(t, chain.Supports(constants.AD))
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Pipeline)
	require.NoError(t, a.Store.Ping(context.Background()))
	b, err := a.Store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Version)
}

func TestNew_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
