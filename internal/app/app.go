// Package app builds the pipeline and its collaborators from configuration.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/dedup"
	"github.com/joseph-ayodele/promo-tracker/internal/extract"
	"github.com/joseph-ayodele/promo-tracker/internal/fetch"
	"github.com/joseph-ayodele/promo-tracker/internal/llm"
	"github.com/joseph-ayodele/promo-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/promo-tracker/internal/ocr"
	"github.com/joseph-ayodele/promo-tracker/internal/pipeline"
	"github.com/joseph-ayodele/promo-tracker/internal/repository"
	"github.com/joseph-ayodele/promo-tracker/internal/serpapi"
)

// App owns the orchestrator and the store it persists to.
type App struct {
	Pipeline *pipeline.Orchestrator
	Store    repository.BaselineStore
	logger   *slog.Logger
}

// OCREngines returns Google Vision first (when a key is set) and Tesseract last.
func OCREngines(cfg common.OCRConfig, logger *slog.Logger) []*ocr.Engine {
	engCfg := ocr.EngineConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		CallTimeout:  cfg.CallTimeout,
	}
	var engines []*ocr.Engine
	if cfg.VisionAPIKey != "" {
		vision := ocr.NewVision(ocr.VisionConfig{
			APIKey:   cfg.VisionAPIKey,
			Endpoint: cfg.VisionEndpoint,
			Timeout:  cfg.CallTimeout,
		}, nil, logger)
		engines = append(engines, ocr.NewEngine(vision, engCfg, logger))
	}
	tess := ocr.NewTesseract(ocr.TesseractConfig{
		Binary:      cfg.Tesseract,
		Lang:        cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
		PSM:         6,
	}, nil, logger)
	return append(engines, ocr.NewEngine(tess, engCfg, logger))
}

// SearchClient is nil when no SerpAPI key is configured.
func SearchClient(cfg common.SerpAPIConfig, logger *slog.Logger) *serpapi.Client {
	if cfg.APIKey == "" {
		return nil
	}
	return serpapi.NewClient(serpapi.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Location: cfg.Location,
		Timeout:  cfg.Timeout,
	}, nil, logger)
}

// Extractor chains the HTML, OCR and PDF strategies, plus the AI Overview
// and search ads strategies when search is set.
func Extractor(cfg *common.Config, search *serpapi.Client, logger *slog.Logger) *extract.Chain {
	if logger == nil {
		logger = slog.Default()
	}
	strategies := []extract.Strategy{extract.HTMLStrategy{}}
	for _, e := range OCREngines(cfg.OCR, logger) {
		strategies = append(strategies, extract.NewImageStrategy(e, logger))
	}
	strategies = append(strategies, extract.NewPDFStrategy(ocr.NewPDFText(cfg.OCR.Pdftotext, nil, logger), logger))
	if search != nil {
		strategies = append(strategies, extract.NewOverviewStrategy(search), extract.AdStrategy{})
	} else {
		logger.Warn("app.serpapi.disabled", "reason", "SERPAPI_KEY not set")
	}
	return extract.NewChain(logger, strategies...)
}

// New opens the baseline store and wires every pipeline collaborator.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := repository.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	model := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Models:      cfg.LLM.Models,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		JSONMode:    cfg.LLM.JSONMode,
	}, logger)

	dl := fetch.DownloadConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.DownloadTimeout,
		MaxBytes:  cfg.Fetch.MaxImageBytes,
	}
	httpClient := &http.Client{}
	dd := dedup.New(
		dedup.WithThreshold(cfg.Pipeline.DedupThreshold),
		dedup.WithMaxHashDistance(cfg.Pipeline.DedupMaxHashDistance),
	)

	search := SearchClient(cfg.SerpAPI, logger)
	opts := pipeline.Options{
		Fetcher: fetch.NewHTMLFetcher(fetch.HTMLConfig{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.PageTimeout,
		}, logger),
		Images:                fetch.NewImageDownloader(dl, httpClient, logger),
		PDFs:                  fetch.NewPDFDownloader(dl, httpClient, logger),
		Extractor:             Extractor(cfg, search, logger),
		Structurer:            llm.NewStructurer(model, llm.StructurerConfig{Timeout: cfg.LLM.Timeout}, logger),
		Dedup:                 dd,
		Store:                 store,
		MaxConcurrency:        cfg.Pipeline.MaxConcurrency,
		CompetitorConcurrency: cfg.Pipeline.CompetitorConcurrency,
		CompetitorTimeout:     cfg.Pipeline.CompetitorTimeout,
		MaxAds:                cfg.SerpAPI.AdsLimit,
		Logger:                logger,
	}
	if search != nil {
		opts.Ads = search
	}
	if cfg.Fetch.FirecrawlAPIKey != "" {
		fc, err := fetch.NewFirecrawlFetcher(fetch.FirecrawlConfig{
			APIKey:    cfg.Fetch.FirecrawlAPIKey,
			BaseURL:   cfg.Fetch.FirecrawlBaseURL,
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.PageTimeout,
		}, logger)
		if err != nil {
			_ = store.Close()
			return nil, common.NewAppError("CONFIG_ERROR", "firecrawl client", err)
		}
		opts.Firecrawl = fc
	}

	orch, err := pipeline.New(opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &App{Pipeline: orch, Store: store, logger: logger}, nil
}

func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.logger.Error("app.store.close_failed", "error", err)
	}
}
