package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mendableai/firecrawl-go"
)

// Scraper is the part of the Firecrawl client this package uses.
type Scraper interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

type FirecrawlConfig struct {
	APIKey    string
	BaseURL   string // default https://api.firecrawl.dev
	UserAgent string
	Timeout   time.Duration // default 60s
	MaxImages int
}

// FirecrawlFetcher renders pages through the Firecrawl scrape API, which
// handles JavaScript-heavy promotion pages.
type FirecrawlFetcher struct {
	cfg     FirecrawlConfig
	scraper Scraper
	logger  *slog.Logger
}

// NewFirecrawlFetcher builds the client from cfg.
func NewFirecrawlFetcher(cfg FirecrawlConfig, logger *slog.Logger) (*FirecrawlFetcher, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.firecrawl.dev"
	}
	app, err := firecrawl.NewFirecrawlApp(cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FirecrawlApp: %w", err)
	}
	return NewFirecrawlFetcherWithScraper(cfg, app, logger), nil
}

func NewFirecrawlFetcherWithScraper(cfg FirecrawlConfig, scraper Scraper, logger *slog.Logger) *FirecrawlFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &FirecrawlFetcher{cfg: cfg, scraper: scraper, logger: logger}
}

type scrapeResult struct {
	doc *firecrawl.FirecrawlDocument
	err error
}

func (f *FirecrawlFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	reqID := uuid.NewString()
	start := time.Now()

	onlyMain := false
	params := &firecrawl.ScrapeParams{
		Formats:         []string{"html", "markdown", "links"},
		OnlyMainContent: &onlyMain,
	}
	if f.cfg.UserAgent != "" {
		params.Headers = &map[string]string{"User-Agent": f.cfg.UserAgent}
	}

	// the client takes no context, so the call is raced against ctx
	ch := make(chan scrapeResult, 1)
	go func() {
		doc, err := f.scraper.ScrapeURL(pageURL, params)
		ch <- scrapeResult{doc: doc, err: err}
	}()

	timer := time.NewTimer(f.cfg.Timeout)
	defer timer.Stop()

	var res scrapeResult
	select {
	case <-timer.C:
		return Page{}, &DownloadError{URL: pageURL, Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return Page{}, &DownloadError{URL: pageURL, Err: ctx.Err()}
	case res = <-ch:
	}
	if res.err != nil {
		f.logger.Warn("fetch.firecrawl.failed", "req_id", reqID, "url", pageURL, "error", res.err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Page{}, &DownloadError{URL: pageURL, Err: res.err}
	}
	if res.doc == nil {
		return Page{}, &DownloadError{URL: pageURL, Err: ErrEmptyPage}
	}

	html := res.doc.HTML
	if strings.TrimSpace(html) == "" {
		html = res.doc.RawHTML
	}
	page := Page{URL: pageURL, HTML: html, Markdown: res.doc.Markdown}
	if strings.TrimSpace(page.HTML) == "" && strings.TrimSpace(page.Markdown) == "" {
		return Page{}, &DownloadError{URL: pageURL, Err: ErrEmptyPage}
	}
	if err := discoverPage(&page, f.cfg.MaxImages, res.doc.Links); err != nil {
		return Page{}, &DownloadError{URL: pageURL, Err: errors.Join(ErrUnsupportedURL, err)}
	}

	f.logger.Info("fetch.firecrawl.ok", "req_id", reqID, "url", pageURL,
		"images", len(page.ImageURLs), "pdfs", len(page.PDFLinks),
		"elapsed_ms", time.Since(start).Milliseconds())
	return page, nil
}
