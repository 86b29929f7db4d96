package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
)

type HTMLConfig struct {
	UserAgent string
	Timeout   time.Duration // default 60s
	MaxImages int           // 0 = no limit
	Transport http.RoundTripper
}

// HTMLFetcher fetches pages directly with colly.
type HTMLFetcher struct {
	cfg    HTMLConfig
	logger *slog.Logger
}

func NewHTMLFetcher(cfg HTMLConfig, logger *slog.Logger) *HTMLFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTMLFetcher{cfg: cfg, logger: logger}
}

func (f *HTMLFetcher) newCollector() *colly.Collector {
	var opts []colly.CollectorOption
	if f.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(f.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.Transport != nil {
		c.WithTransport(f.cfg.Transport)
	}
	return c
}

func (f *HTMLFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	reqID := uuid.NewString()
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Page{}, &DownloadError{URL: pageURL, Err: err}
	}

	page := Page{URL: pageURL}
	var links []string
	var fetchErr error

	c := f.newCollector()
	c.OnResponse(func(r *colly.Response) {
		page.HTML = string(r.Body)
		page.URL = r.Request.URL.String()
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if abs := e.Request.AbsoluteURL(e.Attr("href")); abs != "" {
			links = append(links, abs)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = &DownloadError{URL: pageURL, StatusCode: status, Err: err}
	})

	done := make(chan error, 1)
	go func() { done <- c.Visit(pageURL) }()

	select {
	case <-ctx.Done():
		return Page{}, &DownloadError{URL: pageURL, Err: ctx.Err()}
	case err := <-done:
		if fetchErr == nil && err != nil {
			fetchErr = &DownloadError{URL: pageURL, Err: err}
		}
	}
	if fetchErr != nil {
		f.logger.Warn("fetch.html.failed", "req_id", reqID, "url", pageURL, "error", fetchErr,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Page{}, fetchErr
	}
	if strings.TrimSpace(page.HTML) == "" {
		return Page{}, &DownloadError{URL: pageURL, Err: ErrEmptyPage}
	}
	if err := discoverPage(&page, f.cfg.MaxImages, links); err != nil {
		return Page{}, &DownloadError{URL: pageURL, Err: errors.Join(ErrUnsupportedURL, err)}
	}

	f.logger.Info("fetch.html.ok", "req_id", reqID, "url", page.URL,
		"images", len(page.ImageURLs), "pdfs", len(page.PDFLinks),
		"elapsed_ms", time.Since(start).Milliseconds())
	return page, nil
}
