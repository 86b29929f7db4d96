package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/constants"
)

type DownloadConfig struct {
	UserAgent string
	Timeout   time.Duration // default 10s
	MaxBytes  int64         // default 15 MiB
}

// HTTPDownloader fetches media bytes and checks the content type with accept.
type HTTPDownloader struct {
	cfg    DownloadConfig
	client *http.Client
	accept func(contentType, url string) bool
	logger *slog.Logger
}

func newHTTPDownloader(cfg DownloadConfig, client *http.Client, accept func(string, string) bool, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 15 << 20
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDownloader{cfg: cfg, client: client, accept: accept, logger: logger}
}

// NewImageDownloader accepts image/* responses, or octet-stream when the URL
// has an image extension.
func NewImageDownloader(cfg DownloadConfig, client *http.Client, logger *slog.Logger) *HTTPDownloader {
	return newHTTPDownloader(cfg, client, func(ct, u string) bool {
		if constants.IsImageContentType(ct) {
			return true
		}
		return isOctetStream(ct) && constants.IsImageExt(urlExt(u))
	}, logger)
}

// NewPDFDownloader accepts application/pdf, or octet-stream for .pdf links.
func NewPDFDownloader(cfg DownloadConfig, client *http.Client, logger *slog.Logger) *HTTPDownloader {
	return newHTTPDownloader(cfg, client, func(ct, u string) bool {
		ct = mediaType(ct)
		return ct == "application/pdf" || (isOctetStream(ct) && constants.IsPDFURL(u))
	}, logger)
}

func (d *HTTPDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	target := strings.TrimSpace(rawURL)
	if strings.HasPrefix(strings.ToLower(target), "data:") {
		return nil, &DownloadError{URL: shorten(target), Err: ErrDataURI}
	}
	if strings.HasPrefix(target, "//") {
		target = "https:" + target
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return nil, &DownloadError{URL: target, Err: ErrUnsupportedURL}
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &DownloadError{URL: target, Err: fmt.Errorf("%w: %v", ErrUnsupportedURL, err)}
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &DownloadError{URL: target, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	ct := resp.Header.Get("Content-Type")
	if !d.accept(ct, target) {
		return nil, &DownloadError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %q", ErrBadContentType, ct)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxBytes+1))
	if err != nil {
		return nil, &DownloadError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > d.cfg.MaxBytes {
		return nil, &DownloadError{URL: target, StatusCode: resp.StatusCode, Err: ErrTooLarge}
	}

	d.logger.Debug("fetch.download.ok", "url", target, "bytes", len(body), "content_type", ct,
		"elapsed_ms", time.Since(start).Milliseconds())
	return body, nil
}

func mediaType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func isOctetStream(ct string) bool {
	return mediaType(ct) == "application/octet-stream"
}

func urlExt(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndexByte(u, '.'); i >= 0 && !strings.Contains(u[i:], "/") {
		return u[i+1:]
	}
	return ""
}

func shorten(s string) string {
	if len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}
