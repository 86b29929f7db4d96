// Package fetch retrieves promotion pages and the images and PDFs they link to.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Page is one fetched promotion page.
type Page struct {
	URL       string
	HTML      string
	Markdown  string   // empty when the fetcher does not produce it
	ImageURLs []string // absolute, in document order, de-duplicated
	PDFLinks  []string // absolute, normalized, de-duplicated
}

// Fetcher retrieves a page and discovers its media.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Downloader retrieves raw bytes for a discovered media URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

var (
	ErrDataURI        = errors.New("data uri skipped")
	ErrBadContentType = errors.New("unexpected content type")
	ErrTooLarge       = errors.New("response too large")
	ErrUnsupportedURL = errors.New("unsupported url")
	ErrEmptyPage      = errors.New("empty page")
)

// DownloadError reports a failed retrieval. StatusCode is 0 when no HTTP
// response was received.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
