package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mendableai/firecrawl-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/promos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "promo-bot", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(promoPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTMLFetcher(HTMLConfig{UserAgent: "promo-bot"}, nil)
	page, err := f.Fetch(context.Background(), srv.URL+"/promos")
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "Flyer")
	require.Len(t, page.ImageURLs, 4)
	assert.Equal(t, srv.URL+"/img/oil.jpg", page.ImageURLs[0])
	assert.Equal(t, []string{srv.URL + "/flyers/Spring.PDF", "https://speedy.com/flyers/spring.pdf/"}, page.PDFLinks)

	capped, err := NewHTMLFetcher(HTMLConfig{UserAgent: "promo-bot", MaxImages: 1}, nil).Fetch(context.Background(), srv.URL+"/promos")
	require.NoError(t, err)
	assert.Len(t, capped.ImageURLs, 1)
}

func TestHTMLFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTMLFetcher(HTMLConfig{}, nil).Fetch(context.Background(), srv.URL+"/gone")
	var de *DownloadError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusNotFound, de.StatusCode)
}

func TestHTMLFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTMLFetcher(HTMLConfig{}, nil).Fetch(ctx, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, context.Canceled)
}

type stubScraper struct {
	doc    *firecrawl.FirecrawlDocument
	err    error
	params *firecrawl.ScrapeParams
}

func (s *stubScraper) ScrapeURL(_ string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
	s.params = params
	return s.doc, s.err
}

func TestFirecrawlFetcher(t *testing.T) {
	stub := &stubScraper{doc: &firecrawl.FirecrawlDocument{
		HTML:     promoPage,
		Markdown: "# Spring savings\n$20 off oil change",
		Links:    []string{"https://speedy.com/winter.pdf"},
	}}
	f := NewFirecrawlFetcherWithScraper(FirecrawlConfig{UserAgent: "promo-bot"}, stub, nil)

	page, err := f.Fetch(context.Background(), "https://speedy.com/promos/")
	require.NoError(t, err)
	assert.Equal(t, "# Spring savings\n$20 off oil change", page.Markdown)
	assert.Len(t, page.ImageURLs, 4)
	assert.Equal(t, []string{"https://speedy.com/flyers/Spring.PDF", "https://speedy.com/winter.pdf"}, page.PDFLinks)

	require.NotNil(t, stub.params)
	assert.Contains(t, stub.params.Formats, "html")
	require.NotNil(t, stub.params.Headers)
	assert.Equal(t, "promo-bot", (*stub.params.Headers)["User-Agent"])
}

func TestFirecrawlFetcher_Errors(t *testing.T) {
	f := NewFirecrawlFetcherWithScraper(FirecrawlConfig{}, &stubScraper{err: errors.New("402 payment required")}, nil)
	_, err := f.Fetch(context.Background(), "https://speedy.com/")
	var de *DownloadError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, de.Error(), "402")

	f = NewFirecrawlFetcherWithScraper(FirecrawlConfig{}, &stubScraper{doc: &firecrawl.FirecrawlDocument{}}, nil)
	_, err = f.Fetch(context.Background(), "https://speedy.com/")
	assert.ErrorIs(t, err, ErrEmptyPage)
}
