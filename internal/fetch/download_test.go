package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "promo-bot", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	})
	mux.HandleFunc("/raw.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("jpeg bytes"))
	})
	mux.HandleFunc("/page.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/big.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(make([]byte, 2048))
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/flyer.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestImageDownloader(t *testing.T) {
	srv := mediaServer(t)
	d := NewImageDownloader(DownloadConfig{UserAgent: "promo-bot", MaxBytes: 1024, Timeout: 200 * time.Millisecond}, srv.Client(), nil)
	ctx := context.Background()

	b, err := d.Download(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(b))

	b, err = d.Download(ctx, srv.URL+"/raw.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(b))

	cases := map[string]struct {
		url    string
		status int
		target error
	}{
		"not found":    {srv.URL + "/missing.png", http.StatusNotFound, nil},
		"html":         {srv.URL + "/page.png", http.StatusOK, ErrBadContentType},
		"too large":    {srv.URL + "/big.png", http.StatusOK, ErrTooLarge},
		"data uri":     {"data:image/png;base64,AAAA", 0, ErrDataURI},
		"relative":     {"/img/a.png", 0, ErrUnsupportedURL},
		"timeout":      {srv.URL + "/slow.png", 0, context.DeadlineExceeded},
		"pdf as image": {srv.URL + "/flyer.pdf", http.StatusOK, ErrBadContentType},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Download(ctx, tc.url)
			var de *DownloadError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tc.status, de.StatusCode)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestPDFDownloader(t *testing.T) {
	srv := mediaServer(t)
	d := NewPDFDownloader(DownloadConfig{UserAgent: "promo-bot"}, srv.Client(), nil)

	b, err := d.Download(context.Background(), srv.URL+"/flyer.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	_, err = d.Download(context.Background(), srv.URL+"/ok.png")
	assert.ErrorIs(t, err, ErrBadContentType)
}
