package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// PDFText converts PDF bytes to text with pdftotext.
type PDFText struct {
	binary string
	runner Runner
	logger *slog.Logger
}

func NewPDFText(binary string, runner Runner, logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	if binary == "" {
		binary = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PDFText{binary: binary, runner: runner, logger: logger}
}

// Extract returns normalized text and the page count. Image-only PDFs yield
// empty text with no error.
func (p *PDFText) Extract(ctx context.Context, data []byte) (string, int, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", 0, Invalid(fmt.Errorf("not a pdf (header %q)", head(data, 4)))
	}
	f, err := os.CreateTemp("", "promo-pdf-*.pdf")
	if err != nil {
		return "", 0, err
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			p.logger.Warn("ocr.pdf.cleanup_failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	text := string(out)
	// form feed separates pages
	pages := 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return Normalize(strings.ReplaceAll(text, "\f", "\n\n")), pages, nil
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
