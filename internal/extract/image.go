package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/ocr"
)

// Recognizer is satisfied by *ocr.Engine.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (ocr.Result, error)
}

// ImageStrategy runs OCR over downloaded image bytes and logs every attempt.
type ImageStrategy struct {
	rec    Recognizer
	logger *slog.Logger
}

func NewImageStrategy(rec Recognizer, logger *slog.Logger) *ImageStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStrategy{rec: rec, logger: logger}
}

func (s *ImageStrategy) Kind() string { return constants.IMAGE }
func (s *ImageStrategy) Name() string { return "ocr:" + s.rec.Name() }

func (s *ImageStrategy) Extract(ctx context.Context, src Source) (string, bool, error) {
	res, err := s.rec.Recognize(ctx, src.Data)
	if err != nil {
		var oe *ocr.Error
		if errors.As(err, &oe) {
			for _, a := range oe.Attempts {
				s.logger.Info("ocr.recognize.attempt",
					"backend", oe.Backend, "media_url", src.MediaURL, "attempt", a.Number,
					"kind", a.Kind, "error", a.Err, "elapsed_ms", a.Duration.Milliseconds())
			}
			s.logger.Warn("ocr.recognize.failed",
				"backend", oe.Backend, "media_url", src.MediaURL, "kind", oe.Kind, "attempts", len(oe.Attempts))
		}
		return "", false, err
	}
	s.logger.Info("ocr.recognize.ok",
		"backend", res.Backend, "media_url", src.MediaURL, "attempts", len(res.Attempts),
		"chars", len(res.Text), "confidence", res.Confidence)
	if strings.TrimSpace(res.Text) == "" {
		return "", false, nil
	}
	return res.Text, true, nil
}

// PDFConverter is satisfied by *ocr.PDFText.
type PDFConverter interface {
	Extract(ctx context.Context, data []byte) (text string, pages int, err error)
}

// PDFStrategy converts a linked PDF flyer to text.
type PDFStrategy struct {
	conv   PDFConverter
	logger *slog.Logger
}

func NewPDFStrategy(conv PDFConverter, logger *slog.Logger) *PDFStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFStrategy{conv: conv, logger: logger}
}

func (s *PDFStrategy) Kind() string { return constants.PDF }
func (s *PDFStrategy) Name() string { return "pdftotext" }

func (s *PDFStrategy) Extract(ctx context.Context, src Source) (string, bool, error) {
	text, pages, err := s.conv.Extract(ctx, src.Data)
	if err != nil {
		return "", false, err
	}
	s.logger.Info("extract.pdf.ok", "media_url", src.MediaURL, "pages", pages, "chars", len(text))
	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	return text, true, nil
}
