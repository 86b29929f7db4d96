package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default
}

// Tesseract is a local OCR backend that shells out to the tesseract CLI.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Name() string { return "tesseract" }

// stderr fragments tesseract/leptonica emit for unreadable input
var invalidImageMarkers = []string{
	"error in pixread",
	"unsupported image",
	"unknown format",
	"cannot be read",
	"image too small",
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "promo-ocr-*")
	if err != nil {
		return "", Transient(fmt.Errorf("temp file: %w", err))
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			t.logger.Warn("ocr.tesseract.cleanup_failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return "", Transient(fmt.Errorf("write temp image: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", Transient(fmt.Errorf("close temp image: %w", err))
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir DIR]
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("tesseract binary %q: %w: %w", t.cfg.Binary, common.ErrPermanent, err)
		}
		stderr := strings.ToLower(string(errb))
		for _, m := range invalidImageMarkers {
			if strings.Contains(stderr, m) {
				return "", Invalid(fmt.Errorf("tesseract: %s", strings.TrimSpace(string(errb))))
			}
		}
		return "", Transient(fmt.Errorf("tesseract: %w", err))
	}
	return string(out), nil
}
