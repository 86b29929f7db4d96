package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/promo-tracker/internal/app"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: common.LogLevel(),
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <image-file>")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read image", "path", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, engine := range app.OCREngines(cfg.OCR, logger) {
		start := time.Now()
		res, err := engine.Recognize(ctx, data)
		if err != nil {
			logger.Warn("ocr failed", "backend", engine.Name(), "error", err, "duration_ms", time.Since(start).Milliseconds())
			continue
		}
		logger.Info("ocr OK",
			"backend", res.Backend,
			"attempts", len(res.Attempts),
			"confidence", res.Confidence,
			"chars", len(res.Text),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		os.Stdout.WriteString(res.Text + "\n")
		return
	}
	logger.Error("no OCR backend produced text")
	os.Exit(1)
}
