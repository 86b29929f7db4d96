package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/promo-tracker/internal/app"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/export"
)

func main() {
	logger := common.NewJSONLogger(os.Stdout)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}
	// level may come from .env
	logger = common.NewJSONLogger(os.Stdout)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	path := cfg.Pipeline.CompetitorsFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	competitors, err := common.LoadCompetitors(path)
	if err != nil {
		logger.Error("failed to load competitors", "path", path, "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err, "code", common.StatusCode(err).String())
		os.Exit(1)
	}
	defer a.Close()

	start := time.Now()
	report, err := a.Pipeline.Run(ctx, competitors)
	if err != nil {
		logger.Error("pipeline run failed", "error", err, "code", common.StatusCode(err).String())
		os.Exit(1)
	}

	written, err := export.NewService(cfg.Pipeline.OutputDir, logger).WriteRun(ctx, report.Results, report.Merged)
	if err != nil {
		logger.Error("export failed", "dir", cfg.Pipeline.OutputDir, "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"run_id", report.RunID,
		"competitors", len(report.Results),
		"failed", len(report.Failures),
		"promotions", len(report.Merged),
		"disappeared", len(report.Disappeared),
		"baseline_version", report.Baseline.Version,
		"workbook", written.Workbook,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if err := report.Err(); err != nil {
		logger.Warn("some competitors failed", "error", err)
		os.Exit(3)
	}
}
