package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/promo-tracker/internal/app"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/export"
	"github.com/joseph-ayodele/promo-tracker/internal/watch"
)

// serviceName is the health service key for the pipeline itself; "" is overall server health.
const serviceName = "promo.v1.Pipeline"

func main() {
	if err := godotenv.Load(); err != nil {
		common.NewJSONLogger(os.Stdout).Debug("no .env file loaded", "error", err)
	}
	logger := common.NewJSONLogger(os.Stdout)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
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

	lis, err := net.Listen("tcp", cfg.Daemon.HealthAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Daemon.HealthAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	logger.Info("promod health listening", "addr", cfg.Daemon.HealthAddr, "interval", cfg.Daemon.Interval.String())
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve stopped", "error", err)
			stop()
		}
	}()

	exporter := export.NewService(cfg.Pipeline.OutputDir, logger)
	runOnce := func() {
		competitors, err := common.LoadCompetitors(cfg.Pipeline.CompetitorsFile)
		if err != nil {
			logger.Error("failed to load competitors", "path", cfg.Pipeline.CompetitorsFile, "error", err)
			healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			return
		}
		report, err := a.Pipeline.Run(ctx, competitors)
		if err != nil {
			logger.Error("pipeline run failed", "error", err, "code", common.StatusCode(err).String())
			healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			return
		}
		if _, err := exporter.WriteRun(ctx, report.Results, report.Merged); err != nil {
			logger.Error("export failed", "run_id", report.RunID, "error", err)
		}
		if err := report.Err(); err != nil {
			logger.Warn("some competitors failed", "run_id", report.RunID, "error", err)
		}
		healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	changes, err := watch.File(ctx, watch.Config{Path: cfg.Pipeline.CompetitorsFile}, logger)
	if err != nil {
		logger.Warn("competitors file not watched", "path", cfg.Pipeline.CompetitorsFile, "error", err)
	}

	runOnce()
	schedule(ctx, cfg.Daemon.Interval, changes, runOnce, logger)

	logger.Info("shutting down")
	healthServer.Shutdown()
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}
}
