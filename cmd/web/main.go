package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"nexus-analytics/internal/config"
	"nexus-analytics/internal/middleware"
	"nexus-analytics/internal/observability"
	"nexus-analytics/internal/server"
	"nexus-analytics/internal/services"
)

const dataLoadTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	dataset := services.NewDataset(logger)
	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := dataset.LoadFromCSV(ctx, cfg.Data.CSVFile, cfg.Data.SyntheticSeed); err != nil {
		logger.Error("failed to load sales data", "error", err)
		os.Exit(1)
	}
	logger.Info("sales data loaded",
		"records", len(dataset.Records()),
		"duration", time.Since(start),
	)

	analytics := services.NewAnalytics(logger)
	predictor := services.NewPredictor(cfg.Data.ModelFile, cfg.Data.ScalerFile, logger)
	forecaster := services.NewForecastEngine(logger)

	// Warm the model artifacts so a broken deployment fails loudly at
	// the first prediction rather than silently at startup.
	if err := predictor.Load(); err != nil {
		logger.Warn("model artifacts not ready, predictions will retry on demand", "error", err)
	}

	srv := server.NewServer(dataset, analytics, predictor, forecaster, cfg.Forecast, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics services")
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
