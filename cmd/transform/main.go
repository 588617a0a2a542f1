package main

import (
	"log/slog"
	"net/http"
	"os"

	"superkart/internal/config"
	"superkart/internal/gateway"
	"superkart/internal/metrics"
	"superkart/internal/observability"
	"superkart/internal/server"
	"superkart/internal/services"
)

func main() {
	cfg, err := config.Load(config.ServiceTransform)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger, cfg.Service)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"inference_url", cfg.Transform.InferenceURL,
		"max_batch_rows", cfg.Transform.MaxBatchRows,
		"auto_normalize_sugar", cfg.Transform.AutoNormalizeSugar,
	)

	reg := metrics.NewRegistry()
	inference := gateway.New(cfg.Transform, logger, reg)
	transform := services.NewTransform(cfg.Transform, inference, reg, logger)

	srv := server.NewTransformServer(cfg, transform, reg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("inference gateway", inference.Close)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
