package main

import (
	"log/slog"
	"net/http"
	"os"

	"superkart/internal/config"
	"superkart/internal/metrics"
	"superkart/internal/observability"
	"superkart/internal/server"
	"superkart/internal/transformclient"
)

func main() {
	cfg, err := config.Load(config.ServiceWeb)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger, cfg.Service)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"transform_url", cfg.Web.TransformURL,
		"batch_enabled", cfg.Web.EnableBatchPrediction,
	)

	reg := metrics.NewRegistry()
	client := transformclient.New(cfg.Web, logger)
	srv := server.NewWebServer(cfg, client, reg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("transform client", client.Close)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
