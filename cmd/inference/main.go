package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"superkart/internal/config"
	"superkart/internal/metrics"
	"superkart/internal/model"
	"superkart/internal/observability"
	"superkart/internal/server"
	"superkart/internal/services"
)

func main() {
	cfg, err := config.Load(config.ServiceInference)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger, cfg.Service)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"model_path", cfg.Inference.ModelPath,
		"watch_model", cfg.Inference.WatchModel,
	)

	reg := metrics.NewRegistry()
	loader := model.NewLoader(cfg.Inference.ModelPath, logger, reg)

	// Without a model the service still starts; /health reports
	// not_loaded and predictions fail until a reload succeeds.
	if err := loader.Load(); err != nil {
		logger.Error("model not loaded, starting degraded", "error", err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.Inference.WatchModel {
		if err := loader.Watch(watchCtx); err != nil {
			logger.Warn("model file watch disabled", "error", err)
		}
	}

	inference := services.NewInference(loader, reg, logger)
	srv := server.NewInferenceServer(cfg, inference, reg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("model watcher", func(context.Context) error {
		stopWatch()
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
