package server

import (
	"log/slog"
	"net/http"

	"superkart/internal/config"
	"superkart/internal/handlers"
	"superkart/internal/metrics"
	"superkart/internal/middleware"
	"superkart/internal/services"
)

// maxInferenceBody caps feature payloads sent to the inference service.
const maxInferenceBody = 32 << 20

type Server struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
}

// NewTransformServer routes the validation and transform API.
func NewTransformServer(cfg *config.Config, transform *services.Transform, reg *metrics.Registry, logger *slog.Logger) *Server {
	s := newServer(logger)
	api := handlers.NewAPIHandlers(transform, logger, int64(cfg.Transform.MaxFileSizeMB)<<20)

	s.mux.HandleFunc("GET /{$}", api.HandleRoot)
	s.mux.HandleFunc("GET /health", api.HandleHealth)
	s.mux.HandleFunc("GET /schema", api.HandleSchema)

	s.mux.HandleFunc("POST /transform/single", api.HandleTransformSingle)
	s.mux.HandleFunc("POST /transform/batch", api.HandleTransformBatch)
	s.mux.HandleFunc("POST /validate/batch", api.HandleValidateBatch)
	s.mux.HandleFunc("POST /validate/summary", api.HandleValidateSummary)

	s.mux.Handle("GET /metrics", reg.Handler())

	s.handler = wrap(s.mux, cfg, reg, logger)
	return s
}

// NewInferenceServer routes the model API.
func NewInferenceServer(cfg *config.Config, inference *services.Inference, reg *metrics.Registry, logger *slog.Logger) *Server {
	s := newServer(logger)
	api := handlers.NewInferenceHandlers(inference, logger)

	s.mux.HandleFunc("GET /{$}", api.HandleRoot)
	s.mux.HandleFunc("GET /health", api.HandleHealth)
	s.mux.HandleFunc("GET /model/info", api.HandleModelInfo)

	limit := middleware.MaxBytes(maxInferenceBody)
	s.mux.Handle("POST /predict", limit(http.HandlerFunc(api.HandlePredict)))
	s.mux.Handle("POST /predict/batch", limit(http.HandlerFunc(api.HandlePredictBatch)))

	// Admin
	s.mux.HandleFunc("POST /admin/model/reload", api.HandleReload)

	s.mux.Handle("GET /metrics", reg.Handler())

	s.handler = wrap(s.mux, cfg, reg, logger)
	return s
}

// NewWebServer routes the browser UI. Its datastar endpoints answer with
// SSE patches.
func NewWebServer(cfg *config.Config, client handlers.TransformAPI, reg *metrics.Registry, logger *slog.Logger) *Server {
	s := newServer(logger)
	ui := handlers.NewSSEHandlers(client, cfg.Web, logger)

	s.mux.HandleFunc("GET /{$}", ui.HandleIndex)
	s.mux.HandleFunc("GET /health", ui.HandleHealth)

	// Datastar SSE endpoints
	s.mux.HandleFunc("POST /ui/predict", ui.HandlePredict)
	s.mux.HandleFunc("POST /ui/batch", ui.HandleBatch)

	s.mux.Handle("GET /metrics", reg.Handler())

	s.handler = wrap(s.mux, cfg, reg, logger)
	return s
}

func newServer(logger *slog.Logger) *Server {
	return &Server{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

// wrap applies the middleware shared by all three services. Metrics stays
// innermost so it sees the matched route pattern.
func wrap(h http.Handler, cfg *config.Config, reg *metrics.Registry, logger *slog.Logger) http.Handler {
	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), logger),
		middleware.Metrics(reg),
	)
	return chain(h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
