package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"superkart/internal/errors"
	"superkart/internal/observability"
	"superkart/internal/services"
	"superkart/internal/transform"
)

// InferenceHandlers serves the inference service. Prediction responses use
// the bare wire shapes the transform service decodes, not the success
// envelope.
type InferenceHandlers struct {
	inference *services.Inference
	logger    *slog.Logger
}

func NewInferenceHandlers(inference *services.Inference, logger *slog.Logger) *InferenceHandlers {
	return &InferenceHandlers{
		inference: inference,
		logger:    logger,
	}
}

func (h *InferenceHandlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	errors.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "SuperKart Sales Forecasting API",
		"status":  "running",
		"version": version,
	})
}

// HandleHealth stays 200 while the model is missing so the process reports
// degraded rather than dead.
func (h *InferenceHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "healthy",
		"model_status": h.inference.ModelStatus(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

func (h *InferenceHandlers) HandlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	record, err := transform.DecodeRecord(r.Body)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	resp, err := h.inference.PredictOne(record)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteJSON(w, http.StatusOK, resp)
}

func (h *InferenceHandlers) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	batch, err := transform.DecodeBatch(r.Body)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	resp, err := h.inference.PredictBatch(batch)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteJSON(w, http.StatusOK, resp)
}

func (h *InferenceHandlers) HandleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.inference.ModelInfo()
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteJSON(w, http.StatusOK, info)
}

func (h *InferenceHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	info, err := h.inference.Reload()
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, info)
}
