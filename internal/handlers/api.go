package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"superkart/internal/errors"
	"superkart/internal/models"
	"superkart/internal/observability"
	"superkart/internal/services"
	"superkart/internal/transform"
)

const version = "1.0.0"

// APIHandlers serves the transform service's JSON API.
type APIHandlers struct {
	transform      *services.Transform
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewAPIHandlers(transform *services.Transform, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		transform:      transform,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *APIHandlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"message": "SuperKart Input Transform Service",
		"status":  "running",
		"version": version,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

func (h *APIHandlers) HandleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	errors.WriteSuccess(w, h.transform.Schema())
}

func (h *APIHandlers) HandleTransformSingle(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	record, err := transform.DecodeRecord(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	result, err := h.transform.PredictSingle(r.Context(), record)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleTransformBatch(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	batch, err := h.readBatch(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}
	h.logger.Info("received batch", "records", batch.Len(), "request_id", requestID)

	result, err := h.transform.PredictBatch(r.Context(), batch)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, result)
}

// HandleValidateBatch reports on an upload without predicting. Validation
// failures are part of the report, not an error response.
func (h *APIHandlers) HandleValidateBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.readBatch(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, h.transform.Validate(batch))
}

func (h *APIHandlers) HandleValidateSummary(w http.ResponseWriter, r *http.Request) {
	batch, err := h.readBatch(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, h.transform.Summarize(batch))
}

// readBatch accepts a multipart upload in the "file" field, a JSON
// {"data": [...]} body, or a raw CSV body.
func (h *APIHandlers) readBatch(w http.ResponseWriter, r *http.Request) (models.Batch, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, header, err := r.FormFile("file")
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return models.Batch{}, err
			}
			return models.Batch{}, errors.BadRequestWrap(err, "Expected a CSV upload in the 'file' field")
		}
		defer file.Close()

		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
			return models.Batch{}, errors.BadRequest("Only .csv files are accepted")
		}
		return transform.ParseCSV(file)
	case "application/json":
		return transform.DecodeBatch(r.Body)
	default:
		return transform.ParseCSV(r.Body)
	}
}
