package services

import (
	"log/slog"
	"time"

	"superkart/internal/metrics"
	"superkart/internal/model"
	"superkart/internal/models"
	"superkart/internal/transform"
)

// ModelSource hands out the current model handle.
type ModelSource interface {
	Get() (*model.Handle, error)
	IsLoaded() bool
	Reload() error
}

// Inference serves predictions from the loaded model. Incoming rows are
// only type-checked; domain validation is the transform service's job.
type Inference struct {
	source      ModelSource
	transformer *transform.Transformer
	metrics     *metrics.Registry
	logger      *slog.Logger
}

func NewInference(source ModelSource, reg *metrics.Registry, logger *slog.Logger) *Inference {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inference{
		source:      source,
		transformer: transform.NewTransformer(transform.Options{}, logger),
		metrics:     reg,
		logger:      logger,
	}
}

func (s *Inference) PredictOne(record models.RawRow) (models.InferenceResponse, error) {
	preds, err := s.predict("single", []models.RawRow{record})
	if err != nil {
		return models.InferenceResponse{}, err
	}
	return models.InferenceResponse{PredictedRevenue: preds[0], Timestamp: time.Now().UTC()}, nil
}

func (s *Inference) PredictBatch(batch models.Batch) (models.BatchInferenceResponse, error) {
	preds, err := s.predict("batch", batch.Rows)
	if err != nil {
		return models.BatchInferenceResponse{}, err
	}

	now := time.Now().UTC()
	out := models.BatchInferenceResponse{
		Predictions:  make([]models.InferenceResponse, len(preds)),
		TotalRecords: len(preds),
		Timestamp:    now,
	}
	for i, p := range preds {
		out.Predictions[i] = models.InferenceResponse{PredictedRevenue: p, Timestamp: now}
	}
	return out, nil
}

func (s *Inference) predict(mode string, records []models.RawRow) ([]float64, error) {
	start := time.Now()

	// take the handle first so a concurrent reload cannot change the model
	// halfway through a batch
	h, err := s.source.Get()
	if err != nil {
		return nil, err
	}

	rows, err := s.transformer.ToCanonicalRows(records)
	if err != nil {
		return nil, err
	}

	preds, err := h.Predict(rows)
	s.metrics.ObserveInference(mode, len(rows), time.Since(start), err)
	if err != nil {
		s.logger.Error("prediction failed", "mode", mode, "error", err)
		return nil, err
	}

	s.logger.Info("generated predictions", "mode", mode, "count", len(preds))
	return preds, nil
}

func (s *Inference) ModelInfo() (models.ModelInfo, error) {
	h, err := s.source.Get()
	if err != nil {
		return models.ModelInfo{}, err
	}
	return models.ModelInfo{
		ModelType:        h.Type(),
		ModelLoaded:      true,
		ExpectedFeatures: h.Features(),
	}, nil
}

func (s *Inference) ModelStatus() string {
	if s.source.IsLoaded() {
		return "loaded"
	}
	return "not_loaded"
}

func (s *Inference) Reload() (models.ModelInfo, error) {
	if err := s.source.Reload(); err != nil {
		return models.ModelInfo{}, err
	}
	return s.ModelInfo()
}
