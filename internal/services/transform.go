package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"superkart/internal/config"
	apperrors "superkart/internal/errors"
	"superkart/internal/metrics"
	"superkart/internal/models"
	"superkart/internal/schema"
	"superkart/internal/transform"
	"superkart/internal/validate"
)

// Predictor is the inference boundary as seen by the transform service.
type Predictor interface {
	PredictOne(ctx context.Context, row models.FeatureRow) (models.InferenceResponse, error)
	Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error)
}

// BatchTooLargeError is returned when an upload has more rows than the
// service accepts.
type BatchTooLargeError struct {
	Rows int
	Max  int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("Batch has %d rows, maximum is %d", e.Rows, e.Max)
}

func (e *BatchTooLargeError) Kind() string { return apperrors.KindBatchTooLarge }

func (e *BatchTooLargeError) Meta() map[string]any {
	return map[string]any{"rows": e.Rows, "max_rows": e.Max}
}

// Transform runs the validate, transform, predict pipeline. Schema errors
// are always raised before the inference service is contacted.
type Transform struct {
	validator    *validate.Validator
	transformer  *transform.Transformer
	predictor    Predictor
	metrics      *metrics.Registry
	logger       *slog.Logger
	maxBatchRows int
}

func NewTransform(cfg config.TransformConfig, predictor Predictor, reg *metrics.Registry, logger *slog.Logger) *Transform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transform{
		validator:    validate.NewValidator(validate.Options{NormalizeSugarContent: cfg.AutoNormalizeSugar}, logger),
		transformer:  transform.NewTransformer(transform.Options{NormalizeSugarContent: cfg.AutoNormalizeSugar}, logger),
		predictor:    predictor,
		metrics:      reg,
		logger:       logger,
		maxBatchRows: cfg.MaxBatchRows,
	}
}

func (s *Transform) PredictSingle(ctx context.Context, record models.RawRow) (models.PredictionResult, error) {
	err := s.validator.ValidateOne(record)
	s.metrics.ObserveValidation("single", err)
	if err != nil {
		return models.PredictionResult{}, err
	}

	rows, err := s.transformer.ToCanonicalRows([]models.RawRow{record})
	if err != nil {
		return models.PredictionResult{}, err
	}

	resp, err := s.predictor.PredictOne(ctx, rows[0])
	if err != nil {
		return models.PredictionResult{}, err
	}

	return models.PredictionResult{
		PredictedRevenue: resp.PredictedRevenue,
		Timestamp:        timestampOr(resp.Timestamp),
		InputData:        record,
	}, nil
}

func (s *Transform) PredictBatch(ctx context.Context, batch models.Batch) (models.BatchPredictionResult, error) {
	if s.maxBatchRows > 0 && batch.Len() > s.maxBatchRows {
		err := &BatchTooLargeError{Rows: batch.Len(), Max: s.maxBatchRows}
		s.metrics.ObserveValidation("batch", err)
		return models.BatchPredictionResult{}, err
	}

	report, err := s.validator.ValidateBatch(batch)
	s.metrics.ObserveValidation("batch", err)
	s.metrics.ObserveRows(report.TotalRows, report.InvalidRows)
	if err != nil {
		return models.BatchPredictionResult{}, err
	}

	rows, err := s.transformer.ToCanonicalRows(batch.Rows)
	if err != nil {
		return models.BatchPredictionResult{}, err
	}

	predictions, err := s.predictor.Predict(ctx, rows)
	if err != nil {
		return models.BatchPredictionResult{}, err
	}

	result := models.BatchPredictionResult{
		BatchID:      uuid.NewString(),
		Predictions:  predictions,
		TotalRecords: len(predictions),
		Timestamp:    time.Now().UTC(),
	}.WithStatistics()

	s.logger.Info("batch predicted",
		"batch_id", result.BatchID,
		"records", result.TotalRecords,
	)
	return result, nil
}

// Validate reports on batch without failing and without predicting.
func (s *Transform) Validate(batch models.Batch) validate.Report {
	report := s.validator.Report(batch)
	s.metrics.ObserveRows(report.TotalRows, report.InvalidRows)
	return report
}

func (s *Transform) Summarize(batch models.Batch) validate.QualitySummary {
	return s.validator.SummarizeQuality(batch)
}

// Schema is the discoverability view clients use to build their forms.
func (s *Transform) Schema() models.SchemaInfo {
	domains := s.validator.DescribeDomains()
	valid := make(map[string]any, len(domains))
	for name, d := range domains {
		valid[name] = d
	}
	return models.SchemaInfo{
		RequiredFields: schema.Names(),
		FieldTypes:     schema.FieldTypes(),
		ValidValues:    valid,
	}
}

func timestampOr(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
