package models

import "time"

type PredictionResult struct {
	PredictedRevenue float64   `json:"predicted_revenue"`
	Timestamp        time.Time `json:"timestamp"`
	InputData        RawRow    `json:"input_data,omitempty"`
}

// BatchPredictionResult holds one prediction per input row, in input order.
type BatchPredictionResult struct {
	BatchID      string      `json:"batch_id,omitempty"`
	Predictions  []float64   `json:"predictions"`
	TotalRecords int         `json:"total_records"`
	Timestamp    time.Time   `json:"timestamp"`
	Statistics   *Statistics `json:"statistics,omitempty"`
}

// WithStatistics returns a copy of the result with Statistics filled in.
func (b BatchPredictionResult) WithStatistics() BatchPredictionResult {
	stats := ComputeStatistics(b.Predictions)
	b.Statistics = &stats
	return b
}

// Wire shapes exchanged with the inference service.

type BatchInferenceRequest struct {
	Data []FeatureRow `json:"data"`
}

type InferenceResponse struct {
	PredictedRevenue float64   `json:"predicted_revenue"`
	Timestamp        time.Time `json:"timestamp"`
}

type BatchInferenceResponse struct {
	Predictions  []InferenceResponse `json:"predictions"`
	TotalRecords int                 `json:"total_records"`
	Timestamp    time.Time           `json:"timestamp"`
}

type ModelInfo struct {
	ModelType        string   `json:"model_type"`
	ModelLoaded      bool     `json:"model_loaded"`
	ExpectedFeatures []string `json:"expected_features"`
}

type SchemaInfo struct {
	RequiredFields []string          `json:"required_fields"`
	FieldTypes     map[string]string `json:"field_types"`
	ValidValues    map[string]any    `json:"valid_values"`
}
