// Package gateway is the transform service's client of the inference
// service. It sends canonical rows in schema order and maps every failure
// onto one of two upstream kinds: the service answered badly
// (InferenceUnavailable) or it could not be reached at all
// (InferenceUnreachable). Nothing is retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"superkart/internal/config"
	apperrors "superkart/internal/errors"
	"superkart/internal/metrics"
	"superkart/internal/models"
	"superkart/internal/observability"
)

const maxErrorBody = 4 << 10

// UnavailableError is returned when the inference service answered with a
// non-success status or a body that cannot be used.
type UnavailableError struct {
	Endpoint   string
	StatusCode int
	Reason     string
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Inference API unavailable: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("Inference API unavailable: %s: %s", e.Endpoint, e.Reason)
}

func (e *UnavailableError) Kind() string { return apperrors.KindInferenceUnavailable }

func (e *UnavailableError) Meta() map[string]any {
	return map[string]any{"endpoint": e.Endpoint, "status_code": e.StatusCode}
}

// UnreachableError is returned when the request never got an answer:
// connection refused, DNS failure or timeout.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("Inference API unreachable: %s: %v", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) Kind() string { return apperrors.KindInferenceUnreachable }

func (e *UnreachableError) Meta() map[string]any {
	return map[string]any{"endpoint": e.Endpoint}
}

// Client talks to the inference service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *metrics.Registry
}

func New(cfg config.TransformConfig, logger *slog.Logger, reg *metrics.Registry) *Client {
	return NewWithHTTPClient(cfg.InferenceURL, &http.Client{Timeout: cfg.InferenceTimeout}, logger, reg)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger, reg *metrics.Registry) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    reg,
	}
}

// PredictOne sends a single row to /predict.
func (c *Client) PredictOne(ctx context.Context, row models.FeatureRow) (models.InferenceResponse, error) {
	start := time.Now()

	var resp models.InferenceResponse
	err := c.post(ctx, "/predict", row, &resp)
	c.metrics.ObserveInference("single", 1, time.Since(start), err)
	if err != nil {
		return models.InferenceResponse{}, err
	}
	return resp, nil
}

// Predict sends rows to /predict/batch and returns one revenue per row in
// the order the rows were given.
func (c *Client) Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error) {
	start := time.Now()

	var resp models.BatchInferenceResponse
	err := c.post(ctx, "/predict/batch", models.BatchInferenceRequest{Data: rows}, &resp)
	if err == nil && len(resp.Predictions) != len(rows) {
		err = &UnavailableError{
			Endpoint: c.baseURL + "/predict/batch",
			Reason:   fmt.Sprintf("expected %d predictions, got %d", len(rows), len(resp.Predictions)),
		}
	}
	c.metrics.ObserveInference("batch", len(rows), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(resp.Predictions))
	for i, p := range resp.Predictions {
		out[i] = p.PredictedRevenue
	}
	return out, nil
}

// ModelInfo fetches the loaded model's type and expected fields.
func (c *Client) ModelInfo(ctx context.Context) (models.ModelInfo, error) {
	var info models.ModelInfo
	if err := c.do(ctx, http.MethodGet, "/model/info", nil, &info); err != nil {
		return models.ModelInfo{}, err
	}
	return info, nil
}

// Close drops pooled connections to the inference service.
func (c *Client) Close(context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	observability.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("inference request failed",
			"endpoint", endpoint,
			"error", err,
			"request_id", observability.GetRequestID(ctx),
		)
		return &UnreachableError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("inference request rejected",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"request_id", observability.GetRequestID(ctx),
		)
		return &UnavailableError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// The client timeout also covers the body read.
		if isTimeout(err) {
			c.logger.Error("inference response timed out",
				"endpoint", endpoint,
				"error", err,
				"request_id", observability.GetRequestID(ctx),
			)
			return &UnreachableError{Endpoint: endpoint, Err: err}
		}
		return &UnavailableError{Endpoint: endpoint, StatusCode: resp.StatusCode, Reason: "malformed response: " + err.Error()}
	}
	return nil
}

func isTimeout(err error) bool {
	if apperrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return apperrors.As(err, &netErr) && netErr.Timeout()
}
