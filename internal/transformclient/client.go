// Package transformclient is the web UI's client of the transform service.
// It unwraps the service's {"success", "data" | "error"} envelope and hands
// structured errors back unchanged so the UI can show the kind, message and
// offending rows.
package transformclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"superkart/internal/config"
	apperrors "superkart/internal/errors"
	"superkart/internal/models"
	"superkart/internal/observability"
)

// APIError is a structured failure returned by the transform service.
type APIError struct {
	StatusCode int
	Code       string         `json:"code"`
	ErrKind    string         `json:"kind"`
	Message    string         `json:"message"`
	Meta       map[string]any `json:"meta"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Kind() string {
	if e.ErrKind == "" {
		return e.Code
	}
	return e.ErrKind
}

// IsValidation reports whether the service rejected the input itself, as
// opposed to failing upstream.
func (e *APIError) IsValidation() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// RowErrors returns the per-row messages of a batch validation failure.
func (e *APIError) RowErrors() []string {
	raw, _ := e.Meta["row_errors"].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// UnreachableError means the transform service could not be contacted.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("Cannot connect to transform service at %s", e.URL)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) Kind() string { return apperrors.KindTransformUnreachable }

func (e *UnreachableError) Meta() map[string]any {
	return map[string]any{"url": e.URL}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func New(cfg config.WebConfig, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg.TransformURL, &http.Client{Timeout: cfg.APITimeout}, logger)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) PredictSingle(ctx context.Context, record models.RawRow) (models.PredictionResult, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("marshal record: %w", err)
	}

	var out models.PredictionResult
	err = c.do(ctx, http.MethodPost, "/transform/single", "application/json", bytes.NewReader(payload), &out)
	return out, err
}

// PredictBatch uploads csv as a multipart file named filename.
func (c *Client) PredictBatch(ctx context.Context, filename string, csv io.Reader) (models.BatchPredictionResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return models.BatchPredictionResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return models.BatchPredictionResult{}, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.BatchPredictionResult{}, fmt.Errorf("close multipart: %w", err)
	}

	var out models.BatchPredictionResult
	err = c.do(ctx, http.MethodPost, "/transform/batch", mw.FormDataContentType(), &buf, &out)
	return out, err
}

func (c *Client) Schema(ctx context.Context) (models.SchemaInfo, error) {
	var out models.SchemaInfo
	err := c.do(ctx, http.MethodGet, "/schema", "", nil, &out)
	return out, err
}

// Health returns nil when the transform service reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/health", "", nil, &out)
}

// Close drops pooled connections to the transform service.
func (c *Client) Close(context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	observability.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("transform service request failed", "url", url, "error", err)
		return &UnreachableError{URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       string(apperrors.CodeServiceUnavail),
			Message:    fmt.Sprintf("Unexpected response from transform service (status %d)", resp.StatusCode),
		}
	}

	if !env.Success || resp.StatusCode >= 400 {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: fmt.Sprintf("Transform service returned status %d", resp.StatusCode)}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
