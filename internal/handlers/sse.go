package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"superkart/internal/config"
	"superkart/internal/errors"
	"superkart/internal/models"
	"superkart/internal/observability"
	"superkart/internal/schema"
	"superkart/internal/transform"
	"superkart/internal/transformclient"
	"superkart/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	appTitle      = "SuperKart Sales Forecasting"
)

// numeric form defaults, taken from the middle of the training data
var formDefaults = map[string]string{
	schema.ProductWeight:        "12.66",
	schema.ProductMRP:           "146.74",
	schema.ProductAllocatedArea: "0.056",
	schema.StoreEstablishedYear: "2009",
}

// TransformAPI is the part of the transform service the UI uses.
type TransformAPI interface {
	PredictSingle(ctx context.Context, record models.RawRow) (models.PredictionResult, error)
	PredictBatch(ctx context.Context, filename string, csv io.Reader) (models.BatchPredictionResult, error)
	Schema(ctx context.Context) (models.SchemaInfo, error)
	Health(ctx context.Context) error
}

// SSEHandlers serves the web UI. Form submissions answer with datastar
// element patches of the result panels.
type SSEHandlers struct {
	client TransformAPI
	config config.WebConfig
	logger *slog.Logger
}

func NewSSEHandlers(client TransformAPI, cfg config.WebConfig, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		client: client,
		config: cfg,
		logger: logger,
	}
}

func (h *SSEHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	var (
		info      models.SchemaInfo
		schemaErr error
		healthErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		info, schemaErr = h.client.Schema(ctx)
		return nil
	})
	g.Go(func() error {
		healthErr = h.client.Health(ctx)
		return nil
	})
	_ = g.Wait()

	fallback := schemaErr != nil
	if schemaErr != nil {
		h.logger.Warn("schema fetch failed, using local schema", "error", schemaErr)
		info = localSchema()
	}

	fields, err := formFields(info)
	if err != nil {
		h.logger.Warn("unusable remote schema, using local schema", "error", err)
		fields, _ = formFields(localSchema())
		fallback = true
	}

	data := templates.PageData{
		Title:          appTitle,
		Fields:         fields,
		BatchEnabled:   h.config.EnableBatchPrediction,
		MaxBatchRows:   h.config.MaxBatchRows,
		SchemaFallback: fallback,
		UpstreamDown:   healthErr != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(ctx, w); err != nil {
		h.logger.Error("render page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (h *SSEHandlers) HandlePredict(w http.ResponseWriter, r *http.Request) {
	signals := map[string]any{}
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)

	if readErr != nil {
		h.patch(r.Context(), sse, templates.Error("result", templates.ErrorView{Message: "Could not read form values"}))
		return
	}

	result, err := h.client.PredictSingle(r.Context(), recordFromSignals(signals))
	if err != nil {
		h.logger.Warn("single prediction failed",
			"error", err,
			"request_id", observability.GetRequestID(r.Context()),
		)
		h.patch(r.Context(), sse, templates.Error("result", errorView(err)))
		return
	}

	h.patch(r.Context(), sse, templates.PredictionResult(result))
}

func (h *SSEHandlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !h.config.EnableBatchPrediction {
		errors.WriteError(w, h.logger, errors.FeatureDisabled("Batch prediction is disabled"),
			observability.GetRequestID(r.Context()))
		return
	}

	filename, data, uploadErr := h.readUpload(w, r)

	sse := datastar.NewSSE(w, r)

	if uploadErr != nil {
		h.patch(r.Context(), sse, templates.Error("batch-result", errorView(uploadErr)))
		return
	}

	result, err := h.client.PredictBatch(r.Context(), filename, bytes.NewReader(data))
	if err != nil {
		h.logger.Warn("batch prediction failed",
			"error", err,
			"request_id", observability.GetRequestID(r.Context()),
		)
		h.patch(r.Context(), sse, templates.Error("batch-result", errorView(err)))
		return
	}

	h.patch(r.Context(), sse, templates.BatchResult(result, h.config.RecordsPerPage))
}

// HandleHealth reports the UI as healthy and the transform service as up
// or down.
func (h *SSEHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	upstream := "up"
	if err := h.client.Health(r.Context()); err != nil {
		upstream = "down"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":            "healthy",
		"transform_service": upstream,
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

// readUpload reads the CSV upload and applies the UI-side limits before
// anything is sent to the transform service.
func (h *SSEHandlers) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.config.MaxFileSizeMB)<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", nil, err
		}
		return "", nil, errors.BadRequestWrap(err, "Please choose a CSV file to upload")
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
		return "", nil, errors.BadRequest("Only .csv files are accepted")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}

	batch, err := transform.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}
	if batch.Len() > h.config.MaxBatchRows {
		return "", nil, errors.BadRequest(fmt.Sprintf("File has %d rows, maximum is %d", batch.Len(), h.config.MaxBatchRows))
	}

	return header.Filename, data, nil
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		h.logger.Error("render fragment", "error", err)
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		h.logger.Error("patch elements", "error", err)
	}
}

// signalName maps a schema field to its datastar signal, e.g.
// Store_Location_City_Type -> storeLocationCityType.
func signalName(field string) string {
	parts := strings.Split(field, "_")
	parts[0] = strings.ToLower(parts[0])
	return strings.Join(parts, "")
}

func recordFromSignals(signals map[string]any) models.RawRow {
	record := make(models.RawRow, len(schema.Names()))
	for _, name := range schema.Names() {
		if v, ok := signals[signalName(name)]; ok {
			record[name] = v
		}
	}
	return record
}

// formFields builds the form from a schema description. Numeric inputs are
// bounded by the typical training range when one is known.
func formFields(info models.SchemaInfo) ([]templates.FormField, error) {
	fields := make([]templates.FormField, 0, len(info.RequiredFields))
	for _, name := range info.RequiredFields {
		raw, err := json.Marshal(info.ValidValues[name])
		if err != nil {
			return nil, err
		}
		var d schema.Description
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		f := templates.FormField{
			Name:   name,
			Signal: signalName(name),
			Label:  strings.ReplaceAll(name, "_", " "),
			Note:   d.Note,
		}
		if d.Type == schema.KindCategorical {
			if len(d.ValidValues) == 0 {
				return nil, fmt.Errorf("field %s has no valid values", name)
			}
			f.Options = d.ValidValues
			f.Default = d.ValidValues[0]
			fields = append(fields, f)
			continue
		}

		f.Numeric = true
		f.Integer = d.Type == schema.KindInteger
		f.Min, f.Max = bounds(d)
		switch {
		case f.Integer:
			f.Step = 1
		case f.Max <= 1:
			f.Step = 0.001
		default:
			f.Step = 0.01
		}
		f.Default = formDefaults[name]
		if f.Default == "" {
			f.Default = strconv.FormatFloat((f.Min+f.Max)/2, 'f', -1, 64)
		}
		if d.Unit != "" {
			f.Label += " (" + d.Unit + ")"
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func bounds(d schema.Description) (float64, float64) {
	if d.TypicalMin != nil && d.TypicalMax != nil {
		return *d.TypicalMin, *d.TypicalMax
	}
	if d.Min != nil && d.Max != nil {
		return *d.Min, *d.Max
	}
	return 0, 0
}

func localSchema() models.SchemaInfo {
	valid := make(map[string]any)
	for name, d := range schema.Describe() {
		valid[name] = d
	}
	return models.SchemaInfo{
		RequiredFields: schema.Names(),
		FieldTypes:     schema.FieldTypes(),
		ValidValues:    valid,
	}
}

func errorView(err error) templates.ErrorView {
	var apiErr *transformclient.APIError
	if errors.As(err, &apiErr) {
		v := templates.ErrorView{
			Kind:     apiErr.Kind(),
			Message:  apiErr.Message,
			Rows:     apiErr.RowErrors(),
			Upstream: !apiErr.IsValidation(),
		}
		if n, ok := apiErr.Meta["omitted"].(float64); ok {
			v.Omitted = int(n)
		}
		return v
	}

	appErr := errors.FromDomain(err)
	kind := appErr.Kind
	if kind == "" {
		kind = string(appErr.Code)
	}
	return templates.ErrorView{
		Kind:     kind,
		Message:  appErr.Message,
		Upstream: appErr.StatusCode >= 500,
	}
}
