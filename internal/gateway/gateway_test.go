package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	apperrors "superkart/internal/errors"
	"superkart/internal/models"
	"superkart/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRow(weight float64) models.FeatureRow {
	return models.FeatureRow{
		ProductType:            "Meat",
		StoreType:              "Supermarket Type1",
		StoreLocationCityType:  "Tier 1",
		StoreSize:              "Small",
		ProductSugarContent:    "Regular",
		ProductWeight:          weight,
		ProductMRP:             200,
		ProductAllocatedArea:   0.2,
		StoreEstablishmentYear: 2010,
	}
}

func TestClient_PredictOne(t *testing.T) {
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotRequestID = r.Header.Get(observability.RequestIDHeader)

		var row models.FeatureRow
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			t.Errorf("decode: %v", err)
		}
		if row.ProductSugarContent != "Regular" {
			t.Errorf("unexpected row %+v", row)
		}
		json.NewEncoder(w).Encode(models.InferenceResponse{PredictedRevenue: 3456.5, Timestamp: time.Now()})
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL+"/", srv.Client(), testLogger(), nil)
	ctx := observability.WithRequestID(context.Background(), "req-1")

	got, err := c.PredictOne(ctx, sampleRow(10))
	if err != nil {
		t.Fatalf("PredictOne() error = %v", err)
	}
	if got.PredictedRevenue != 3456.5 {
		t.Errorf("PredictedRevenue = %v, want 3456.5", got.PredictedRevenue)
	}
	if gotRequestID != "req-1" {
		t.Errorf("request id not forwarded, got %q", gotRequestID)
	}
}

func TestClient_Predict_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict/batch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req models.BatchInferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		// echo the weight back so order is observable
		resp := models.BatchInferenceResponse{TotalRecords: len(req.Data)}
		for _, row := range req.Data {
			resp.Predictions = append(resp.Predictions, models.InferenceResponse{PredictedRevenue: row.ProductWeight})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger(), nil)
	rows := []models.FeatureRow{sampleRow(3), sampleRow(1), sampleRow(2)}

	got, err := c.Predict(context.Background(), rows)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if want := []float64{3, 1, 2}; !slices.Equal(got, want) {
		t.Errorf("Predict() = %v, want %v", got, want)
	}
}

func TestClient_Predict_Misaligned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.BatchInferenceResponse{
			Predictions: []models.InferenceResponse{{PredictedRevenue: 1}},
		})
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger(), nil)
	_, err := c.Predict(context.Background(), []models.FeatureRow{sampleRow(1), sampleRow(2)})

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger(), nil)
	_, err := c.PredictOne(context.Background(), sampleRow(10))

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if unavailable.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", unavailable.StatusCode)
	}
	if unavailable.Kind() != apperrors.KindInferenceUnavailable {
		t.Errorf("Kind() = %q", unavailable.Kind())
	}
	if !strings.Contains(unavailable.Reason, "model not loaded") {
		t.Errorf("Reason = %q", unavailable.Reason)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWithHTTPClient(url, &http.Client{Timeout: time.Second}, testLogger(), nil)
	_, err := c.Predict(context.Background(), []models.FeatureRow{sampleRow(10)})

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("expected *UnreachableError, got %v", err)
	}
	if unreachable.Kind() != apperrors.KindInferenceUnreachable {
		t.Errorf("Kind() = %q", unreachable.Kind())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewWithHTTPClient(srv.URL, &http.Client{Timeout: 50 * time.Millisecond}, testLogger(), nil)
	_, err := c.PredictOne(context.Background(), sampleRow(10))

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("expected *UnreachableError on timeout, got %v", err)
	}
}

func TestClient_TimeoutWhileReadingBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"predicted_revenue":`))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewWithHTTPClient(srv.URL, &http.Client{Timeout: 100 * time.Millisecond}, testLogger(), nil)
	_, err := c.PredictOne(context.Background(), sampleRow(10))

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("expected *UnreachableError when the body stalls, got %T: %v", err, err)
	}
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		t.Errorf("body timeout reported as unavailable: %v", err)
	}
}

func TestClient_ModelInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/model/info" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.ModelInfo{ModelType: "LinearRegression", ModelLoaded: true})
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger(), nil)
	info, err := c.ModelInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.ModelType != "LinearRegression" || !info.ModelLoaded {
		t.Errorf("unexpected info %+v", info)
	}
}
