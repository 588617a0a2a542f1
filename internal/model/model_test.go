package model

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"superkart/internal/models"
)

const testModel = `
type: LinearRegression
features: [Product_Type, Store_Type, Store_Location_City_Type, Store_Size,
  Product_Sugar_Content, Product_Weight, Product_MRP, Product_Allocated_Area,
  Store_Establishment_Year]
intercept: 100
numeric:
  Product_Weight: 2
  Product_MRP: 1
  Store_Establishment_Year: 0.5
categorical:
  Product_Type:
    Meat: 10
  Store_Size:
    Small: -5
`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(productType string) models.FeatureRow {
	return models.FeatureRow{
		ProductType:            productType,
		StoreType:              "Supermarket Type1",
		StoreLocationCityType:  "Tier 1",
		StoreSize:              "Small",
		ProductSugarContent:    "Regular",
		ProductWeight:          10,
		ProductMRP:             200,
		ProductAllocatedArea:   0.2,
		StoreEstablishmentYear: 2010,
	}
}

func TestLinearModel_Predict(t *testing.T) {
	m, err := ReadFile(writeModel(t, testModel))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	got, err := m.Predict([]models.FeatureRow{row("Meat"), row("Unseen")})
	if err != nil {
		t.Fatal(err)
	}

	// 100 + 10 (Meat) - 5 (Small) + 2*10 + 200 + 0.5*2010
	want := []float64{1330, 1320}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("prediction[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if m.Type() != "LinearRegression" {
		t.Errorf("Type() = %q", m.Type())
	}
}

func TestReadFile_Errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected *NotFoundError, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ReadFile(writeModel(t, "features: [unterminated"))
		var inv *InvalidError
		if !errors.As(err, &inv) {
			t.Fatalf("expected *InvalidError, got %v", err)
		}
	})

	t.Run("wrong feature order", func(t *testing.T) {
		_, err := ReadFile(writeModel(t, "features: [Store_Type, Product_Type]\n"))
		var inv *InvalidError
		if !errors.As(err, &inv) {
			t.Fatalf("expected *InvalidError, got %v", err)
		}
	})
}

func TestReadFile_ShippedArtifact(t *testing.T) {
	m, err := ReadFile(filepath.Join("..", "..", "models", "superkart_model.yaml"))
	if err != nil {
		t.Fatalf("shipped model does not load: %v", err)
	}
	preds, err := m.Predict([]models.FeatureRow{row("Meat")})
	if err != nil || len(preds) != 1 {
		t.Fatalf("Predict() = %v, %v", preds, err)
	}
}

func TestLoader_NotLoaded(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), quietLogger(), nil)

	if err := l.Load(); err == nil {
		t.Fatal("expected load error for absent file")
	}
	if l.IsLoaded() {
		t.Error("IsLoaded() = true after failed load")
	}
	if _, err := l.Get(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Get() error = %v, want ErrNotLoaded", err)
	}
}

func TestLoader_ReloadKeepsHandleOnFailure(t *testing.T) {
	path := writeModel(t, testModel)
	l := NewLoader(path, quietLogger(), nil)
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	before, _ := l.Get()

	if err := os.WriteFile(path, []byte("features: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Reload(); err == nil {
		t.Fatal("expected reload to fail")
	}

	after, err := l.Get()
	if err != nil {
		t.Fatalf("Get() after failed reload: %v", err)
	}
	if after != before {
		t.Error("failed reload replaced the current handle")
	}
}

func TestLoader_ConcurrentReload(t *testing.T) {
	l := NewLoader(writeModel(t, testModel), quietLogger(), nil)
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Reload()
		}()
		go func() {
			defer wg.Done()
			h, err := l.Get()
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := h.Predict([]models.FeatureRow{row("Meat")}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
