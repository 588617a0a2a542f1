package transform

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"slices"
	"testing"

	"superkart/internal/models"
)

func newTestTransformer() *Transformer {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewTransformer(Options{NormalizeSugarContent: true}, logger)
}

func scenarioRecord() models.RawRow {
	return models.RawRow{
		"Product_Type":             "Meat",
		"Store_Type":               "Supermarket Type1",
		"Store_Location_City_Type": "Tier 1",
		"Store_Size":               "Small",
		"Product_Sugar_Content":    "reg",
		"Product_Weight":           10.0,
		"Product_MRP":              200.0,
		"Product_Allocated_Area":   0.2,
		"Store_Establishment_Year": 2010,
	}
}

func TestToCanonicalRows_Scenario(t *testing.T) {
	tr := newTestTransformer()
	rows, err := tr.ToCanonicalRows([]models.RawRow{scenarioRecord()})
	if err != nil {
		t.Fatalf("ToCanonicalRows() unexpected error: %v", err)
	}

	want := models.FeatureRow{
		ProductType:            "Meat",
		StoreType:              "Supermarket Type1",
		StoreLocationCityType:  "Tier 1",
		StoreSize:              "Small",
		ProductSugarContent:    "Regular",
		ProductWeight:          10,
		ProductMRP:             200,
		ProductAllocatedArea:   0.2,
		StoreEstablishmentYear: 2010,
	}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("got %+v, want %+v", rows, want)
	}
}

func TestToCanonicalRows_CoercesStringsAndTrims(t *testing.T) {
	tr := newTestTransformer()
	raw := models.RawRow{
		"Store_Establishment_Year": "1999",
		"Product_Allocated_Area":   "0.05",
		"Product_MRP":              json.Number("120.5"),
		"Product_Weight":           " 12.0 ",
		"Product_Sugar_Content":    " Low Sugar ",
		"Store_Size":               "Medium ",
		"Store_Location_City_Type": " Tier 2",
		"Store_Type":               "Grocery Store",
		"Product_Type":             "  Dairy",
		"Item_Identifier":          "FD01",
	}

	rows, err := tr.ToCanonicalRows([]models.RawRow{raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := rows[0]
	if got.ProductType != "Dairy" || got.StoreSize != "Medium" || got.StoreLocationCityType != "Tier 2" {
		t.Errorf("categoricals not trimmed: %+v", got)
	}
	if got.ProductSugarContent != "Low Sugar" {
		t.Errorf("ProductSugarContent = %q", got.ProductSugarContent)
	}
	if got.ProductWeight != 12 || got.ProductMRP != 120.5 || got.ProductAllocatedArea != 0.05 || got.StoreEstablishmentYear != 1999 {
		t.Errorf("numerics not coerced: %+v", got)
	}
}

func TestToCanonicalRows_CanonicalOrder(t *testing.T) {
	tr := newTestTransformer()
	rows, err := tr.ToCanonicalRows([]models.RawRow{scenarioRecord()})
	if err != nil {
		t.Fatal(err)
	}

	want := []any{"Meat", "Supermarket Type1", "Tier 1", "Small", "Regular", 10.0, 200.0, 0.2, 2010}
	if got := rows[0].Values(); !slices.Equal(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestToCanonicalRows_PreservesRowOrder(t *testing.T) {
	tr := newTestTransformer()
	var input []models.RawRow
	for _, w := range []float64{3, 1, 2} {
		r := scenarioRecord()
		r["Product_Weight"] = w
		input = append(input, r)
	}

	rows, err := tr.ToCanonicalRows(input)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range []float64{3, 1, 2} {
		if rows[i].ProductWeight != w {
			t.Errorf("row %d weight = %v, want %v", i, rows[i].ProductWeight, w)
		}
	}
}

func TestToCanonicalRows_CoercionFailed(t *testing.T) {
	tr := newTestTransformer()

	a := scenarioRecord()
	a["Product_MRP"] = "expensive"
	b := scenarioRecord()
	b["Store_Establishment_Year"] = 2010.5
	c := scenarioRecord()
	c["Product_MRP"] = nil
	delete(c, "Store_Type")

	_, err := tr.ToCanonicalRows([]models.RawRow{a, b, c})
	var coerceErr *CoercionError
	if !errors.As(err, &coerceErr) {
		t.Fatalf("expected CoercionError, got %v", err)
	}

	want := []string{"Store_Type", "Product_MRP", "Store_Establishment_Year"}
	if !slices.Equal(coerceErr.Columns, want) {
		t.Errorf("Columns = %v, want %v", coerceErr.Columns, want)
	}
	if coerceErr.Kind() != KindCoercionFailed {
		t.Errorf("Kind() = %q", coerceErr.Kind())
	}
}

func TestToCanonicalRows_WithoutNormalization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	tr := NewTransformer(Options{}, logger)

	rows, err := tr.ToCanonicalRows([]models.RawRow{scenarioRecord()})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].ProductSugarContent != "reg" {
		t.Errorf("expected alias to be kept, got %q", rows[0].ProductSugarContent)
	}
}

func TestToCanonicalRows_Empty(t *testing.T) {
	tr := newTestTransformer()
	rows, err := tr.ToCanonicalRows(nil)
	if err != nil || len(rows) != 0 {
		t.Errorf("got %v, %v", rows, err)
	}
}
