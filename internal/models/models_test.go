package models

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"testing"
)

func sampleRow() FeatureRow {
	return FeatureRow{
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
}

func TestFeatureRow_Values(t *testing.T) {
	got := sampleRow().Values()
	want := []any{"Meat", "Supermarket Type1", "Tier 1", "Small", "Regular", 10.0, 200.0, 0.2, 2010}

	if !slices.Equal(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestFeatureRow_JSONFieldOrder(t *testing.T) {
	data, err := json.Marshal(sampleRow())
	if err != nil {
		t.Fatal(err)
	}

	order := []string{
		`"Product_Type"`, `"Store_Type"`, `"Store_Location_City_Type"`, `"Store_Size"`,
		`"Product_Sugar_Content"`, `"Product_Weight"`, `"Product_MRP"`,
		`"Product_Allocated_Area"`, `"Store_Establishment_Year"`,
	}
	last := -1
	for _, key := range order {
		idx := strings.Index(string(data), key)
		if idx <= last {
			t.Fatalf("key %s out of canonical order in %s", key, data)
		}
		last = idx
	}
}

func TestFeatureRow_GetUnknown(t *testing.T) {
	if _, ok := sampleRow().Get("Item_Identifier"); ok {
		t.Error("expected unknown field to be absent")
	}
}

func TestFeatureRow_Raw(t *testing.T) {
	raw := sampleRow().Raw()
	if len(raw) != 9 {
		t.Fatalf("expected 9 keys, got %d", len(raw))
	}
	if raw["Store_Establishment_Year"] != 2010 {
		t.Errorf("unexpected year %v", raw["Store_Establishment_Year"])
	}
}

func TestNewBatch_Columns(t *testing.T) {
	b := NewBatch([]RawRow{
		{"b": 1, "a": 2},
		{"a": 3, "c": nil},
	})

	if want := []string{"a", "b", "c"}; !slices.Equal(b.Columns, want) {
		t.Errorf("Columns = %v, want %v", b.Columns, want)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if !b.HasColumn("c") || b.HasColumn("d") {
		t.Error("HasColumn reported wrong membership")
	}
}

func TestComputeStatistics(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Statistics
	}{
		{
			name:   "empty",
			values: nil,
			want:   Statistics{},
		},
		{
			name:   "single",
			values: []float64{42},
			want:   Statistics{Mean: 42, Median: 42, Std: 0, Min: 42, Max: 42, Sum: 42},
		},
		{
			name:   "odd",
			values: []float64{3, 1, 2},
			want:   Statistics{Mean: 2, Median: 2, Std: math.Sqrt(2.0 / 3.0), Min: 1, Max: 3, Sum: 6},
		},
		{
			name:   "even",
			values: []float64{4, 1, 3, 2},
			want:   Statistics{Mean: 2.5, Median: 2.5, Std: math.Sqrt(1.25), Min: 1, Max: 4, Sum: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatistics(tt.values)
			if !closeTo(got.Mean, tt.want.Mean) || !closeTo(got.Median, tt.want.Median) ||
				!closeTo(got.Std, tt.want.Std) || got.Min != tt.want.Min ||
				got.Max != tt.want.Max || !closeTo(got.Sum, tt.want.Sum) {
				t.Errorf("ComputeStatistics(%v) = %+v, want %+v", tt.values, got, tt.want)
			}
		})
	}
}

func TestComputeStatistics_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeStatistics(values)
	if !slices.Equal(values, []float64{3, 1, 2}) {
		t.Errorf("input was reordered: %v", values)
	}
}

func TestBatchPredictionResult_WithStatistics(t *testing.T) {
	r := BatchPredictionResult{Predictions: []float64{1, 2, 3}, TotalRecords: 3}
	withStats := r.WithStatistics()

	if r.Statistics != nil {
		t.Error("WithStatistics must not modify the receiver")
	}
	if withStats.Statistics == nil || withStats.Statistics.Sum != 6 {
		t.Errorf("unexpected statistics: %+v", withStats.Statistics)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
