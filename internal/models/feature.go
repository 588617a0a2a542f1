package models

import (
	"slices"
	"sort"

	"superkart/internal/schema"
)

// RawRow is one untyped input record keyed by field name, as decoded from a
// JSON object or a CSV line. A nil value means the field was present but null.
type RawRow map[string]any

// Batch is an ordered collection of raw rows together with the columns they
// were decoded with.
type Batch struct {
	Columns []string
	Rows    []RawRow
}

// NewBatch builds a batch from decoded rows, taking the union of their keys
// as the column set.
func NewBatch(rows []RawRow) Batch {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}
	return Batch{Columns: columns, Rows: rows}
}

func (b Batch) Len() int {
	return len(b.Rows)
}

func (b Batch) HasColumn(name string) bool {
	return slices.Contains(b.Columns, name)
}

// FeatureRow is a typed, canonical observation. Field order matches the
// canonical schema order, which encoding/json preserves on output.
type FeatureRow struct {
	ProductType            string  `json:"Product_Type"`
	StoreType              string  `json:"Store_Type"`
	StoreLocationCityType  string  `json:"Store_Location_City_Type"`
	StoreSize              string  `json:"Store_Size"`
	ProductSugarContent    string  `json:"Product_Sugar_Content"`
	ProductWeight          float64 `json:"Product_Weight"`
	ProductMRP             float64 `json:"Product_MRP"`
	ProductAllocatedArea   float64 `json:"Product_Allocated_Area"`
	StoreEstablishmentYear int     `json:"Store_Establishment_Year"`
}

// Get returns the value of the named field.
func (r FeatureRow) Get(name string) (any, bool) {
	switch name {
	case schema.ProductType:
		return r.ProductType, true
	case schema.StoreType:
		return r.StoreType, true
	case schema.StoreLocationCityType:
		return r.StoreLocationCityType, true
	case schema.StoreSize:
		return r.StoreSize, true
	case schema.ProductSugarContent:
		return r.ProductSugarContent, true
	case schema.ProductWeight:
		return r.ProductWeight, true
	case schema.ProductMRP:
		return r.ProductMRP, true
	case schema.ProductAllocatedArea:
		return r.ProductAllocatedArea, true
	case schema.StoreEstablishedYear:
		return r.StoreEstablishmentYear, true
	}
	return nil, false
}

// Values returns the field values in canonical order.
func (r FeatureRow) Values() []any {
	names := schema.Names()
	out := make([]any, len(names))
	for i, name := range names {
		out[i], _ = r.Get(name)
	}
	return out
}

// Raw converts the row back into an untyped record.
func (r FeatureRow) Raw() RawRow {
	raw := make(RawRow, len(schema.Names()))
	for _, name := range schema.Names() {
		raw[name], _ = r.Get(name)
	}
	return raw
}
