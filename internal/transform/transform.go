// Package transform turns raw records into typed feature rows in canonical
// order. It guarantees types and shape only; domain and range checks belong
// to the validator, and both must run.
package transform

import (
	"fmt"
	"log/slog"
	"strings"

	"superkart/internal/coerce"
	"superkart/internal/models"
	"superkart/internal/normalize"
	"superkart/internal/schema"
)

const KindCoercionFailed = "CoercionFailed"

// CoercionError names every column that held at least one value which
// could not be coerced to the schema type. It is aggregated per column, not
// per row, to stay compact for wide batches.
type CoercionError struct {
	Columns []string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("Missing or invalid values found in columns: %v", e.Columns)
}

func (e *CoercionError) Kind() string { return KindCoercionFailed }

func (e *CoercionError) Meta() map[string]any {
	return map[string]any{"columns": e.Columns}
}

type Options struct {
	// NormalizeSugarContent maps sugar content aliases before coercion.
	NormalizeSugarContent bool
}

type Transformer struct {
	opts   Options
	logger *slog.Logger
}

func NewTransformer(opts Options, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{opts: opts, logger: logger}
}

// ToCanonicalRows coerces every row into a FeatureRow. Values that cannot
// be coerced are recorded per column; if any exist the whole call fails
// with a *CoercionError.
func (t *Transformer) ToCanonicalRows(rows []models.RawRow) ([]models.FeatureRow, error) {
	out := make([]models.FeatureRow, len(rows))
	bad := make(map[string]bool)

	for i, raw := range rows {
		out[i] = t.canonicalize(raw, bad)
	}

	if len(bad) > 0 {
		var columns []string
		for _, name := range schema.Names() {
			if bad[name] {
				columns = append(columns, name)
			}
		}
		t.logger.Warn("coercion failed", "columns", columns, "rows", len(rows))
		return nil, &CoercionError{Columns: columns}
	}

	return out, nil
}

func (t *Transformer) canonicalize(raw models.RawRow, bad map[string]bool) models.FeatureRow {
	text := func(name string) string {
		v, ok := raw[name]
		if !ok || coerce.IsNull(v) {
			bad[name] = true
			return ""
		}
		s := coerce.String(v)
		if t.opts.NormalizeSugarContent {
			s = normalize.Field(name, s)
		}
		return strings.TrimSpace(s)
	}
	float := func(name string) float64 {
		f, err := coerce.Float(raw[name])
		if err != nil {
			bad[name] = true
		}
		return f
	}
	integer := func(name string) int {
		n, err := coerce.Int(raw[name])
		if err != nil {
			bad[name] = true
		}
		return n
	}

	return models.FeatureRow{
		ProductType:            text(schema.ProductType),
		StoreType:              text(schema.StoreType),
		StoreLocationCityType:  text(schema.StoreLocationCityType),
		StoreSize:              text(schema.StoreSize),
		ProductSugarContent:    text(schema.ProductSugarContent),
		ProductWeight:          float(schema.ProductWeight),
		ProductMRP:             float(schema.ProductMRP),
		ProductAllocatedArea:   float(schema.ProductAllocatedArea),
		StoreEstablishmentYear: integer(schema.StoreEstablishedYear),
	}
}
