// Package validate checks raw records and batches against the feature schema.
//
// Single records fail fast on the first violation. Batches are checked row by
// row and every violation of every row is collected, so a caller uploading a
// file gets one complete report instead of a fix-one-resubmit loop.
package validate

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"superkart/internal/coerce"
	"superkart/internal/models"
	"superkart/internal/normalize"
	"superkart/internal/schema"
)

const (
	chunkSize  = 500
	maxWorkers = 8
)

type Options struct {
	// NormalizeSugarContent accepts sugar content aliases. It must match the
	// transformer setting so every accepted value is canonical after transform.
	NormalizeSugarContent bool
}

type Validator struct {
	opts   Options
	logger *slog.Logger
}

func NewValidator(opts Options, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{opts: opts, logger: logger}
}

// categorical returns the value compared against the domain of field name.
func (v *Validator) categorical(name string, raw any) string {
	s := coerce.String(raw)
	if v.opts.NormalizeSugarContent {
		return normalize.Field(name, s)
	}
	return strings.TrimSpace(s)
}

// ValidateOne checks a single record and returns the first violation found.
func (v *Validator) ValidateOne(record models.RawRow) error {
	var missing []string
	for _, name := range schema.Required() {
		if _, ok := record[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	for _, f := range schema.Categorical() {
		raw := record[f.Name]
		if coerce.IsNull(raw) || !f.Allows(v.categorical(f.Name, raw)) {
			return &InvalidCategoricalError{Field: f.Name, Value: raw, Allowed: f.Allowed()}
		}
	}

	for _, f := range schema.Numeric() {
		raw := record[f.Name]
		value, err := coerce.Float(raw)
		if err != nil {
			return &NotNumericError{Field: f.Name, Value: raw}
		}
		if !f.Range.Contains(value) {
			return &OutOfRangeError{Field: f.Name, Value: value, Min: f.Range.Min, Max: f.Range.Max}
		}
	}

	return nil
}

// ValidateBatch checks every row of b. Structural problems (missing columns,
// no rows) abort before any row is inspected. The returned report is always
// populated; the error is a *BatchError when any row failed.
func (v *Validator) ValidateBatch(b models.Batch) (Report, error) {
	report := Report{TotalRows: b.Len(), Errors: []string{}, Warnings: []string{}}

	if err := checkStructure(b); err != nil {
		report.Status = StatusFailed
		report.Errors = append(report.Errors, err.Error())
		report.InvalidRows = report.TotalRows
		return report, err
	}

	rowErrors := v.checkRows(b.Rows)

	for _, re := range rowErrors {
		report.Errors = append(report.Errors, re.String())
	}
	report.InvalidRows = len(rowErrors)
	report.ValidRows = report.TotalRows - report.InvalidRows

	if len(rowErrors) > 0 {
		report.Status = StatusFailed
		v.logger.Warn("batch validation failed",
			"total_rows", report.TotalRows,
			"invalid_rows", report.InvalidRows,
		)
		return report, &BatchError{TotalRows: report.TotalRows, Rows: rowErrors}
	}

	report.Status = StatusSuccess
	v.logger.Info("batch validated", "records", report.TotalRows)
	return report, nil
}

// Report validates b and returns the outcome without failing.
func (v *Validator) Report(b models.Batch) Report {
	report, _ := v.ValidateBatch(b)
	return report
}

// DescribeDomains returns the discoverable description of every field.
func (v *Validator) DescribeDomains() map[string]schema.Description {
	return schema.Describe()
}

func checkStructure(b models.Batch) error {
	var missing []string
	for _, name := range schema.Required() {
		if !b.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	if b.Len() == 0 {
		return ErrEmptyBatch
	}
	return nil
}

// checkRows validates rows in parallel chunks. Results are written by index
// so the returned errors keep batch order.
func (v *Validator) checkRows(rows []models.RawRow) []RowError {
	results := make([][]string, len(rows))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				results[i] = v.checkRow(rows[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []RowError
	for i, violations := range results {
		if len(violations) > 0 {
			out = append(out, RowError{Row: i + 1, Violations: violations})
		}
	}
	return out
}

// checkRow returns every violation in row. Null values are reported once by
// the final null pass rather than as domain or range failures.
func (v *Validator) checkRow(row models.RawRow) []string {
	var violations []string

	for _, f := range schema.Categorical() {
		raw := row[f.Name]
		if coerce.IsNull(raw) {
			continue
		}
		if !f.Allows(v.categorical(f.Name, raw)) {
			violations = append(violations, fmt.Sprintf("Invalid %s: %s", f.Name, coerce.String(raw)))
		}
	}

	for _, f := range schema.Numeric() {
		raw := row[f.Name]
		if coerce.IsNull(raw) {
			continue
		}
		value, err := coerce.Float(raw)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s must be numeric, got: %s", f.Name, coerce.String(raw)))
			continue
		}
		if !f.Range.Contains(value) {
			violations = append(violations, fmt.Sprintf("%s=%s is out of range [%s, %s]",
				f.Name, coerce.String(value), coerce.String(f.Range.Min), coerce.String(f.Range.Max)))
		}
	}

	var nulls []string
	for _, name := range schema.Required() {
		if coerce.IsNull(row[name]) {
			nulls = append(nulls, name)
		}
	}
	if len(nulls) > 0 {
		violations = append(violations, fmt.Sprintf("Null values in: %v", nulls))
	}

	return violations
}
