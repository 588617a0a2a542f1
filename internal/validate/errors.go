package validate

import (
	"fmt"
	"strings"

	"superkart/internal/coerce"
)

// Error kinds reported to clients.
const (
	KindMissingFields         = "MissingFields"
	KindMissingColumns        = "MissingColumns"
	KindEmptyBatch            = "EmptyBatch"
	KindInvalidCategorical    = "InvalidCategorical"
	KindNotNumeric            = "NotNumeric"
	KindOutOfRange            = "OutOfRange"
	KindBatchValidationFailed = "BatchValidationFailed"
)

// maxReportedRows caps the number of row errors carried in a batch failure
// message.
const maxReportedRows = 10

// Error is implemented by every schema violation. Meta carries the
// structured detail (field, value, constraint) for machine clients.
type Error interface {
	error
	Kind() string
	Meta() map[string]any
}

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("Missing required fields: %v", e.Fields)
}

func (e *MissingFieldsError) Kind() string { return KindMissingFields }

func (e *MissingFieldsError) Meta() map[string]any {
	return map[string]any{"fields": e.Fields}
}

type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Missing required columns: %v", e.Columns)
}

func (e *MissingColumnsError) Kind() string { return KindMissingColumns }

func (e *MissingColumnsError) Meta() map[string]any {
	return map[string]any{"columns": e.Columns}
}

type emptyBatchError struct{}

func (emptyBatchError) Error() string        { return "Batch is empty" }
func (emptyBatchError) Kind() string         { return KindEmptyBatch }
func (emptyBatchError) Meta() map[string]any { return nil }

// ErrEmptyBatch is returned when a batch has no rows.
var ErrEmptyBatch Error = emptyBatchError{}

type InvalidCategoricalError struct {
	Field   string
	Value   any
	Allowed []string
}

func (e *InvalidCategoricalError) Error() string {
	return fmt.Sprintf("Invalid %s: %s. Must be one of %v", e.Field, coerce.FormatValue(e.Value), e.Allowed)
}

func (e *InvalidCategoricalError) Kind() string { return KindInvalidCategorical }

func (e *InvalidCategoricalError) Meta() map[string]any {
	return map[string]any{"field": e.Field, "value": e.Value, "allowed": e.Allowed}
}

type NotNumericError struct {
	Field string
	Value any
}

func (e *NotNumericError) Error() string {
	return fmt.Sprintf("%s must be a number, got %s", e.Field, coerce.FormatValue(e.Value))
}

func (e *NotNumericError) Kind() string { return KindNotNumeric }

func (e *NotNumericError) Meta() map[string]any {
	return map[string]any{"field": e.Field, "value": e.Value}
}

type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %s and %s, got %s",
		e.Field, coerce.String(e.Min), coerce.String(e.Max), coerce.String(e.Value))
}

func (e *OutOfRangeError) Kind() string { return KindOutOfRange }

func (e *OutOfRangeError) Meta() map[string]any {
	return map[string]any{"field": e.Field, "value": e.Value, "min": e.Min, "max": e.Max}
}

// RowError lists every violation found in one batch row. Row is 1-indexed.
type RowError struct {
	Row        int      `json:"row"`
	Violations []string `json:"violations"`
}

func (r RowError) String() string {
	return fmt.Sprintf("Row %d: %s", r.Row, strings.Join(r.Violations, "; "))
}

// BatchError is returned when one or more rows of a batch fail validation.
// Rows holds every failing row in batch order; the message only carries the
// first maxReportedRows of them.
type BatchError struct {
	TotalRows int
	Rows      []RowError
}

func (e *BatchError) Error() string {
	var b strings.Builder
	b.WriteString("Validation failed for the following rows:\n")
	b.WriteString(strings.Join(e.Shown(), "\n"))
	if n := e.Omitted(); n > 0 {
		fmt.Fprintf(&b, "\n... and %d more errors", n)
	}
	return b.String()
}

func (e *BatchError) Kind() string { return KindBatchValidationFailed }

func (e *BatchError) Meta() map[string]any {
	return map[string]any{
		"total_rows":   e.TotalRows,
		"invalid_rows": len(e.Rows),
		"row_errors":   e.Shown(),
		"omitted":      e.Omitted(),
	}
}

// Shown returns the row error strings included in the message.
func (e *BatchError) Shown() []string {
	n := min(len(e.Rows), maxReportedRows)
	out := make([]string, n)
	for i := range n {
		out[i] = e.Rows[i].String()
	}
	return out
}

// Omitted returns how many failing rows were left out of the message.
func (e *BatchError) Omitted() int {
	return max(len(e.Rows)-maxReportedRows, 0)
}
