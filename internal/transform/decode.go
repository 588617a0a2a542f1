package transform

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"superkart/internal/models"
)

type emptyInputError struct{}

func (emptyInputError) Error() string        { return "Empty CSV file" }
func (emptyInputError) Kind() string         { return "EmptyBatch" }
func (emptyInputError) Meta() map[string]any { return nil }

// ErrEmptyInput is returned when an upload has no header line at all.
var ErrEmptyInput = emptyInputError{}

// DecodeError reports input that is not well-formed CSV or JSON.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s input: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Kind() string { return "DecodeFailed" }

func (e *DecodeError) Meta() map[string]any {
	return map[string]any{"format": e.Format}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// nullCells are the cell spellings read as missing values, matched
// case-sensitively after trimming.
var nullCells = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// ParseCSV reads a header line followed by data rows. Empty cells and the
// usual null spellings (NA, NaN, null, ...) decode as null; short rows are
// padded with nulls.
func ParseCSV(r io.Reader) (models.Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Batch{}, &DecodeError{Format: "csv", Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Batch{}, ErrEmptyInput
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return models.Batch{}, &DecodeError{Format: "csv", Err: err}
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows []models.RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Batch{}, &DecodeError{Format: "csv", Err: err}
		}
		if isBlank(record) {
			continue
		}

		row := make(models.RawRow, len(columns))
		for i, col := range columns {
			if i >= len(record) || nullCells[strings.TrimSpace(record[i])] {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}

	return models.Batch{Columns: columns, Rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// DecodeRecord reads one JSON object. Numbers are kept as json.Number so
// integers and floats survive untouched until coercion.
func DecodeRecord(r io.Reader) (models.RawRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var row models.RawRow
	if err := dec.Decode(&row); err != nil {
		return nil, &DecodeError{Format: "json", Err: err}
	}
	if row == nil {
		return nil, &DecodeError{Format: "json", Err: errors.New("expected a JSON object")}
	}
	return row, nil
}

// DecodeBatch reads {"data": [...]} into a batch.
func DecodeBatch(r io.Reader) (models.Batch, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload struct {
		Data []models.RawRow `json:"data"`
	}
	if err := dec.Decode(&payload); err != nil {
		return models.Batch{}, &DecodeError{Format: "json", Err: err}
	}
	return models.NewBatch(payload.Data), nil
}
