// Package templates holds the templ components of the web UI. Edit the
// .templ files and run `templ generate`; the *_templ.go files are generated.
package templates

import (
	"fmt"
	"strconv"
	"strings"

	"superkart/internal/models"
)

//go:generate templ generate

// FormField is one input of the prediction form.
type FormField struct {
	Name    string
	Signal  string
	Label   string
	Options []string
	Numeric bool
	Integer bool
	Min     float64
	Max     float64
	Step    float64
	Default string
	Note    string
}

type PageData struct {
	Title          string
	Fields         []FormField
	BatchEnabled   bool
	MaxBatchRows   int
	SchemaFallback bool
	UpstreamDown   bool
}

// ErrorView is what the UI knows about a failed call.
type ErrorView struct {
	Kind     string
	Message  string
	Rows     []string
	Omitted  int
	Upstream bool
}

// initialSignals renders the data-signals object literal seeding every
// form field with its default.
func initialSignals(fields []FormField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Numeric {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Signal, f.Default))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Signal, strconv.Quote(f.Default)))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func batchLimit(maxRows int) string {
	if maxRows <= 0 {
		return ""
	}
	return fmt.Sprintf(", up to %d rows", maxRows)
}

func batchStatistics(res models.BatchPredictionResult) models.Statistics {
	if res.Statistics != nil {
		return *res.Statistics
	}
	return models.ComputeStatistics(res.Predictions)
}

func firstRows(predictions []float64, limit int) []float64 {
	if limit > 0 && len(predictions) > limit {
		return predictions[:limit]
	}
	return predictions
}

// Money formats v as a dollar amount with thousands separators.
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var out []byte
	for i := range len(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	if neg {
		return "-$" + string(out) + frac
	}
	return "$" + string(out) + frac
}
