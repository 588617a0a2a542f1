package validate

import (
	"slices"

	"superkart/internal/coerce"
	"superkart/internal/models"
	"superkart/internal/schema"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Report is the per-batch validation outcome.
type Report struct {
	Status      Status   `json:"status"`
	TotalRows   int      `json:"total_rows"`
	ValidRows   int      `json:"valid_rows"`
	InvalidRows int      `json:"invalid_rows"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
}

func (r Report) OK() bool {
	return r.Status == StatusSuccess
}

// QualitySummary counts data quality problems per field without judging the
// batch as a whole.
type QualitySummary struct {
	TotalRows                int            `json:"total_rows"`
	ColumnCount              int            `json:"column_count"`
	MissingColumns           []string       `json:"missing_columns"`
	ExtraColumns             []string       `json:"extra_columns"`
	NullCounts               map[string]int `json:"null_counts"`
	InvalidCategoricalCounts map[string]int `json:"invalid_categorical_counts"`
	OutOfRangeCounts         map[string]int `json:"out_of_range_counts"`
	NonNumericCounts         map[string]int `json:"non_numeric_counts"`
}

// SummarizeQuality runs the batch checks over b and tallies the findings.
// It never fails; absent columns are listed and skipped.
func (v *Validator) SummarizeQuality(b models.Batch) QualitySummary {
	summary := QualitySummary{
		TotalRows:                b.Len(),
		ColumnCount:              len(b.Columns),
		MissingColumns:           []string{},
		ExtraColumns:             []string{},
		NullCounts:               map[string]int{},
		InvalidCategoricalCounts: map[string]int{},
		OutOfRangeCounts:         map[string]int{},
		NonNumericCounts:         map[string]int{},
	}

	present := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		present[c] = true
		if _, ok := schema.Lookup(c); !ok {
			summary.ExtraColumns = append(summary.ExtraColumns, c)
		}
	}
	for _, name := range schema.Required() {
		if !present[name] {
			summary.MissingColumns = append(summary.MissingColumns, name)
		}
	}
	slices.Sort(summary.ExtraColumns)

	for _, row := range b.Rows {
		for _, f := range schema.Fields() {
			if !present[f.Name] {
				continue
			}
			raw := row[f.Name]
			if coerce.IsNull(raw) {
				summary.NullCounts[f.Name]++
				continue
			}

			if f.IsCategorical() {
				if !f.Allows(v.categorical(f.Name, raw)) {
					summary.InvalidCategoricalCounts[f.Name]++
				}
				continue
			}

			value, err := coerce.Float(raw)
			if err != nil {
				summary.NonNumericCounts[f.Name]++
				continue
			}
			if !f.Range.Contains(value) {
				summary.OutOfRangeCounts[f.Name]++
			}
		}
	}

	v.logger.Debug("quality summary computed",
		"total_rows", summary.TotalRows,
		"missing_columns", len(summary.MissingColumns),
	)
	return summary
}
