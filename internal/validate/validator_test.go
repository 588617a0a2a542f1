package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"

	"superkart/internal/models"
)

func newTestValidator() *Validator {
	return NewValidator(Options{NormalizeSugarContent: true}, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
}

func validRecord() models.RawRow {
	return models.RawRow{
		"Product_Type":             "Meat",
		"Store_Type":               "Supermarket Type1",
		"Store_Location_City_Type": "Tier 1",
		"Store_Size":               "Small",
		"Product_Sugar_Content":    "No Sugar",
		"Product_Weight":           10.0,
		"Product_MRP":              200.0,
		"Product_Allocated_Area":   0.2,
		"Store_Establishment_Year": 2010,
	}
}

func validBatch() models.Batch {
	rows := []models.RawRow{
		validRecord(),
		{
			"Product_Type":             "Dairy",
			"Store_Type":               "Grocery Store",
			"Store_Location_City_Type": "Tier 2",
			"Store_Size":               "Medium",
			"Product_Sugar_Content":    "Low Sugar",
			"Product_Weight":           "15.0",
			"Product_MRP":              "150.0",
			"Product_Allocated_Area":   "0.3",
			"Store_Establishment_Year": "2005",
		},
		{
			"Product_Type":             "Snack Foods",
			"Store_Type":               "Supermarket Type2",
			"Store_Location_City_Type": "Tier 3",
			"Store_Size":               "High",
			"Product_Sugar_Content":    "Regular",
			"Product_Weight":           20.0,
			"Product_MRP":              300.0,
			"Product_Allocated_Area":   0.4,
			"Store_Establishment_Year": 2015,
		},
	}
	return models.NewBatch(rows)
}

func TestValidateOne_Valid(t *testing.T) {
	v := newTestValidator()
	if err := v.ValidateOne(validRecord()); err != nil {
		t.Errorf("ValidateOne() unexpected error: %v", err)
	}
}

func TestValidateOne_SugarAlias(t *testing.T) {
	v := newTestValidator()
	record := validRecord()
	record["Product_Sugar_Content"] = "reg"

	if err := v.ValidateOne(record); err != nil {
		t.Errorf("expected alias to validate, got %v", err)
	}
}

func TestValidateOne_AliasRejectedWithoutNormalization(t *testing.T) {
	v := NewValidator(Options{}, nil)
	record := validRecord()
	record["Product_Sugar_Content"] = "reg"

	var invalid *InvalidCategoricalError
	if err := v.ValidateOne(record); !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidCategoricalError, got %v", err)
	}
	if invalid.Field != "Product_Sugar_Content" {
		t.Errorf("Field = %q", invalid.Field)
	}

	record["Product_Sugar_Content"] = " Regular "
	if err := v.ValidateOne(record); err != nil {
		t.Errorf("canonical value with padding should pass, got %v", err)
	}
}

func TestValidateOne_JSONNumbers(t *testing.T) {
	v := newTestValidator()
	record := validRecord()
	record["Product_Weight"] = json.Number("12.5")
	record["Store_Establishment_Year"] = json.Number("1999")

	if err := v.ValidateOne(record); err != nil {
		t.Errorf("expected json.Number values to validate, got %v", err)
	}
}

func TestValidateOne_MissingFields(t *testing.T) {
	v := newTestValidator()
	err := v.ValidateOne(models.RawRow{
		"Product_Type": "Meat",
		"Store_Type":   "Supermarket Type1",
	})

	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}

	want := []string{
		"Store_Location_City_Type", "Store_Size", "Product_Sugar_Content",
		"Product_Weight", "Product_MRP", "Product_Allocated_Area", "Store_Establishment_Year",
	}
	if !slices.Equal(missing.Fields, want) {
		t.Errorf("Fields = %v, want %v", missing.Fields, want)
	}
	if !strings.Contains(err.Error(), "Missing required fields") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidateOne_Failures(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     any
		wantKind  string
		wantMsg   string
		checkMeta func(t *testing.T, err error)
	}{
		{
			name:     "invalid product type",
			field:    "Product_Type",
			value:    "Invalid Type",
			wantKind: KindInvalidCategorical,
			wantMsg:  "Invalid Product_Type: Invalid Type",
			checkMeta: func(t *testing.T, err error) {
				var e *InvalidCategoricalError
				if !errors.As(err, &e) || e.Field != "Product_Type" || e.Value != "Invalid Type" {
					t.Errorf("unexpected error detail: %#v", err)
				}
				if len(e.Allowed) != 16 {
					t.Errorf("expected 16 allowed values, got %d", len(e.Allowed))
				}
			},
		},
		{
			name:     "invalid store type",
			field:    "Store_Type",
			value:    "Invalid Store",
			wantKind: KindInvalidCategorical,
			wantMsg:  "Invalid Store_Type",
		},
		{
			name:     "invalid sugar content",
			field:    "Product_Sugar_Content",
			value:    "sugary",
			wantKind: KindInvalidCategorical,
			wantMsg:  "Invalid Product_Sugar_Content: sugary",
		},
		{
			name:     "null categorical",
			field:    "Store_Size",
			value:    nil,
			wantKind: KindInvalidCategorical,
			wantMsg:  "Invalid Store_Size: null",
		},
		{
			name:     "weight out of range",
			field:    "Product_Weight",
			value:    100.0,
			wantKind: KindOutOfRange,
			wantMsg:  "Product_Weight must be between 0 and 50, got 100",
			checkMeta: func(t *testing.T, err error) {
				var e *OutOfRangeError
				if !errors.As(err, &e) {
					t.Fatalf("expected OutOfRangeError, got %T", err)
				}
				if e.Field != "Product_Weight" || e.Value != 100.0 || e.Min != 0.0 || e.Max != 50.0 {
					t.Errorf("unexpected detail: %+v", e)
				}
			},
		},
		{
			name:     "mrp out of range",
			field:    "Product_MRP",
			value:    2000.0,
			wantKind: KindOutOfRange,
			wantMsg:  "Product_MRP must be between",
		},
		{
			name:     "year out of range",
			field:    "Store_Establishment_Year",
			value:    1900,
			wantKind: KindOutOfRange,
			wantMsg:  "Store_Establishment_Year must be between",
		},
		{
			name:     "weight not numeric",
			field:    "Product_Weight",
			value:    "heavy",
			wantKind: KindNotNumeric,
			wantMsg:  "Product_Weight must be a number, got heavy",
		},
		{
			name:     "null numeric",
			field:    "Product_MRP",
			value:    nil,
			wantKind: KindNotNumeric,
			wantMsg:  "Product_MRP must be a number, got null",
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			record[tt.field] = tt.value

			err := v.ValidateOne(record)
			var verr Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", verr.Kind(), tt.wantKind)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
			if verr.Meta()["field"] != tt.field {
				t.Errorf("Meta field = %v, want %s", verr.Meta()["field"], tt.field)
			}
			if tt.checkMeta != nil {
				tt.checkMeta(t, err)
			}
		})
	}
}

func TestValidateOne_BoundaryValuesAccepted(t *testing.T) {
	v := newTestValidator()
	bounds := map[string][2]any{
		"Product_Weight":           {0.0, 50.0},
		"Product_MRP":              {0.0, 1000.0},
		"Product_Allocated_Area":   {0.0, 1.0},
		"Store_Establishment_Year": {1950, 2025},
	}

	for field, pair := range bounds {
		for _, value := range pair {
			record := validRecord()
			record[field] = value
			if err := v.ValidateOne(record); err != nil {
				t.Errorf("%s=%v should be accepted, got %v", field, value, err)
			}
		}
	}
}

func TestValidateOne_FailFast(t *testing.T) {
	v := newTestValidator()
	record := validRecord()
	record["Product_Type"] = "Invalid Type"
	record["Product_Weight"] = 100.0
	record["Store_Establishment_Year"] = 1900

	err := v.ValidateOne(record)
	var cat *InvalidCategoricalError
	if !errors.As(err, &cat) {
		t.Fatalf("expected the first failing field to surface, got %v", err)
	}
	if strings.Contains(err.Error(), "Product_Weight") {
		t.Error("single-record validation must report only one failure")
	}
}

func TestValidateBatch_Valid(t *testing.T) {
	v := newTestValidator()
	report, err := v.ValidateBatch(validBatch())
	if err != nil {
		t.Fatalf("ValidateBatch() unexpected error: %v", err)
	}
	if !report.OK() || report.TotalRows != 3 || report.ValidRows != 3 || report.InvalidRows != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}
}

func TestValidateBatch_MissingColumns(t *testing.T) {
	v := newTestValidator()
	b := validBatch()
	for _, row := range b.Rows {
		delete(row, "Product_MRP")
		row["Product_Type"] = "Invalid Type"
	}
	b = models.NewBatch(b.Rows)

	_, err := v.ValidateBatch(b)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if !slices.Equal(missing.Columns, []string{"Product_MRP"}) {
		t.Errorf("Columns = %v, want [Product_MRP]", missing.Columns)
	}
	if strings.Contains(err.Error(), "Row") {
		t.Error("no row-level checks should run when columns are missing")
	}
}

func TestValidateBatch_Empty(t *testing.T) {
	v := newTestValidator()
	b := models.Batch{Columns: validBatch().Columns}

	_, err := v.ValidateBatch(b)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestValidateBatch_NoColumnsAtAll(t *testing.T) {
	v := newTestValidator()
	_, err := v.ValidateBatch(models.Batch{})

	var missing *MissingColumnsError
	if !errors.As(err, &missing) || len(missing.Columns) != 9 {
		t.Fatalf("expected all nine columns missing, got %v", err)
	}
}

func TestValidateBatch_CollectsAllViolationsPerRow(t *testing.T) {
	v := newTestValidator()
	b := validBatch()
	b.Rows[1]["Product_Type"] = "Invalid Type"
	b.Rows[1]["Store_Establishment_Year"] = 1900

	report, err := v.ValidateBatch(b)
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}

	if len(batchErr.Rows) != 1 || batchErr.Rows[0].Row != 2 {
		t.Fatalf("expected only row 2 flagged, got %+v", batchErr.Rows)
	}
	if len(batchErr.Rows[0].Violations) != 2 {
		t.Errorf("expected 2 violations, got %v", batchErr.Rows[0].Violations)
	}

	msg := err.Error()
	for _, want := range []string{"Row 2:", "Invalid Product_Type: Invalid Type", "Store_Establishment_Year=1900 is out of range [1950, 2025]"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if strings.Contains(msg, "Row 1:") || strings.Contains(msg, "Row 3:") {
		t.Errorf("valid rows must not be flagged: %q", msg)
	}

	if report.InvalidRows != 1 || report.ValidRows != 2 || report.OK() {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestValidateBatch_ThreeViolationsOneMessage(t *testing.T) {
	v := newTestValidator()
	b := models.NewBatch([]models.RawRow{{
		"Product_Type":             "Invalid Type",
		"Store_Type":               "Invalid Store",
		"Store_Location_City_Type": "Tier 1",
		"Store_Size":               "Small",
		"Product_Sugar_Content":    "No Sugar",
		"Product_Weight":           100.0,
		"Product_MRP":              2000.0,
		"Product_Allocated_Area":   0.2,
		"Store_Establishment_Year": 1900,
	}})

	_, err := v.ValidateBatch(b)
	if err == nil {
		t.Fatal("expected failure")
	}
	msg := err.Error()
	for _, want := range []string{"Invalid Product_Type", "Invalid Store_Type", "out of range"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if n := strings.Count(msg, "Row 1:"); n != 1 {
		t.Errorf("expected violations combined into one row entry, got %d", n)
	}
}

func TestValidateBatch_NullValues(t *testing.T) {
	v := newTestValidator()
	b := validBatch()
	b.Rows[0]["Product_Weight"] = nil

	_, err := v.ValidateBatch(b)
	if err == nil || !strings.Contains(err.Error(), "Null values in: [Product_Weight]") {
		t.Fatalf("expected null value report, got %v", err)
	}
	if strings.Contains(err.Error(), "Product_Weight must be numeric") {
		t.Error("null values must not also be reported as non-numeric")
	}
}

func TestValidateBatch_NormalizesSugarContent(t *testing.T) {
	v := newTestValidator()
	b := validBatch()
	b.Rows[0]["Product_Sugar_Content"] = "LF"
	b.Rows[1]["Product_Sugar_Content"] = " reg "

	if _, err := v.ValidateBatch(b); err != nil {
		t.Errorf("expected aliases to pass batch validation, got %v", err)
	}
}

func TestValidateBatch_AliasRejectedWithoutNormalization(t *testing.T) {
	v := NewValidator(Options{}, nil)
	b := validBatch()
	b.Rows[1]["Product_Sugar_Content"] = "LF"

	report, err := v.ValidateBatch(b)
	if err == nil {
		t.Fatal("expected alias to fail batch validation")
	}
	if report.InvalidRows != 1 {
		t.Errorf("InvalidRows = %d, want 1", report.InvalidRows)
	}
}

func TestValidateBatch_NonNumeric(t *testing.T) {
	v := newTestValidator()
	b := validBatch()
	b.Rows[2]["Product_MRP"] = "cheap"

	_, err := v.ValidateBatch(b)
	if err == nil || !strings.Contains(err.Error(), "Row 3: Product_MRP must be numeric, got: cheap") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestValidateBatch_CapsReportedRows(t *testing.T) {
	v := newTestValidator()
	rows := make([]models.RawRow, 15)
	for i := range rows {
		r := validRecord()
		r["Store_Size"] = fmt.Sprintf("Size%d", i)
		rows[i] = r
	}

	report, err := v.ValidateBatch(models.NewBatch(rows))
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "5 more errors") {
		t.Errorf("expected omitted-count suffix, got %q", msg)
	}
	if !strings.Contains(msg, "Row 10:") || strings.Contains(msg, "Row 11:") {
		t.Errorf("expected exactly the first 10 rows in message: %q", msg)
	}
	if len(batchErr.Shown()) != 10 || batchErr.Omitted() != 5 {
		t.Errorf("Shown=%d Omitted=%d", len(batchErr.Shown()), batchErr.Omitted())
	}
	if report.InvalidRows != 15 || len(report.Errors) != 15 {
		t.Errorf("report must count every failing row: %+v", report)
	}
}

func TestValidateBatch_LargeBatchKeepsOrder(t *testing.T) {
	v := newTestValidator()
	rows := make([]models.RawRow, 2*chunkSize+37)
	var want []int
	for i := range rows {
		r := validRecord()
		if i%97 == 0 {
			r["Product_Allocated_Area"] = 5.0
			want = append(want, i+1)
		}
		rows[i] = r
	}

	_, err := v.ValidateBatch(models.NewBatch(rows))
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}

	got := make([]int, len(batchErr.Rows))
	for i, re := range batchErr.Rows {
		got[i] = re.Row
	}
	if !slices.Equal(got, want) {
		t.Errorf("row order = %v, want %v", got, want)
	}
}

func TestReport_NeverFails(t *testing.T) {
	v := newTestValidator()

	report := v.Report(models.Batch{})
	if report.OK() || len(report.Errors) != 1 {
		t.Errorf("unexpected report for empty input: %+v", report)
	}

	report = v.Report(validBatch())
	if !report.OK() || report.ValidRows != 3 {
		t.Errorf("unexpected report for valid input: %+v", report)
	}
}

func TestDescribeDomains(t *testing.T) {
	v := newTestValidator()
	d := v.DescribeDomains()

	if d["Product_Type"].Type != "categorical" {
		t.Errorf("Product_Type type = %q", d["Product_Type"].Type)
	}
	if d["Product_Weight"].Type != "float" || *d["Product_Weight"].Min != 0 || *d["Product_Weight"].Max != 50 {
		t.Errorf("unexpected Product_Weight description %+v", d["Product_Weight"])
	}
}
