// Package coerce converts loosely typed decoded values (JSON numbers, CSV
// strings) into the Go types the schema calls for.
package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNull       = errors.New("value is null")
	ErrNotNumeric = errors.New("value is not numeric")
	ErrNotInteger = errors.New("value is not an integer")
)

// IsNull reports whether v should be treated as a missing value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// Float parses v as a finite float64.
func Float(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, ErrNull
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x.String())
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	return f, nil
}

// Int parses v as an integer. Floats with a fractional part are rejected.
func Int(v any) (int, error) {
	f, err := Float(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %v", ErrNotInteger, f)
	}
	return int(f), nil
}

// String renders v as a string. Numbers are formatted without a trailing
// exponent so they read the way they were entered.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// FormatValue renders v for error messages, spelling null explicitly.
func FormatValue(v any) string {
	if IsNull(v) {
		return "null"
	}
	return String(v)
}
