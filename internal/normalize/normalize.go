// Package normalize maps free-form categorical spellings onto the canonical
// values of the schema.
package normalize

import (
	"strings"

	"superkart/internal/schema"
)

var sugarAliases = map[string]string{
	"reg":       "Regular",
	"REG":       "Regular",
	"regular":   "Regular",
	"Regular":   "Regular",
	"low fat":   "Low Sugar",
	"Low Fat":   "Low Sugar",
	"LF":        "Low Sugar",
	"low sugar": "Low Sugar",
	"Low Sugar": "Low Sugar",
	"no sugar":  "No Sugar",
	"No Sugar":  "No Sugar",
	"NS":        "No Sugar",
}

// SugarContent trims raw and maps known aliases to their canonical value.
// Lookup is case-sensitive. Unknown values are returned trimmed but otherwise
// unchanged so the validator can reject them.
func SugarContent(raw string) string {
	v := strings.TrimSpace(raw)
	if canonical, ok := sugarAliases[v]; ok {
		return canonical
	}
	return v
}

// Field normalizes value for the named field. Only sugar content has an
// alias table; every other field is returned as is.
func Field(name, value string) string {
	if name == schema.ProductSugarContent {
		return SugarContent(value)
	}
	return value
}
