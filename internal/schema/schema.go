// Package schema describes the nine feature fields every prediction request
// must carry. The table is fixed at startup and shared read-only by every
// request.
package schema

import "slices"

type Kind string

const (
	KindCategorical Kind = "categorical"
	KindFloat       Kind = "float"
	KindInteger     Kind = "integer"
)

const (
	ProductType           = "Product_Type"
	StoreType             = "Store_Type"
	StoreLocationCityType = "Store_Location_City_Type"
	StoreSize             = "Store_Size"
	ProductSugarContent   = "Product_Sugar_Content"
	ProductWeight         = "Product_Weight"
	ProductMRP            = "Product_MRP"
	ProductAllocatedArea  = "Product_Allocated_Area"
	StoreEstablishedYear  = "Store_Establishment_Year"
)

// Domain is the closed set of values a categorical field accepts.
type Domain struct {
	Values []string
	Note   string
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Field is one entry of the schema. Exactly one of Domain or Range is set,
// depending on Kind.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Unit     string
	Domain   *Domain
	Range    *Range
	// Typical is the range observed in the training data. It is advisory
	// only; validation always uses Range.
	Typical *Range
}

func (f Field) IsCategorical() bool {
	return f.Kind == KindCategorical
}

func (f Field) IsNumeric() bool {
	return f.Kind == KindFloat || f.Kind == KindInteger
}

// Allows reports whether v is a member of the field's domain. It is always
// false for numeric fields.
func (f Field) Allows(v string) bool {
	if f.Domain == nil {
		return false
	}
	return slices.Contains(f.Domain.Values, v)
}

// Allowed returns a copy of the categorical domain.
func (f Field) Allowed() []string {
	if f.Domain == nil {
		return nil
	}
	return slices.Clone(f.Domain.Values)
}

var fields = []Field{
	{
		Name:     ProductType,
		Kind:     KindCategorical,
		Required: true,
		Domain: &Domain{Values: []string{
			"Meat", "Snack Foods", "Soft Drinks", "Dairy", "Household",
			"Fruits and Vegetables", "Frozen Foods", "Breakfast",
			"Baking Goods", "Health and Hygiene", "Starchy Foods",
			"Breads", "Canned", "Seafood", "Hard Drinks", "Others",
		}},
	},
	{
		Name:     StoreType,
		Kind:     KindCategorical,
		Required: true,
		Domain: &Domain{Values: []string{
			"Supermarket Type1", "Supermarket Type2", "Supermarket Type3", "Grocery Store",
		}},
	},
	{
		Name:     StoreLocationCityType,
		Kind:     KindCategorical,
		Required: true,
		Domain:   &Domain{Values: []string{"Tier 1", "Tier 2", "Tier 3"}},
	},
	{
		Name:     StoreSize,
		Kind:     KindCategorical,
		Required: true,
		Domain:   &Domain{Values: []string{"Small", "Medium", "High"}},
	},
	{
		Name:     ProductSugarContent,
		Kind:     KindCategorical,
		Required: true,
		Domain: &Domain{
			Values: []string{"No Sugar", "Low Sugar", "Regular"},
			Note:   "Variants like 'reg', 'REG', 'LF' are auto-normalized",
		},
	},
	{
		Name:     ProductWeight,
		Kind:     KindFloat,
		Required: true,
		Unit:     "kg",
		Range:    &Range{Min: 0, Max: 50},
		Typical:  &Range{Min: 4, Max: 22},
	},
	{
		Name:     ProductMRP,
		Kind:     KindFloat,
		Required: true,
		Unit:     "currency",
		Range:    &Range{Min: 0, Max: 1000},
		Typical:  &Range{Min: 31, Max: 266},
	},
	{
		Name:     ProductAllocatedArea,
		Kind:     KindFloat,
		Required: true,
		Unit:     "ratio (0-1)",
		Range:    &Range{Min: 0, Max: 1},
		Typical:  &Range{Min: 0.004, Max: 0.298},
	},
	{
		Name:     StoreEstablishedYear,
		Kind:     KindInteger,
		Required: true,
		Unit:     "year",
		Range:    &Range{Min: 1950, Max: 2025},
		Typical:  &Range{Min: 1987, Max: 2009},
	},
}

var byName = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// Fields returns every field in canonical order.
func Fields() []Field {
	return slices.Clone(fields)
}

// Names returns the canonical field order expected by the inference model.
func Names() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Required returns the names of required fields in canonical order.
func Required() []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func Lookup(name string) (Field, bool) {
	f, ok := byName[name]
	return f, ok
}

func Categorical() []Field {
	return filter(Field.IsCategorical)
}

func Numeric() []Field {
	return filter(Field.IsNumeric)
}

func filter(keep func(Field) bool) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Description is the discoverability view of a single field.
type Description struct {
	Type        Kind     `json:"type"`
	ValidValues []string `json:"valid_values,omitempty"`
	Note        string   `json:"note,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	TypicalMin  *float64 `json:"typical_min,omitempty"`
	TypicalMax  *float64 `json:"typical_max,omitempty"`
}

// Describe returns a description of every field keyed by name.
func Describe() map[string]Description {
	out := make(map[string]Description, len(fields))
	for _, f := range fields {
		d := Description{Type: f.Kind, Unit: f.Unit}
		if f.Domain != nil {
			d.ValidValues = f.Allowed()
			d.Note = f.Domain.Note
		}
		if f.Range != nil {
			lo, hi := f.Range.Min, f.Range.Max
			d.Min, d.Max = &lo, &hi
		}
		if f.Typical != nil {
			lo, hi := f.Typical.Min, f.Typical.Max
			d.TypicalMin, d.TypicalMax = &lo, &hi
		}
		out[f.Name] = d
	}
	return out
}

// FieldTypes returns the human-readable type of each field.
func FieldTypes() map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case KindCategorical:
			out[f.Name] = "string (categorical)"
		default:
			out[f.Name] = string(f.Kind)
		}
	}
	return out
}
