// Package model loads the pretrained revenue model and serves predictions
// from it.
//
// The artifact is a YAML description of a linear model over the nine
// schema fields: an intercept, one coefficient per numeric field and one
// weight per categorical value. Categorical values the model has never seen
// contribute nothing, the same way a one-hot encoder ignoring unknowns would.
package model

import (
	"fmt"
	"math"
	"slices"

	"superkart/internal/models"
	"superkart/internal/schema"
)

// Predictor is the opaque model interface used by the inference service.
type Predictor interface {
	Predict(rows []models.FeatureRow) ([]float64, error)
	Type() string
	Features() []string
}

type LinearModel struct {
	ModelType   string                        `yaml:"type"`
	Version     string                        `yaml:"version,omitempty"`
	FeatureList []string                      `yaml:"features"`
	Intercept   float64                       `yaml:"intercept"`
	Numeric     map[string]float64            `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical"`
}

var _ Predictor = (*LinearModel)(nil)

func (m *LinearModel) Type() string {
	if m.ModelType == "" {
		return "LinearRegression"
	}
	return m.ModelType
}

func (m *LinearModel) Features() []string {
	return slices.Clone(m.FeatureList)
}

// Predict scores rows positionally: out[i] is the revenue of rows[i].
func (m *LinearModel) Predict(rows []models.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		y := m.Intercept
		for _, name := range m.FeatureList {
			v, _ := row.Get(name)
			switch x := v.(type) {
			case string:
				y += m.Categorical[name][x]
			case float64:
				y += m.Numeric[name] * x
			case int:
				y += m.Numeric[name] * float64(x)
			}
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("row %d: prediction is not finite", i+1)
		}
		out[i] = y
	}
	return out, nil
}

// check verifies the artifact describes exactly the schema's fields in
// canonical order.
func (m *LinearModel) check() error {
	if !slices.Equal(m.FeatureList, schema.Names()) {
		return fmt.Errorf("features %v do not match expected %v", m.FeatureList, schema.Names())
	}
	for name := range m.Numeric {
		f, ok := schema.Lookup(name)
		if !ok || !f.IsNumeric() {
			return fmt.Errorf("numeric coefficient for unknown field %q", name)
		}
	}
	for name := range m.Categorical {
		f, ok := schema.Lookup(name)
		if !ok || !f.IsCategorical() {
			return fmt.Errorf("categorical weights for unknown field %q", name)
		}
	}
	return nil
}
