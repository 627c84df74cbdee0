package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LinearModel is a (multi-output) linear model over named features. A feature
// named "field=value" is a one-hot indicator: 1 when the record's string field
// equals value, 0 otherwise.
type LinearModel struct {
	FeatureNames []string    `json:"feature_names"`
	Outputs      []string    `json:"outputs"`
	Bias         []float64   `json:"bias"`
	Coefficients [][]float64 `json:"coefficients"`
}

func (m *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return fmt.Errorf("decode linear model %s: %w", path, err)
	}
	return m.validate()
}

func (m *LinearModel) validate() error {
	if len(m.FeatureNames) == 0 {
		return errors.New("artifact missing feature names")
	}
	if len(m.Bias) == 0 || len(m.Bias) != len(m.Coefficients) {
		return fmt.Errorf("bias/coefficient row mismatch: %d vs %d", len(m.Bias), len(m.Coefficients))
	}
	for i, row := range m.Coefficients {
		if len(row) != len(m.FeatureNames) {
			return fmt.Errorf("coefficient row %d has %d weights, want %d", i, len(row), len(m.FeatureNames))
		}
	}
	return nil
}

func (m *LinearModel) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	sample, err := m.sample(in)
	if err != nil {
		return Prediction{}, err
	}
	values := make([]float64, len(m.Bias))
	for out, row := range m.Coefficients {
		sum := m.Bias[out]
		for i, coeff := range row {
			sum += coeff * sample[i]
		}
		values[out] = sum
	}
	return Prediction{Values: values}, nil
}

// sample lays the input out in artifact order. Named fields win; without
// them the vector is taken positionally.
func (m *LinearModel) sample(in Input) ([]float64, error) {
	sample := make([]float64, len(m.FeatureNames))
	if in.Fields == nil {
		if len(in.Vector) != len(m.FeatureNames) {
			return nil, fmt.Errorf("expected %d features, got %d", len(m.FeatureNames), len(in.Vector))
		}
		copy(sample, in.Vector)
		return sample, nil
	}
	for idx, name := range m.FeatureNames {
		if field, want, ok := strings.Cut(name, "="); ok {
			got, present := in.Fields[field]
			if !present {
				return nil, fmt.Errorf("missing feature %s", field)
			}
			if s, _ := got.(string); s == want {
				sample[idx] = 1
			}
			continue
		}
		switch v := in.Fields[name].(type) {
		case float64:
			sample[idx] = v
		case int:
			sample[idx] = float64(v)
		case nil:
			return nil, fmt.Errorf("missing feature %s", name)
		default:
			return nil, fmt.Errorf("feature %s is %T, want number", name, v)
		}
	}
	return sample, nil
}
