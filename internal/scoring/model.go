package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

var ErrDimension = errors.New("feature dimension mismatch")

// Model is a linear classifier with a logistic link, exported from the
// training pipeline as JSON. Mean and Scale, when present, standardize the
// features before the weights are applied.
type Model struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Mean      []float64 `json:"mean,omitempty"`
	Scale     []float64 `json:"scale,omitempty"`
}

// Load reads a model file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	var m Model
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Weights) == 0 {
		return errors.New("no weights")
	}

	if m.Mean != nil && len(m.Mean) != len(m.Weights) {
		return fmt.Errorf("mean: %w", ErrDimension)
	}

	if m.Scale != nil && len(m.Scale) != len(m.Weights) {
		return fmt.Errorf("scale: %w", ErrDimension)
	}

	return nil
}

// Score returns the match probability of a feature vector.
func (m *Model) Score(_ context.Context, features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(features), len(m.Weights), ErrDimension)
	}

	z := m.Intercept

	for i, x := range features {
		if m.Mean != nil {
			x -= m.Mean[i]
		}

		if m.Scale != nil && m.Scale[i] != 0 {
			x /= m.Scale[i]
		}

		z += m.Weights[i] * x
	}

	return 1 / (1 + math.Exp(-z)), nil
}
