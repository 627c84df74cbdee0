package ml

import "context"

// Input is what a predictor receives. Vector is always populated in the
// task's fixed feature order; Fields carries the same values by name for
// predictors that consume named records (strings stay strings).
type Input struct {
	Vector []float64
	Fields map[string]any
}

// Prediction is a predictor's raw output. Classifiers that know their class
// names set Label; everything else reports through Values.
type Prediction struct {
	Values []float64
	Label  string
}

type Predictor interface {
	Predict(ctx context.Context, in Input) (Prediction, error)
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(ctx context.Context, in Input) (Prediction, error)

func (f PredictorFunc) Predict(ctx context.Context, in Input) (Prediction, error) {
	return f(ctx, in)
}
