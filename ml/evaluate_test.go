package ml

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatorClassification(t *testing.T) {
	model := &DecisionTree{}
	require.NoError(t, model.Load(writeArtifact(t, "crop.json", cropTree)))

	samples := []Sample{
		{Input: Input{Vector: []float64{0, 0, 0, 0, 0, 0, 200}}, Label: "rice"},
		{Input: Input{Vector: []float64{0, 0, 0, 0, 0, 0, 50}}, Label: "maize"},
		{Input: Input{Vector: []float64{0, 0, 0, 0, 0, 0, 80}}, Label: "rice"},
		{Input: Input{Vector: []float64{0, 0, 0, 0, 0, 0, 300}}, Label: "rice"},
	}
	report := (&Evaluator{Model: model}).Run(context.Background(), samples)

	assert.Equal(t, 4, report.Samples)
	assert.Zero(t, report.Failed)
	assert.InDelta(t, 0.75, report.Accuracy, 1e-9)
	// maize: precision 1/2, recall 1/1; rice: precision 2/2, recall 2/3
	assert.InDelta(t, 0.75, report.MacroPrecision, 1e-9)
	assert.InDelta(t, (1+2.0/3)/2, report.MacroRecall, 1e-9)
}

func TestEvaluatorDecodesCodes(t *testing.T) {
	enc, err := NewEncoder(FieldFertilizer, []string{"DAP", "Urea"})
	require.NoError(t, err)
	model := PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
		if in.Vector[0] < 0 {
			return Prediction{}, errors.New("bad row")
		}
		return Prediction{Values: []float64{in.Vector[0]}}, nil
	})

	report := (&Evaluator{Model: model, Decode: enc.Decode}).Run(context.Background(), []Sample{
		{Input: Input{Vector: []float64{1}}, Label: "Urea"},
		{Input: Input{Vector: []float64{0}}, Label: "Urea"},
		{Input: Input{Vector: []float64{-1}}, Label: "DAP"},
		{Input: Input{Vector: []float64{7}}, Label: "DAP"},
	})
	assert.Equal(t, 2, report.Failed)
	assert.InDelta(t, 0.5, report.Accuracy, 1e-9)
}

func TestEvaluatorRegression(t *testing.T) {
	model := PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
		return Prediction{Values: []float64{10, 20}}, nil
	})
	report := (&Evaluator{Model: model, Regression: true}).Run(context.Background(), []Sample{
		{Values: []float64{12, 20}},
		{Values: []float64{10, 16}},
	})
	assert.InDelta(t, 1.5, report.MAE, 1e-9)
	assert.InDelta(t, 2.236067977, report.RMSE, 1e-6)
	assert.Zero(t, report.Accuracy)
}

func TestEvaluatorEmpty(t *testing.T) {
	report := (&Evaluator{Model: PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
		return Prediction{}, errors.New("always")
	})}).Run(context.Background(), []Sample{{Label: "x"}})
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Accuracy)
}
