package ml

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func constant(values ...float64) Predictor {
	return PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
		return Prediction{Values: values}, nil
	})
}

func TestRegistryPredict(t *testing.T) {
	reg := NewRegistry(map[Task]Predictor{TaskPrice: constant(2500)})

	pred, err := reg.Predict(context.Background(), TaskPrice, Input{Vector: []float64{1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2500}, pred.Values)
}

func TestRegistryMissingModel(t *testing.T) {
	reg := NewRegistry(map[Task]Predictor{TaskCrop: nil})
	assert.False(t, reg.Loaded(TaskCrop))

	_, err := reg.Predict(context.Background(), TaskCrop, Input{})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	var nilReg *Registry
	_, err = nilReg.Predict(context.Background(), TaskCrop, Input{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestRegistryWrapsFailures(t *testing.T) {
	reg := NewRegistry(map[Task]Predictor{
		TaskCrop: PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
			return Prediction{}, errors.New("shape mismatch")
		}),
		TaskPrice: PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
			panic("index out of range")
		}),
		TaskNPK: constant(1, math.Inf(1), 3),
	})

	for task, detail := range map[Task]string{
		TaskCrop:  "shape mismatch",
		TaskPrice: "index out of range",
		TaskNPK:   "not finite",
	} {
		_, err := reg.Predict(context.Background(), task, Input{Vector: []float64{1}})
		var failure *PredictionFailureError
		require.ErrorAs(t, err, &failure, task)
		assert.Equal(t, task, failure.Task)
		assert.Contains(t, failure.Detail, detail)
	}
}

func TestRegistryDoesNotExposeInput(t *testing.T) {
	reg := NewRegistry(map[Task]Predictor{
		TaskCrop: PredictorFunc(func(ctx context.Context, in Input) (Prediction, error) {
			in.Vector[0] = -1
			in.Fields["N"] = -1.0
			return Prediction{Label: "rice"}, nil
		}),
	})
	in := Input{Vector: []float64{90}, Fields: map[string]any{"N": 90.0}}

	_, err := reg.Predict(context.Background(), TaskCrop, in)
	require.NoError(t, err)
	assert.Equal(t, 90.0, in.Vector[0])
	assert.Equal(t, 90.0, in.Fields["N"])
}

func TestRegistryConcurrentPredict(t *testing.T) {
	model := &DecisionTree{}
	require.NoError(t, model.Load(writeArtifact(t, "crop.json", cropTree)))
	reg := NewRegistry(map[Task]Predictor{TaskCrop: model})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rainfall := float64(i * 5)
			pred, err := reg.Predict(context.Background(), TaskCrop, Input{Vector: []float64{0, 0, 0, 0, 0, 0, rainfall}})
			assert.NoError(t, err)
			want := "maize"
			if rainfall > 100 {
				want = "rice"
			}
			assert.Equal(t, want, pred.Label)
		}(i)
	}
	wg.Wait()
}

func TestLoadRegistryKeepsGoodModels(t *testing.T) {
	specs := map[Task]ModelSpec{
		TaskCrop:       {Type: "decision_tree", Path: writeArtifact(t, "crop.json", cropTree)},
		TaskNPK:        {Type: "linear", Path: writeArtifact(t, "npk.json", npkModel)},
		TaskFertilizer: {Type: "decision_tree", Path: filepath.Join(t.TempDir(), "missing.json")},
	}

	reg, err := LoadRegistry(specs, nil)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2, "fertilizer failed to load and price is not configured")

	assert.True(t, reg.Loaded(TaskCrop))
	assert.True(t, reg.Loaded(TaskNPK))
	assert.False(t, reg.Loaded(TaskFertilizer))
	assert.False(t, reg.Loaded(TaskPrice))
}

func TestLoadModelTypes(t *testing.T) {
	_, err := LoadModel(ModelSpec{})
	assert.Error(t, err)

	_, err = LoadModel(ModelSpec{Type: "pickle", Path: "model.pkl"})
	assert.Error(t, err)

	model, err := LoadModel(ModelSpec{Type: "remote", URL: "http://localhost:9000/predict", MemoSize: 4})
	require.NoError(t, err)
	assert.IsType(t, &RemoteModel{}, model)

	path := writeArtifact(t, "price.json", `[{"feature_idx": -1, "left_child": -1, "right_child": -1, "value": 2100, "is_leaf": true}]`)
	model, err = LoadModel(ModelSpec{Type: "regression_tree", Path: path})
	require.NoError(t, err)
	pred, err := model.Predict(context.Background(), Input{Vector: []float64{1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2100}, pred.Values)
}
