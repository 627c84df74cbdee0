package ml

import (
	"context"
	"fmt"
	"maps"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Task string

const (
	TaskCrop       Task = "crop"
	TaskPrice      Task = "price"
	TaskFertilizer Task = "fertilizer"
	TaskNPK        Task = "npk"
)

func Tasks() []Task {
	return []Task{TaskCrop, TaskPrice, TaskFertilizer, TaskNPK}
}

// Registry binds exactly one predictor to each task. It is filled before the
// server starts and never modified, so lookups take no locks.
type Registry struct {
	models map[Task]Predictor
}

func NewRegistry(models map[Task]Predictor) *Registry {
	r := &Registry{models: make(map[Task]Predictor, len(models))}
	for task, model := range models {
		if model != nil {
			r.models[task] = model
		}
	}
	return r
}

// LoadRegistry loads every configured artifact. Tasks that fail to load are
// left empty and reported in the combined error; the registry is usable
// either way.
func LoadRegistry(specs map[Task]ModelSpec, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	models := make(map[Task]Predictor, len(specs))
	var errs error
	for _, task := range Tasks() {
		spec, ok := specs[task]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: no model configured", task))
			continue
		}
		model, err := LoadModel(spec)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", task, err))
			continue
		}
		models[task] = model
		logger.Info("model loaded",
			zap.String("task", string(task)),
			zap.String("type", spec.Type),
			zap.String("path", spec.Path),
			zap.String("url", spec.URL))
	}
	return NewRegistry(models), errs
}

func (r *Registry) Loaded(task Task) bool {
	if r == nil {
		return false
	}
	_, ok := r.models[task]
	return ok
}

func (r *Registry) Predict(ctx context.Context, task Task, in Input) (pred Prediction, err error) {
	if !r.Loaded(task) {
		return Prediction{}, fmt.Errorf("%s: %w", task, ErrModelUnavailable)
	}
	model := r.models[task]

	defer func() {
		if rec := recover(); rec != nil {
			pred = Prediction{}
			err = &PredictionFailureError{Task: task, Detail: fmt.Sprint(rec)}
		}
	}()

	safe := Input{
		Vector: append([]float64(nil), in.Vector...),
		Fields: maps.Clone(in.Fields),
	}
	pred, err = model.Predict(ctx, safe)
	if err != nil {
		return Prediction{}, &PredictionFailureError{Task: task, Detail: err.Error()}
	}
	for i, v := range pred.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, &PredictionFailureError{Task: task, Detail: fmt.Sprintf("output %d is not finite", i)}
		}
	}
	return pred, nil
}
