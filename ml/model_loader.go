package ml

import (
	"errors"
	"fmt"
	"time"
)

// ModelSpec describes where a task's trained artifact lives.
type ModelSpec struct {
	Type     string        `yaml:"type"`
	Path     string        `yaml:"path"`
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Records  bool          `yaml:"records"`
	MemoSize int           `yaml:"memo_size"`
}

func LoadModel(spec ModelSpec) (Predictor, error) {
	switch spec.Type {
	case "decision_tree":
		model := &DecisionTree{}
		if err := model.Load(spec.Path); err != nil {
			return nil, err
		}
		return model, nil
	case "regression_tree":
		model := &DecisionTree{regression: true}
		if err := model.Load(spec.Path); err != nil {
			return nil, err
		}
		return model, nil
	case "linear":
		model := &LinearModel{}
		if err := model.Load(spec.Path); err != nil {
			return nil, err
		}
		return model, nil
	case "remote":
		opts := []RemoteOption{WithMemo(spec.MemoSize)}
		if spec.Records {
			opts = append(opts, WithRecords())
		}
		return NewRemoteModel(spec.URL, spec.Timeout, opts...)
	case "":
		return nil, errors.New("model type is required")
	default:
		return nil, fmt.Errorf("unsupported model type %q", spec.Type)
	}
}
