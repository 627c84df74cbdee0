package ml

import (
	"errors"
	"fmt"
)

var (
	ErrModelUnavailable   = errors.New("model not loaded")
	ErrEncoderUnavailable = errors.New("encoder not loaded")
)

// UnknownCategoryError reports a label outside an encoder's vocabulary.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unseen category %q for field %s", e.Value, e.Field)
}

// UnknownCodeError reports a code with no label in an encoder.
type UnknownCodeError struct {
	Field string
	Code  int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown code %d for field %s", e.Code, e.Field)
}

// PredictionFailureError wraps anything that went wrong inside a predictor.
type PredictionFailureError struct {
	Task   Task
	Detail string
}

func (e *PredictionFailureError) Error() string {
	return fmt.Sprintf("%s prediction failed: %s", e.Task, e.Detail)
}
