package pipeline

import "fmt"

// MissingFieldError 缺少必填字段
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// InvalidTypeError 字段类型不符
type InvalidTypeError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid value for field %s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}
