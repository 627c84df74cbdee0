package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cropclock/ml"
)

// ErrMalformedBody 请求体不是JSON对象
var ErrMalformedBody = errors.New("request body must be a JSON object")

// Normalized 校验后的请求
type Normalized struct {
	// Vector 按 Schema 顺序排列的特征向量（Text 和 Aux 字段不进入向量）
	Vector []float64
	// Fields 按字段名索引的取值：数值为 float64，标签为规范化后的字符串
	Fields map[string]any
}

// Number 读取数值字段
func (n *Normalized) Number(name string) float64 {
	v, _ := n.Fields[name].(float64)
	return v
}

// String 读取字符串字段
func (n *Normalized) String(name string) string {
	s, _ := n.Fields[name].(string)
	return s
}

// Input 转成模型输入
func (n *Normalized) Input() ml.Input {
	return ml.Input{Vector: n.Vector, Fields: n.Fields}
}

// DecodeJSON 解析请求体，数字保留为 json.Number 以便区分整数
func DecodeJSON(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if input == nil {
		return nil, ErrMalformedBody
	}
	return input, nil
}

// Normalize 按 Schema 顺序提取字段并转换类型，返回遇到的第一个错误
func Normalize(input map[string]any, schema Schema, encoders *ml.EncoderRegistry) (*Normalized, error) {
	out := &Normalized{
		Vector: make([]float64, 0, len(schema.Fields)),
		Fields: make(map[string]any, len(schema.Fields)),
	}
	for _, field := range schema.Fields {
		raw, ok := input[field.Name]
		if !ok {
			return nil, &MissingFieldError{Field: field.Name}
		}
		switch field.Kind {
		case Number, Integer:
			v, err := toNumber(field, raw)
			if err != nil {
				return nil, err
			}
			out.push(field, v)
			out.Fields[field.Name] = v
		case Category, Label:
			s, ok := raw.(string)
			if !ok {
				return nil, &InvalidTypeError{Field: field.Name, Expected: field.Kind.String(), Actual: typeName(raw)}
			}
			code, err := encoders.Encode(field.Encoder, s)
			if err != nil {
				var unknown *ml.UnknownCategoryError
				if errors.As(err, &unknown) {
					return nil, &ml.UnknownCategoryError{Field: field.Name, Value: s}
				}
				return nil, err
			}
			out.push(field, float64(code))
			out.Fields[field.Name] = ml.NormalizeLabel(s)
		case Text:
			s, ok := raw.(string)
			if !ok {
				return nil, &InvalidTypeError{Field: field.Name, Expected: field.Kind.String(), Actual: typeName(raw)}
			}
			out.Fields[field.Name] = s
		default:
			return nil, fmt.Errorf("field %s has unknown kind %d", field.Name, field.Kind)
		}
	}
	return out, nil
}

func (n *Normalized) push(field Field, v float64) {
	if !field.Aux {
		n.Vector = append(n.Vector, v)
	}
}

func toNumber(field Field, raw any) (float64, error) {
	invalid := func(actual string) error {
		return &InvalidTypeError{Field: field.Name, Expected: field.Kind.String(), Actual: actual}
	}

	var v float64
	switch x := raw.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, invalid(fmt.Sprintf("number %s", x))
		}
		v = f
	case float64:
		v = x
	case int:
		v = float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, invalid(fmt.Sprintf("string %q", x))
		}
		v = f
	default:
		return 0, invalid(typeName(raw))
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("non-finite number")
	}
	if field.Kind == Integer && v != math.Trunc(v) {
		return 0, invalid("float")
	}
	return v, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case json.Number, float64, int:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
