package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Encoder fields known to the request schemas.
const (
	FieldState       = "state"
	FieldCrop        = "crop"
	FieldSeason      = "season"
	FieldSoilType    = "soil_type"
	FieldCropType    = "crop_type"
	FieldFertilizer  = "fertilizer"
	FieldNPKSoilType = "npk_soil_type"
	FieldNPKPrevCrop = "npk_prev_crop"
	FieldYieldLevel  = "yield_level"
)

// Encoder maps the labels of one categorical field to integer codes. The code
// of a label is its position in the class list the model was trained with.
type Encoder struct {
	field   string
	classes []string
	codes   map[string]int
}

func NewEncoder(field string, classes []string) (*Encoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("encoder %s: empty class list", field)
	}
	e := &Encoder{
		field:   field,
		classes: make([]string, len(classes)),
		codes:   make(map[string]int, len(classes)),
	}
	for i, label := range classes {
		key := NormalizeLabel(label)
		if key == "" {
			return nil, fmt.Errorf("encoder %s: blank label at index %d", field, i)
		}
		if prev, ok := e.codes[key]; ok {
			return nil, fmt.Errorf("encoder %s: label %q duplicates index %d", field, label, prev)
		}
		e.codes[key] = i
		e.classes[i] = key
	}
	return e, nil
}

func (e *Encoder) Encode(label string) (int, error) {
	code, ok := e.codes[NormalizeLabel(label)]
	if !ok {
		return 0, &UnknownCategoryError{Field: e.field, Value: label}
	}
	return code, nil
}

func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", &UnknownCodeError{Field: e.field, Code: code}
	}
	return e.classes[code], nil
}

func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// NormalizeLabel trims surrounding whitespace and puts the label in NFC form so
// that visually identical labels from different keyboards compare equal.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// EncoderRegistry holds one encoder per categorical field. It is built once at
// startup and only read afterwards.
type EncoderRegistry struct {
	encoders map[string]*Encoder
}

func NewEncoderRegistry(encoders ...*Encoder) *EncoderRegistry {
	r := &EncoderRegistry{encoders: make(map[string]*Encoder, len(encoders))}
	for _, e := range encoders {
		r.encoders[e.field] = e
	}
	return r
}

// LoadEncoders reads a JSON object of the form {"field": ["label0", ...]}.
func LoadEncoders(path string) (*EncoderRegistry, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tables map[string][]string
	if err := json.Unmarshal(payload, &tables); err != nil {
		return nil, fmt.Errorf("decode encoders %s: %w", path, err)
	}
	encoders := make([]*Encoder, 0, len(tables))
	for field, classes := range tables {
		enc, err := NewEncoder(field, classes)
		if err != nil {
			return nil, err
		}
		encoders = append(encoders, enc)
	}
	return NewEncoderRegistry(encoders...), nil
}

func (r *EncoderRegistry) Encoder(field string) (*Encoder, error) {
	if r == nil {
		return nil, fmt.Errorf("%s: %w", field, ErrEncoderUnavailable)
	}
	enc, ok := r.encoders[field]
	if !ok {
		return nil, fmt.Errorf("%s: %w", field, ErrEncoderUnavailable)
	}
	return enc, nil
}

func (r *EncoderRegistry) Encode(field, label string) (int, error) {
	enc, err := r.Encoder(field)
	if err != nil {
		return 0, err
	}
	return enc.Encode(label)
}

func (r *EncoderRegistry) Decode(field string, code int) (string, error) {
	enc, err := r.Encoder(field)
	if err != nil {
		return "", err
	}
	return enc.Decode(code)
}

func (r *EncoderRegistry) Fields() []string {
	if r == nil {
		return nil
	}
	fields := make([]string, 0, len(r.encoders))
	for f := range r.encoders {
		fields = append(fields, f)
	}
	return fields
}
