package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cropclock/ml"
)

// QualityIssue 被拒绝的数据行
type QualityIssue struct {
	Row     int    `json:"row"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DatasetStats 读取统计
type DatasetStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
}

// Dataset 带标注的评估数据
type Dataset struct {
	Samples []ml.Sample
	Issues  []QualityIssue
	Stats   DatasetStats
}

// DatasetOptions 描述目标列
type DatasetOptions struct {
	// Targets 目标列名。分类任务只有一列（字符串标签），回归任务可以有多列。
	Targets    []string
	Regression bool
}

// ReadDataset 读取带表头的CSV，每行按 schema 校验，校验失败的行记为问题并跳过
func ReadDataset(r io.Reader, schema Schema, encoders *ml.EncoderRegistry, opts DatasetOptions) (*Dataset, error) {
	if len(opts.Targets) == 0 {
		return nil, errors.New("at least one target column is required")
	}
	if !opts.Regression && len(opts.Targets) != 1 {
		return nil, fmt.Errorf("classification takes one target column, got %d", len(opts.Targets))
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range append(schema.Names(), opts.Targets...) {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	ds := &Dataset{Stats: DatasetStats{Issues: make(map[string]int64)}}
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		ds.Stats.TotalProcessed++
		if len(record) != len(header) {
			ds.reject(row, fmt.Errorf("expected %d columns, got %d", len(header), len(record)))
			continue
		}

		sample, err := buildSample(record, columns, schema, encoders, opts)
		if err != nil {
			ds.reject(row, err)
			continue
		}
		ds.Stats.Passed++
		ds.Samples = append(ds.Samples, sample)
	}
	return ds, nil
}

func buildSample(record []string, columns map[string]int, schema Schema, encoders *ml.EncoderRegistry, opts DatasetOptions) (ml.Sample, error) {
	input := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		input[field.Name] = record[columns[field.Name]]
	}
	normalized, err := Normalize(input, schema, encoders)
	if err != nil {
		return ml.Sample{}, err
	}

	sample := ml.Sample{Input: normalized.Input()}
	if !opts.Regression {
		sample.Label = ml.NormalizeLabel(record[columns[opts.Targets[0]]])
		if sample.Label == "" {
			return ml.Sample{}, &MissingFieldError{Field: opts.Targets[0]}
		}
		return sample, nil
	}
	for _, target := range opts.Targets {
		raw := strings.TrimSpace(record[columns[target]])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ml.Sample{}, &InvalidTypeError{Field: target, Expected: Number.String(), Actual: fmt.Sprintf("string %q", raw)}
		}
		sample.Values = append(sample.Values, v)
	}
	return sample, nil
}

func (ds *Dataset) reject(row int, err error) {
	kind := issueType(err)
	ds.Stats.Rejected++
	ds.Stats.Issues[kind]++
	ds.Issues = append(ds.Issues, QualityIssue{Row: row, Type: kind, Message: err.Error()})
}

func issueType(err error) string {
	var (
		missing *MissingFieldError
		invalid *InvalidTypeError
		unknown *ml.UnknownCategoryError
	)
	switch {
	case errors.As(err, &missing):
		return "missing_field"
	case errors.As(err, &invalid):
		return "invalid_type"
	case errors.As(err, &unknown):
		return "unknown_category"
	default:
		return "other"
	}
}
