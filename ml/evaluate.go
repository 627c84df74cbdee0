package ml

import (
	"context"
	"math"
	"sort"
)

// Sample is one labelled row of an evaluation set. Classification rows carry
// Label, regression rows carry Values.
type Sample struct {
	Input  Input
	Label  string
	Values []float64
}

// Report summarises how a model did on an evaluation set.
type Report struct {
	Samples        int     `json:"samples"`
	Failed         int     `json:"failed"`
	Accuracy       float64 `json:"accuracy,omitempty"`
	MacroPrecision float64 `json:"macro_precision,omitempty"`
	MacroRecall    float64 `json:"macro_recall,omitempty"`
	MAE            float64 `json:"mae,omitempty"`
	RMSE           float64 `json:"rmse,omitempty"`
}

// Evaluator scores a predictor against labelled samples.
type Evaluator struct {
	Model      Predictor
	Regression bool
	// Decode turns a class code into a label for models that only emit codes.
	Decode func(code int) (string, error)
}

func (e *Evaluator) Run(ctx context.Context, samples []Sample) Report {
	if e.Regression {
		return e.regression(ctx, samples)
	}
	return e.classification(ctx, samples)
}

func (e *Evaluator) classification(ctx context.Context, samples []Sample) Report {
	report := Report{Samples: len(samples)}
	var correct int
	truePositive := make(map[string]int)
	predicted := make(map[string]int)
	actual := make(map[string]int)

	for _, s := range samples {
		label, err := e.label(ctx, s.Input)
		if err != nil {
			report.Failed++
			continue
		}
		actual[s.Label]++
		predicted[label]++
		if label == s.Label {
			correct++
			truePositive[label]++
		}
	}

	scored := report.Samples - report.Failed
	if scored == 0 {
		return report
	}
	report.Accuracy = float64(correct) / float64(scored)

	classes := make([]string, 0, len(actual))
	for c := range actual {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		if predicted[c] > 0 {
			report.MacroPrecision += float64(truePositive[c]) / float64(predicted[c])
		}
		report.MacroRecall += float64(truePositive[c]) / float64(actual[c])
	}
	report.MacroPrecision /= float64(len(classes))
	report.MacroRecall /= float64(len(classes))
	return report
}

func (e *Evaluator) label(ctx context.Context, in Input) (string, error) {
	pred, err := e.Model.Predict(ctx, in)
	if err != nil {
		return "", err
	}
	if pred.Label != "" || e.Decode == nil || len(pred.Values) == 0 {
		return pred.Label, nil
	}
	return e.Decode(int(math.Round(pred.Values[0])))
}

func (e *Evaluator) regression(ctx context.Context, samples []Sample) Report {
	report := Report{Samples: len(samples)}
	var absSum, sqSum float64
	var n int
	for _, s := range samples {
		pred, err := e.Model.Predict(ctx, s.Input)
		if err != nil || len(pred.Values) < len(s.Values) {
			report.Failed++
			continue
		}
		for i, want := range s.Values {
			diff := pred.Values[i] - want
			absSum += math.Abs(diff)
			sqSum += diff * diff
			n++
		}
	}
	if n > 0 {
		report.MAE = absSum / float64(n)
		report.RMSE = math.Sqrt(sqSum / float64(n))
	}
	return report
}
