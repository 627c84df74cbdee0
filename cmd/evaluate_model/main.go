package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cropclock/db"
	"cropclock/ml"
	"cropclock/pipeline"
)

var schemas = map[ml.Task]pipeline.Schema{
	ml.TaskCrop:       pipeline.CropSchema,
	ml.TaskPrice:      pipeline.PriceSchema,
	ml.TaskFertilizer: pipeline.FertilizerSchema,
	ml.TaskNPK:        pipeline.NPKSchema,
}

// default target columns of the training datasets
var defaultTargets = map[ml.Task]string{
	ml.TaskCrop:       "label",
	ml.TaskPrice:      "Price_per_quintal",
	ml.TaskFertilizer: "Fertilizer Name",
	ml.TaskNPK:        "N,P,K",
}

type options struct {
	task         ml.Task
	modelType    string
	modelPath    string
	modelURL     string
	encodersPath string
	dataPath     string
	targets      string
	historyPath  string
}

func main() {
	var opts options
	task := flag.String("task", "", "crop, price, fertilizer or npk")
	flag.StringVar(&opts.modelType, "type", "decision_tree", "artifact type")
	flag.StringVar(&opts.modelPath, "model", "", "model artifact path")
	flag.StringVar(&opts.modelURL, "url", "", "model endpoint for type=remote")
	flag.StringVar(&opts.encodersPath, "encoders", "./artifacts/encoders.json", "encoder tables path")
	flag.StringVar(&opts.dataPath, "data", "", "labelled CSV")
	flag.StringVar(&opts.targets, "targets", "", "comma separated target columns (default depends on task)")
	flag.StringVar(&opts.historyPath, "history", "", "sqlite file to record the run in")
	flag.Parse()
	opts.task = ml.Task(*task)

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	schema, ok := schemas[opts.task]
	if !ok {
		return fmt.Errorf("unknown task %q", opts.task)
	}
	if opts.dataPath == "" {
		return errors.New("data is required")
	}
	if opts.targets == "" {
		opts.targets = defaultTargets[opts.task]
	}
	regression := opts.task == ml.TaskPrice || opts.task == ml.TaskNPK

	encoders, err := ml.LoadEncoders(opts.encodersPath)
	if err != nil {
		return fmt.Errorf("failed to load encoders: %w", err)
	}
	model, err := ml.LoadModel(ml.ModelSpec{Type: opts.modelType, Path: opts.modelPath, URL: opts.modelURL})
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	dataset, err := readDataset(opts.dataPath, schema, encoders, pipeline.DatasetOptions{
		Targets:    splitColumns(opts.targets),
		Regression: regression,
	})
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	for _, issue := range dataset.Issues {
		log.Printf("row %d rejected (%s): %s", issue.Row, issue.Type, issue.Message)
	}

	evaluator := &ml.Evaluator{Model: model, Regression: regression}
	if opts.task == ml.TaskFertilizer {
		evaluator.Decode = func(code int) (string, error) {
			return encoders.Decode(ml.FieldFertilizer, code)
		}
	}
	report := evaluator.Run(ctx, dataset.Samples)

	summary, err := json.MarshalIndent(struct {
		Task    ml.Task               `json:"task"`
		Report  ml.Report             `json:"report"`
		Dataset pipeline.DatasetStats `json:"dataset"`
	}{opts.task, report, dataset.Stats}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(summary))

	if opts.historyPath == "" {
		return nil
	}
	return record(ctx, opts, report, int(dataset.Stats.Rejected), out)
}

func record(ctx context.Context, opts options, report ml.Report, rejected int, out io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(opts.historyPath), 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}
	history, err := db.OpenEvaluationLog(opts.historyPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	artifact := opts.modelPath
	if artifact == "" {
		artifact = opts.modelURL
	}
	if err := history.Record(ctx, db.Evaluation{
		Task:     opts.task,
		Artifact: artifact,
		Dataset:  opts.dataPath,
		Report:   report,
		Rejected: rejected,
	}); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	fmt.Fprintf(out, "run recorded in %s\n", opts.historyPath)
	return nil
}

func readDataset(path string, schema pipeline.Schema, encoders *ml.EncoderRegistry, opts pipeline.DatasetOptions) (*pipeline.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return pipeline.ReadDataset(file, schema, encoders, opts)
}

func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
