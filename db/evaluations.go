// Package db records offline model evaluation runs in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cropclock/ml"

	_ "github.com/mattn/go-sqlite3"
)

// Evaluation is one scored run of a model artifact.
type Evaluation struct {
	Task        ml.Task   `json:"task"`
	Artifact    string    `json:"artifact"`
	Dataset     string    `json:"dataset"`
	Report      ml.Report `json:"report"`
	Rejected    int       `json:"rejected"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

type EvaluationLog struct {
	db *sql.DB
}

// OpenEvaluationLog opens (and if needed creates) the evaluation database.
func OpenEvaluationLog(path string) (*EvaluationLog, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS evaluation_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        task TEXT NOT NULL,
        artifact TEXT NOT NULL,
        dataset TEXT NOT NULL,
        samples INTEGER NOT NULL,
        failed INTEGER DEFAULT 0,
        rejected INTEGER DEFAULT 0,
        accuracy REAL,
        macro_precision REAL,
        macro_recall REAL,
        mae REAL,
        rmse REAL,
        evaluated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_evaluation_task ON evaluation_log(task, evaluated_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create evaluation_log: %w", err)
	}
	return &EvaluationLog{db: database}, nil
}

func (l *EvaluationLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *EvaluationLog) Record(ctx context.Context, e Evaluation) error {
	if l == nil || l.db == nil {
		return errors.New("evaluation log not open")
	}
	if e.EvaluatedAt.IsZero() {
		e.EvaluatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
        INSERT INTO evaluation_log (
            task, artifact, dataset, samples, failed, rejected,
            accuracy, macro_precision, macro_recall, mae, rmse, evaluated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Task), e.Artifact, e.Dataset,
		e.Report.Samples, e.Report.Failed, e.Rejected,
		e.Report.Accuracy, e.Report.MacroPrecision, e.Report.MacroRecall,
		e.Report.MAE, e.Report.RMSE, e.EvaluatedAt)
	return err
}

// History returns the most recent runs for task, newest first.
func (l *EvaluationLog) History(ctx context.Context, task ml.Task, limit int) ([]Evaluation, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("evaluation log not open")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT task, artifact, dataset, samples, failed, rejected,
               accuracy, macro_precision, macro_recall, mae, rmse, evaluated_at
        FROM evaluation_log
        WHERE task = ?
        ORDER BY evaluated_at DESC, id DESC
        LIMIT ?`, string(task), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Evaluation, 0)
	for rows.Next() {
		var e Evaluation
		var taskName string
		if err := rows.Scan(&taskName, &e.Artifact, &e.Dataset,
			&e.Report.Samples, &e.Report.Failed, &e.Rejected,
			&e.Report.Accuracy, &e.Report.MacroPrecision, &e.Report.MacroRecall,
			&e.Report.MAE, &e.Report.RMSE, &e.EvaluatedAt); err != nil {
			return nil, err
		}
		e.Task = ml.Task(taskName)
		runs = append(runs, e)
	}
	return runs, rows.Err()
}
