package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RemoteModel calls a model server that hosts the trained artifact, e.g. the
// scikit-learn pipelines that have no native Go representation.
//
// Request:  {"instances": [[f1, f2, ...]]} or {"records": [{"name": value}]}
// Response: {"predictions": [[v1, ...]], "labels": ["..."]}
type RemoteModel struct {
	url     string
	client  *http.Client
	records bool
	memo    *lru.Cache[string, Prediction]
}

type RemoteOption func(*RemoteModel)

// WithRecords sends named records instead of positional vectors.
func WithRecords() RemoteOption {
	return func(m *RemoteModel) { m.records = true }
}

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(m *RemoteModel) { m.client = c }
}

// WithMemo keeps up to size recent predictions keyed by their exact input.
func WithMemo(size int) RemoteOption {
	return func(m *RemoteModel) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, Prediction](size)
		if err == nil {
			m.memo = cache
		}
	}
}

func NewRemoteModel(url string, timeout time.Duration, opts ...RemoteOption) (*RemoteModel, error) {
	if url == "" {
		return nil, errors.New("remote model url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m := &RemoteModel{url: url, client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

type remoteRequest struct {
	Instances [][]float64      `json:"instances,omitempty"`
	Records   []map[string]any `json:"records,omitempty"`
}

type remoteResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Labels      []string    `json:"labels"`
	Error       string      `json:"error"`
}

func (m *RemoteModel) Predict(ctx context.Context, in Input) (Prediction, error) {
	var body remoteRequest
	if m.records {
		body.Records = []map[string]any{in.Fields}
	} else {
		body.Instances = [][]float64{in.Vector}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Prediction{}, err
	}

	key := string(payload)
	if m.memo != nil {
		if cached, ok := m.memo.Get(key); ok {
			return clonePrediction(cached), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return Prediction{}, fmt.Errorf("model server returned status %d", resp.StatusCode)
		}
		return Prediction{}, fmt.Errorf("decode model server response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return Prediction{}, fmt.Errorf("model server error: %s", out.Error)
		}
		return Prediction{}, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	var pred Prediction
	if len(out.Predictions) > 0 {
		pred.Values = out.Predictions[0]
	}
	if len(out.Labels) > 0 {
		pred.Label = out.Labels[0]
	}
	if len(pred.Values) == 0 && pred.Label == "" {
		return Prediction{}, errors.New("model server returned empty prediction")
	}

	if m.memo != nil {
		m.memo.Add(key, clonePrediction(pred))
	}
	return pred, nil
}

func clonePrediction(p Prediction) Prediction {
	p.Values = append([]float64(nil), p.Values...)
	return p
}
