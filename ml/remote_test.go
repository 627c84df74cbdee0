package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteModelVector(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body remoteRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body.Instances, 1) {
			assert.Equal(t, []float64{1, 2, 3}, body.Instances[0])
		}
		_, _ = w.Write([]byte(`{"predictions": [[2500]]}`))
	}))
	defer srv.Close()

	model, err := NewRemoteModel(srv.URL, time.Second, WithMemo(8))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		pred, err := model.Predict(context.Background(), Input{Vector: []float64{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, []float64{2500}, pred.Values)
	}
	assert.Equal(t, int32(1), calls.Load(), "identical inputs should be served from the memo")
}

func TestRemoteModelRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body remoteRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body.Records, 1) {
			assert.Equal(t, "Clay", body.Records[0]["soil_type"])
		}
		_, _ = w.Write([]byte(`{"predictions": [[80.4, 25.1, 30.6]], "labels": []}`))
	}))
	defer srv.Close()

	model, err := NewRemoteModel(srv.URL, time.Second, WithRecords())
	require.NoError(t, err)

	pred, err := model.Predict(context.Background(), Input{Fields: map[string]any{"soil_type": "Clay"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{80.4, 25.1, 30.6}, pred.Values)
}

func TestRemoteModelLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels": ["rice"]}`))
	}))
	defer srv.Close()

	model, err := NewRemoteModel(srv.URL, time.Second)
	require.NoError(t, err)

	pred, err := model.Predict(context.Background(), Input{Vector: []float64{1}})
	require.NoError(t, err)
	assert.Equal(t, "rice", pred.Label)
}

func TestRemoteModelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "X has 6 features, but model expects 7"}`))
		case "/empty":
			_, _ = w.Write([]byte(`{"predictions": []}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	defer srv.Close()

	for path, want := range map[string]string{
		"/status": "expects 7",
		"/empty":  "empty prediction",
		"/html":   "status 502",
	} {
		model, err := NewRemoteModel(srv.URL+path, time.Second)
		require.NoError(t, err)
		_, err = model.Predict(context.Background(), Input{Vector: []float64{1}})
		require.Error(t, err, path)
		assert.Contains(t, err.Error(), want, path)
	}

	_, err := NewRemoteModel("", time.Second)
	assert.Error(t, err)
}
