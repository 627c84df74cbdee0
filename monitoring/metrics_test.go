package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("/predict", 200, 15*time.Millisecond)
	m.ObserveRequest("/predict", 200, 20*time.Millisecond)
	m.ObserveRequest("/predict", 400, time.Millisecond)
	m.ObservePrediction("crop", "ok")
	m.ObserveChat("unavailable")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/predict", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/predict", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("crop", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatTurns.WithLabelValues("unavailable")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObservePrediction("price", "error")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `cropclock_predictions_total{outcome="error",task="price"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/chat", 500, time.Second)
	m.ObservePrediction("npk", "ok")
	m.ObserveChat("ok")
}
