package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	chatTurns   *prometheus.CounterVec
}

// NewMetrics 创建指标收集器，每个实例使用独立的 registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropclock",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cropclock",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropclock",
			Name:      "predictions_total",
			Help:      "Predictions by task and outcome.",
		}, []string{"task", "outcome"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropclock",
			Name:      "chat_turns_total",
			Help:      "Chat relay turns by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.predictions, m.chatTurns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest 记录一次HTTP请求
func (m *Metrics) ObserveRequest(route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// ObservePrediction 记录一次预测，outcome 为 ok/invalid/error
func (m *Metrics) ObservePrediction(task, outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(task, outcome).Inc()
}

// ObserveChat 记录一次聊天
func (m *Metrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
