package http

import (
	"net/http"

	"cropclock/llm"
	"cropclock/ml"
	"cropclock/monitoring"

	"go.uber.org/zap"
)

// Handlers 持有请求处理所需的全部依赖，启动后只读
type Handlers struct {
	encoders *ml.EncoderRegistry
	models   *ml.Registry
	relay    *llm.Relay
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// Dependencies 构造 Handlers 的参数，允许为空的依赖会在请求时返回500
type Dependencies struct {
	Encoders *ml.EncoderRegistry
	Models   *ml.Registry
	Relay    *llm.Relay
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

func NewHandlers(deps Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		encoders: deps.Encoders,
		models:   deps.Models,
		relay:    deps.Relay,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredictCrop)
	mux.HandleFunc("POST /predict_price", h.handlePredictPrice)
	mux.HandleFunc("POST /predict_fertilizer", h.handlePredictFertilizer)
	mux.HandleFunc("POST /predict_npk", h.handlePredictNPK)
	mux.HandleFunc("POST /chat", h.handleChat)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

type healthResponse struct {
	Status string           `json:"status"`
	Models map[ml.Task]bool `json:"models"`
	Chat   bool             `json:"chat"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	models := make(map[ml.Task]bool, len(ml.Tasks()))
	for _, task := range ml.Tasks() {
		models[task] = h.models.Loaded(task)
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Models: models,
		Chat:   h.relay.Available(),
	})
}
