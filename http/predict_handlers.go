package http

import (
	"fmt"
	"math"
	"net/http"

	"cropclock/market"
	"cropclock/ml"
	"cropclock/pipeline"
)

const fertilizerErrorPrefix = "Invalid input or unseen category: "

type cropResponse struct {
	Crop string `json:"crop"`
}

type fertilizerResponse struct {
	RecommendedFertilizer string `json:"Recommended_Fertilizer"`
}

type npkResponse struct {
	N int `json:"N"`
	P int `json:"P"`
	K int `json:"K"`
}

// buildFunc 把模型输出转成响应体
type buildFunc func(n *pipeline.Normalized, pred ml.Prediction) (any, error)

// servePrediction 解析 -> 校验 -> 预测 -> 组装响应
func (h *Handlers) servePrediction(w http.ResponseWriter, r *http.Request, task ml.Task, schema pipeline.Schema, errPrefix string, build buildFunc) {
	status := http.StatusOK
	defer func() { h.metrics.ObservePrediction(string(task), outcomeFor(status)) }()

	fail := func(err error) {
		status = h.writeError(w, r, err, errPrefix)
	}

	input, err := pipeline.DecodeJSON(r.Body)
	if err != nil {
		fail(err)
		return
	}
	normalized, err := pipeline.Normalize(input, schema, h.encoders)
	if err != nil {
		fail(err)
		return
	}
	pred, err := h.models.Predict(r.Context(), task, normalized.Input())
	if err != nil {
		fail(err)
		return
	}
	body, err := build(normalized, pred)
	if err != nil {
		fail(err)
		return
	}
	writeJSON(w, status, body)
}

func (h *Handlers) handlePredictCrop(w http.ResponseWriter, r *http.Request) {
	h.servePrediction(w, r, ml.TaskCrop, pipeline.CropSchema, "", func(n *pipeline.Normalized, pred ml.Prediction) (any, error) {
		if pred.Label == "" {
			return nil, &ml.PredictionFailureError{Task: ml.TaskCrop, Detail: "model returned no crop label"}
		}
		return cropResponse{Crop: pred.Label}, nil
	})
}

func (h *Handlers) handlePredictPrice(w http.ResponseWriter, r *http.Request) {
	h.servePrediction(w, r, ml.TaskPrice, pipeline.PriceSchema, "", func(n *pipeline.Normalized, pred ml.Prediction) (any, error) {
		if len(pred.Values) == 0 {
			return nil, &ml.PredictionFailureError{Task: ml.TaskPrice, Detail: "model returned no price"}
		}
		quote := market.NewQuote(
			pred.Values[0],
			n.Number("Stock_kg"),
			n.Number("Demand_Index"),
			n.Number("Storage_Cost_Index"),
		)
		if !quote.Finite() {
			return nil, &ml.PredictionFailureError{Task: ml.TaskPrice, Detail: "price arithmetic overflowed"}
		}
		return quote, nil
	})
}

func (h *Handlers) handlePredictFertilizer(w http.ResponseWriter, r *http.Request) {
	h.servePrediction(w, r, ml.TaskFertilizer, pipeline.FertilizerSchema, fertilizerErrorPrefix, func(n *pipeline.Normalized, pred ml.Prediction) (any, error) {
		if pred.Label != "" {
			return fertilizerResponse{RecommendedFertilizer: pred.Label}, nil
		}
		if len(pred.Values) == 0 {
			return nil, &ml.PredictionFailureError{Task: ml.TaskFertilizer, Detail: "model returned no class"}
		}
		code := pred.Values[0]
		if code != math.Trunc(code) {
			return nil, &ml.PredictionFailureError{Task: ml.TaskFertilizer, Detail: fmt.Sprintf("class code %v is not an integer", code)}
		}
		label, err := h.encoders.Decode(ml.FieldFertilizer, int(code))
		if err != nil {
			return nil, err
		}
		return fertilizerResponse{RecommendedFertilizer: label}, nil
	})
}

func (h *Handlers) handlePredictNPK(w http.ResponseWriter, r *http.Request) {
	h.servePrediction(w, r, ml.TaskNPK, pipeline.NPKSchema, "", func(n *pipeline.Normalized, pred ml.Prediction) (any, error) {
		if len(pred.Values) != 3 {
			return nil, &ml.PredictionFailureError{Task: ml.TaskNPK, Detail: fmt.Sprintf("expected 3 outputs, got %d", len(pred.Values))}
		}
		var npk [3]int
		for i, v := range pred.Values {
			r := math.Round(v)
			if r < math.MinInt32 || r > math.MaxInt32 {
				return nil, &ml.PredictionFailureError{Task: ml.TaskNPK, Detail: fmt.Sprintf("output %d (%g) out of range", i, v)}
			}
			npk[i] = int(r)
		}
		return npkResponse{N: npk[0], P: npk[1], K: npk[2]}, nil
	})
}
