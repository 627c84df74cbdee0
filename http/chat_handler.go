package http

import (
	"errors"
	"net/http"

	"cropclock/llm"
	"cropclock/pipeline"
)

type chatResponse struct {
	Reply string `json:"reply"`
}

func (h *Handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	input, err := pipeline.DecodeJSON(r.Body)
	if err != nil {
		h.metrics.ObserveChat("invalid")
		h.writeError(w, r, err, "")
		return
	}
	normalized, err := pipeline.Normalize(input, pipeline.ChatSchema, nil)
	if err != nil {
		h.metrics.ObserveChat("invalid")
		h.writeError(w, r, err, "")
		return
	}

	reply, err := h.relay.Send(r.Context(), normalized.String("message"))
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, llm.ErrEmptyInput):
			outcome = "invalid"
		case errors.Is(err, llm.ErrRelayUnavailable):
			outcome = "unavailable"
		}
		h.metrics.ObserveChat(outcome)
		h.writeError(w, r, err, "")
		return
	}

	h.metrics.ObserveChat("ok")
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
