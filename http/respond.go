package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cropclock/llm"
	"cropclock/ml"
	"cropclock/pipeline"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON 先序列化再写状态码，序列化失败时改写为500错误信封
func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload, _ = json.Marshal(errorBody{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}

// statusFor 请求体超限返回413，校验类错误返回400，配置/依赖类错误返回500
func statusFor(err error) int {
	var (
		missing *pipeline.MissingFieldError
		invalid *pipeline.InvalidTypeError
		unknown *ml.UnknownCategoryError
	)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch {
	case errors.Is(err, pipeline.ErrMalformedBody),
		errors.Is(err, llm.ErrEmptyInput),
		errors.As(err, &missing),
		errors.As(err, &invalid),
		errors.As(err, &unknown):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(status int) string {
	switch {
	case status < 300:
		return "ok"
	case status < 500:
		return "invalid"
	default:
		return "error"
	}
}

// writeError 输出错误信封 {"error": "..."}
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, prefix string) int {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusBadRequest && prefix != "" {
		msg = prefix + msg
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg})
	return status
}
