package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/castlemilk/pocketai/internal/extraction"
	"github.com/castlemilk/pocketai/internal/service"
	"github.com/castlemilk/pocketai/internal/store"
	"go.uber.org/zap"
)

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// writeError maps service errors onto status codes. fallback is the message
// shown for unexpected failures; notFound is used for missing records.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback, notFound string) {
	var vErr *service.ValidationError
	var aErr *extraction.AnalysisError

	switch {
	case errors.As(err, &vErr):
		writeMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.As(err, &aErr) && aErr.Code == extraction.ErrGeminiNotConfigured:
		writeMessage(w, http.StatusInternalServerError, aErr.Message)
	case errors.As(err, &aErr) && aErr.Code == extraction.ErrInvalidImage:
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Unsupported image file", Error: aErr.Message})
	default:
		s.logger.Error("request error",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: fallback, Error: err.Error()})
	}
}
