package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/ThreadQA/internal/adapter"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

const maxBodySize = 1 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, nothing left to tell the client
		requestLogger().Error("Error encoding response", "error", err)
	}
}

func requestLogger() *logger_i.Logger {
	if logRH == nil {
		logRH = logger_i.NewLogger("RequestHandler")
	}
	return logRH
}

func validateContext(ctx context.Context) bool {
	log := requestLogger()
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		log = log.With("traceId", traceId)
	}
	if ctx.Err() != nil {
		log.Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func decodeBody(body io.ReadCloser, target interface{}) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			requestLogger().Error("Couldn't close the request body", "error", err)
		}
	}(body)
	return json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(target)
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeServiceError maps the domain sentinels onto HTTP codes.
func writeServiceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, commonModels.ErrUnknownSession):
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
	case errors.Is(err, commonModels.ErrUnknownThread):
		WriteErrorResponse(w, http.StatusNotFound, id, "Thread not found")
	case errors.Is(err, commonModels.ErrEmptyQuestion), errors.Is(err, commonModels.ErrInvalidTopK):
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
	default:
		requestLogger().Error("request failed", "id", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
	}
}
