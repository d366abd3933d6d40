package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/ThreadQA/internal/adapter"
	"github.com/akolanti/ThreadQA/internal/adapter/utils"
	"github.com/akolanti/ThreadQA/internal/api"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

var logRH *logger_i.Logger

// HealthHandler godoc
// @Summary      Health check
// @Description  Reports liveness plus the number of open sessions and loaded threads.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{
		Status:   "healthy",
		Sessions: svc.SessionCount(),
		Threads:  len(svc.Threads()),
	})
}

// ListThreadsHandler godoc
// @Summary      List threads
// @Description  Lists every thread that has a loaded index and can back a session.
// @Tags         Threads
// @Produce      json
// @Success      200  {object}  api.ThreadsResponse
// @Router       /threads [get]
func ListThreadsHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToThreadsResponse(svc.Threads()))
}

// StartSessionHandler godoc
// @Summary      Start a session
// @Description  Opens a conversational session scoped to one email thread.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request  body      api.StartSessionRequest  true  "Thread to search"
// @Success      201      {object}  api.StartSessionResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing thread_id"
// @Failure      404      {object}  api.ErrorResponse  "Unknown thread"
// @Router       /sessions [post]
func StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}

	var req api.StartSessionRequest
	if err := decodeBody(r.Body, &req); err != nil || strings.TrimSpace(req.ThreadId) == "" {
		requestLogger().Warn("Bad start session request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "thread_id is required")
		return
	}

	sessionId, err := svc.StartSession(r.Context(), req.ThreadId)
	if err != nil {
		writeServiceError(w, req.ThreadId, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToStartSessionResponse(sessionId, req.ThreadId))
}

// AskHandler godoc
// @Summary      Ask a question
// @Description  Runs one conversational turn: rewrite, hybrid retrieval, grounded answer.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "Session ID"
// @Param        request  body      api.AskRequest  true  "Question and optional top_k (1-10, default 5)"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.ErrorResponse  "Empty question or top_k out of range"
// @Failure      404      {object}  api.ErrorResponse  "Unknown session"
// @Router       /sessions/{id}/ask [post]
func AskHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	sessionId := utils.GetChiURLParam(r, "id")

	var req api.AskRequest
	if err := decodeBody(r.Body, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "Bad Request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "question is required")
		return
	}
	topK := config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 || topK > config.MaxTopK {
			WriteErrorResponse(w, http.StatusBadRequest, sessionId, fmt.Sprintf("top_k must be between 1 and %d", config.MaxTopK))
			return
		}
	}

	res, err := svc.Ask(r.Context(), sessionId, req.Question, topK)
	if err != nil {
		writeServiceError(w, sessionId, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAskResponse(res))
}

// ResetSessionHandler godoc
// @Summary      Reset a session
// @Description  Clears conversation memory and entities. The session id stays valid.
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.MessageResponse
// @Failure      404  {object}  api.ErrorResponse  "Unknown session"
// @Router       /sessions/{id}/reset [post]
func ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	sessionId := utils.GetChiURLParam(r, "id")
	if err := svc.ResetSession(r.Context(), sessionId); err != nil {
		writeServiceError(w, sessionId, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.MessageResponse{Message: "Session reset successfully"})
}

// EndSessionHandler godoc
// @Summary      End a session
// @Description  Drops the session. Later requests with its id return 404.
// @Tags         Sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse  "Unknown session"
// @Router       /sessions/{id} [delete]
func EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	sessionId := utils.GetChiURLParam(r, "id")
	if err := svc.EndSession(r.Context(), sessionId); err != nil {
		writeServiceError(w, sessionId, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEventsHandler godoc
// @Summary      Turn events
// @Description  Returns the recorded turn events (query_received, query_rewritten, retrieval_complete, answer_generated).
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.EventsResponse
// @Failure      404  {object}  api.ErrorResponse  "Unknown session"
// @Router       /sessions/{id}/events [get]
func GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	svc, ok := getService()
	if !ok || !validateContext(r.Context()) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	sessionId := utils.GetChiURLParam(r, "id")
	events, err := svc.Events(r.Context(), sessionId)
	if err != nil {
		writeServiceError(w, sessionId, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToEventsResponse(sessionId, events))
}
