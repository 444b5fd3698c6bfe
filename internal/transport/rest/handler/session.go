package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andrewy1n/platypus-academy/internal/logger"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Create handles POST /v1/sessions/create. The response is an event stream
// of the pipeline run followed by the session event.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.PipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stream, err := newSSEStream(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	session, err := h.sessionSvc.Create(r.Context(), req, stream)
	log := logger.FromContext(r.Context())
	switch {
	case err != nil:
		log.Warn("session stream ended early", "error", err)
	case session != nil:
		log.Info("session created", "session_id", session.ID, "questions", session.NumQuestions)
	}
}

// Get handles GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Questions handles GET /v1/sessions/{id}/questions
func (h *SessionHandler) Questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.sessionSvc.Questions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
