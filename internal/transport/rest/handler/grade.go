package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andrewy1n/platypus-academy/internal/logger"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

// GradeHandler handles grading endpoints
type GradeHandler struct {
	gradeSvc *service.GradeService
}

func NewGradeHandler(gradeSvc *service.GradeService) *GradeHandler {
	return &GradeHandler{gradeSvc: gradeSvc}
}

// Question handles POST /v1/grade/question/{id}
func (h *GradeHandler) Question(w http.ResponseWriter, r *http.Request) {
	result, err := h.gradeSvc.GradeQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Session handles POST /v1/grade/session/{id}
func (h *GradeHandler) Session(w http.ResponseWriter, r *http.Request) {
	report, err := h.gradeSvc.GradeSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FreeResponse handles POST /v1/grade/free-response as an event stream
func (h *GradeHandler) FreeResponse(w http.ResponseWriter, r *http.Request) {
	var req service.FreeResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	stream, err := newSSEStream(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.gradeSvc.GradeFreeResponse(r.Context(), req, stream); err != nil {
		logger.FromContext(r.Context()).Warn("grade stream ended early", "error", err)
	}
}
