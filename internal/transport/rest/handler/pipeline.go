package handler

import (
	"net/http"

	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

// PipelineHandler registers runs that a WebSocket client attaches to later
type PipelineHandler struct {
	runSvc *service.RunService
}

func NewPipelineHandler(runSvc *service.RunService) *PipelineHandler {
	return &PipelineHandler{runSvc: runSvc}
}

// Register handles POST /v1/pipelines
func (h *PipelineHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.PipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	run, err := h.runSvc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}
