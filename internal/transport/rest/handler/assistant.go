package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

type AssistantHandler struct {
	assistantSvc *service.AssistantService
}

func NewAssistantHandler(assistantSvc *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantSvc: assistantSvc}
}

// Ask handles POST /v1/assistant
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req model.AssistantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.assistantSvc.Ask(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Conversation handles GET /v1/assistant/{conversationId}
func (h *AssistantHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.assistantSvc.Conversation(r.Context(), mux.Vars(r)["conversationId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
