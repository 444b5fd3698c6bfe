package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andrewy1n/platypus-academy/internal/service"
)

type QuestionHandler struct {
	questionSvc *service.QuestionService
}

func NewQuestionHandler(questionSvc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// SaveAnswerRequest is the request body for saving a student answer
type SaveAnswerRequest struct {
	Answer string `json:"answer"`
}

// Get handles GET /v1/questions/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.questionSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// SaveAnswer handles POST /v1/questions/{id}/save-answer
func (h *QuestionHandler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	var req SaveAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.questionSvc.SaveAnswer(r.Context(), mux.Vars(r)["id"], req.Answer); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Answer saved successfully"})
}
