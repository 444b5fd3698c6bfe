package apperror

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrNotFound, http.StatusNotFound, "Session not found"), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("grade: %w", BadRequest("no answer")), http.StatusBadRequest},
		{"conflict sentinel", fmt.Errorf("create: %w", ErrConflict), http.StatusConflict},
		{"judgment", fmt.Errorf("grade: %w", ErrRequiresJudgment), http.StatusBadRequest},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("wrap: %w", NotFound("Question not found"))
	if got := Message(err); got != "Question not found" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(fmt.Errorf("plain")); got != "plain" {
		t.Fatalf("Message = %q", got)
	}
}
