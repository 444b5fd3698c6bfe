package cache

import (
	"testing"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

func TestParseStats(t *testing.T) {
	t.Parallel()
	got := parseStats(map[string]string{
		"mcq:total":          "4",
		"mcq:correct":        "3",
		"short_answer:total": "2",
		"garbage":            "7",
		"tf:total":           "x",
	})
	if len(got) != 2 {
		t.Fatalf("types = %d, want 2: %+v", len(got), got)
	}
	mcq := got[model.QuestionTypeMultipleChoice]
	if mcq.Correct != 3 || mcq.Total != 4 || mcq.Percentage != 75 {
		t.Fatalf("mcq = %+v", mcq)
	}
	sa := got[model.QuestionTypeShortAnswer]
	if sa.Correct != 0 || sa.Total != 2 || sa.Percentage != 0 {
		t.Fatalf("short answer = %+v", sa)
	}
}
