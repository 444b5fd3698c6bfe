package model

import "testing"

func TestPipelineState_Advance(t *testing.T) {
	t.Parallel()

	s := NewPipelineState(PipelineRequest{Subject: "Math"})
	for _, st := range []Stage{StageSearching, StageParsing, StageValidating, StageCompleted} {
		if err := s.Advance(st); err != nil {
			t.Fatalf("advance to %s: %v", st, err)
		}
	}
	if err := s.Advance(StageFailed); err == nil {
		t.Fatalf("expected error leaving a terminal stage")
	}

	back := NewPipelineState(PipelineRequest{})
	_ = back.Advance(StageParsing)
	if err := back.Advance(StageSearching); err == nil {
		t.Fatalf("expected error moving backwards")
	}
	if err := back.Advance(StageParsing); err == nil {
		t.Fatalf("expected error re-entering a stage")
	}

	back.Fail("boom")
	if back.CurrentStage != StageFailed || back.ErrorMessage != "boom" {
		t.Fatalf("unexpected failed state %+v", back)
	}
}

func TestPipelineRequest_Validate(t *testing.T) {
	t.Parallel()

	ok := PipelineRequest{Subject: "Chemistry", NumQuestionsRange: CountRange{Min: 2, Max: 4}, Mode: ModeTest}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := []PipelineRequest{
		{Subject: " ", NumQuestionsRange: CountRange{Min: 1, Max: 1}, Mode: ModePractice},
		{Subject: "x", NumQuestionsRange: CountRange{Min: 0, Max: 1}, Mode: ModePractice},
		{Subject: "x", NumQuestionsRange: CountRange{Min: 3, Max: 2}, Mode: ModePractice},
		{Subject: "x", NumQuestionsRange: CountRange{Min: 1, Max: 2}, Mode: "exam"},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
