package service

import (
	"context"
	"strings"
	"testing"

	"github.com/andrewy1n/platypus-academy/internal/ingest"
	"github.com/andrewy1n/platypus-academy/internal/model"
)

type fakeReplier struct {
	reply   string
	prompts []string
	history [][]model.AssistantMessage
}

func (f *fakeReplier) Reply(ctx context.Context, system string, history []model.AssistantMessage, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.history = append(f.history, history)
	return f.reply, nil
}

type fakeChunks struct {
	chunks []ingest.StoredChunk
}

func (f *fakeChunks) Lookup(ctx context.Context, sourceURL, query string, limit int) ([]ingest.StoredChunk, error) {
	return f.chunks, nil
}

func TestAssistantAskBuildsContextAndStoresTurns(t *testing.T) {
	t.Parallel()

	q := sessionQuestion("q1", "s1", model.Numeric{Answer: 6}, strPtr("5"))
	q.Question.Text = "How many carbon atoms in glucose?"
	q.Question.SourceURL = "https://openstax.org/chem"
	questions := newFakeQuestionRepo(q)
	sessions := newFakeSessionRepo()
	_ = sessions.Create(context.Background(), &model.Session{ID: "s1", Subject: "chemistry", Topics: []string{"sugars"}, Mode: model.ModePractice})

	replier := &fakeReplier{reply: "Count the C in C6H12O6."}
	history := newFakeHistory()
	convs := newFakeConversationRepo()
	svc := NewAssistantService(replier, history, convs, questions, sessions)
	svc.SetChunkLookup(&fakeChunks{chunks: []ingest.StoredChunk{{Text: "Glucose has the formula C6H12O6."}}})

	resp, err := svc.Ask(context.Background(), model.AssistantRequest{
		QuestionID:   "q1",
		SessionID:    "s1",
		UserQuestion: "Why is my answer wrong?",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.ConversationID == "" || resp.Message != replier.reply {
		t.Fatalf("response = %+v", resp)
	}

	prompt := replier.prompts[0]
	for _, want := range []string{"chemistry", "How many carbon atoms", "Student's answer so far: 5", "C6H12O6", "Student: Why is my answer wrong?"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	conv, err := svc.Conversation(context.Background(), resp.ConversationID)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Role != model.RoleUser || conv.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("messages = %+v", conv.Messages)
	}

	// second turn reuses the cached history
	if _, err := svc.Ask(context.Background(), model.AssistantRequest{ConversationID: resp.ConversationID, UserQuestion: "And hydrogen?"}); err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	if len(replier.history[1]) != 2 {
		t.Fatalf("second turn saw %d history messages, want 2", len(replier.history[1]))
	}
	conv, _ = svc.Conversation(context.Background(), resp.ConversationID)
	if len(conv.Messages) != 4 {
		t.Fatalf("stored %d messages, want 4", len(conv.Messages))
	}
}

func TestAssistantHistoryFallsBackToStore(t *testing.T) {
	t.Parallel()

	convs := newFakeConversationRepo()
	_ = convs.Save(context.Background(), &model.Conversation{
		ID: "c1",
		Messages: []model.AssistantMessage{
			{Role: model.RoleUser, Content: "q"},
			{Role: model.RoleAssistant, Content: "a"},
		},
	})
	replier := &fakeReplier{reply: "ok"}
	history := newFakeHistory()
	svc := NewAssistantService(replier, history, convs, newFakeQuestionRepo(), newFakeSessionRepo())

	if _, err := svc.Ask(context.Background(), model.AssistantRequest{ConversationID: "c1", UserQuestion: "more"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(replier.history[0]) != 2 {
		t.Fatalf("history = %+v", replier.history[0])
	}
	cached, _ := history.Get(context.Background(), "c1")
	if len(cached) != 4 {
		t.Fatalf("cache holds %d messages, want 4", len(cached))
	}
}

func TestAssistantRejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	svc := NewAssistantService(&fakeReplier{}, newFakeHistory(), newFakeConversationRepo(), newFakeQuestionRepo(), newFakeSessionRepo())
	if _, err := svc.Ask(context.Background(), model.AssistantRequest{UserQuestion: "  "}); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := svc.Conversation(context.Background(), "none"); err == nil {
		t.Fatal("expected not found")
	}
}
