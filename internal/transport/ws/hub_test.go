package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

func receive(t *testing.T, conn *Connection) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		return data, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub")
		return nil, false
	}
}

func TestHubBroadcastAndCloseRun(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	a := &Connection{RunID: "r1", Send: make(chan []byte, 8), Hub: hub}
	other := &Connection{RunID: "r2", Send: make(chan []byte, 8), Hub: hub}
	hub.Register(a)
	hub.Register(other)

	hub.Broadcast("r1", MsgPipelineEvent, model.StartedEvent(model.StepSearch, "Searching"))
	hub.CloseRun("r1")

	data, ok := receive(t, a)
	if !ok {
		t.Fatal("channel closed before the event")
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var ev model.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.Type != MsgPipelineEvent || ev.Status != model.StatusStarted {
		t.Fatalf("message = %+v, event = %+v", msg, ev)
	}

	if _, ok := receive(t, a); ok {
		t.Fatal("expected the channel to be closed")
	}
	select {
	case <-other.Send:
		t.Fatal("other run received a message")
	default:
	}

	// unregistering after close must not double close
	hub.Unregister(a)
	if n := hub.Watchers("r1"); n != 0 {
		t.Fatalf("watchers = %d", n)
	}
	if n := hub.Watchers("r2"); n != 1 {
		t.Fatalf("r2 watchers = %d", n)
	}
}
