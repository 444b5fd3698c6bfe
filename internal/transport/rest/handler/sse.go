package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// sseStream writes events as text/event-stream frames
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	r       *http.Request
}

func newSSEStream(w http.ResponseWriter, r *http.Request) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseStream{w: w, flusher: flusher, r: r}, nil
}

// Send implements service.EventSink
func (s *sseStream) Send(ev model.Event) error {
	if err := s.r.Context().Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
