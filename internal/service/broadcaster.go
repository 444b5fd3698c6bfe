package service

import "github.com/andrewy1n/platypus-academy/internal/model"

// EventSink receives the events of one streamed operation (avoids import
// cycle with the transports). An error from Send stops the operation.
type EventSink interface {
	Send(ev model.Event) error
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(ev model.Event) error

func (f SinkFunc) Send(ev model.Event) error { return f(ev) }

// Discard drops every event
var Discard EventSink = SinkFunc(func(model.Event) error { return nil })
