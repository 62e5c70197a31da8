// Package sse writes server-sent events to an HTTP response
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/satriahrh/voxchat/domain"
)

// SSE event names written on the wire
const (
	// EventMessage carries a recognition, text or audio event
	EventMessage = "message"
	// EventError carries {"error": msg} and starts the error sequence
	EventError = "error"
	// EventDone ends the error sequence
	EventDone = "done"

	// ErrorTextPrefix starts the displayable text that follows an error event
	ErrorTextPrefix = "发生错误: "
)

// Writer serializes events onto one streaming response. Send is safe for
// concurrent use.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// New wraps w. The caller must call Start before the first Send.
func New(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &Writer{w: w, flusher: f}, nil
}

// Start writes the event-stream headers
func (sw *Writer) Start() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
	sw.flusher.Flush()
}

// Send writes one event with data encoded as JSON and flushes it
func (sw *Writer) Send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", string(b)); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Fail writes the error sequence: the error event, a displayable text
// message, and the done marker.
func (sw *Writer) Fail(message string) error {
	if err := sw.Send(EventError, map[string]string{"error": message}); err != nil {
		return err
	}
	if err := sw.Send(EventMessage, domain.TextEvent(ErrorTextPrefix+message)); err != nil {
		return err
	}
	return sw.Send(EventDone, map[string]string{"content": ""})
}

// Relay writes every event until the channel closes. Error events are written
// as the error sequence. It returns the first write error; the caller is
// expected to cancel the producer then.
func (sw *Writer) Relay(events <-chan domain.Event) error {
	for ev := range events {
		var err error
		if ev.Type == domain.EventError {
			err = sw.Fail(ev.Content)
		} else {
			err = sw.Send(EventMessage, ev)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
