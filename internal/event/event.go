// Package event carries the session event model used by internal dispatching
// and root APIs. Events describe session-affecting outcomes (login, logout,
// refresh, invalidation) so embedders can react to state changes without
// polling the Manager.
package event

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Type names a session-affecting outcome.
type Type string

const (
	TypeLogin       Type = "login"
	TypeGoogleLogin Type = "google_login"
	TypeRegister    Type = "register"
	TypeAdminLogin  Type = "admin_login"
	TypeLogout      Type = "logout"
	TypeRefresh     Type = "refresh"
	TypeVerify      Type = "verify"
	TypeInvalidated Type = "session_invalidated"
	TypeRestore     Type = "snapshot_restore"
)

// Event is one session-affecting outcome.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Background bool      `json:"background,omitempty"`
}

// Sink receives emitted session events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops session events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes session events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
