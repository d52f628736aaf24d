package authclient

import (
	"encoding/json"
	"io"

	"github.com/ledgerdocs/authclient/internal/event"
	"github.com/ledgerdocs/authclient/transport"
)

// User is the identity of the signed-in principal, as returned by the
// remote authentication API.
type User = transport.User

// Phase is the confirmation phase of the current session. A restored
// snapshot yields [PhaseTentative] until the remote endpoint confirms or
// denies it; direct authentication yields [PhaseConfirmed] immediately.
type Phase uint8

const (
	// PhaseUnauthenticated means no principal is signed in.
	PhaseUnauthenticated Phase = iota
	// PhaseTentative means the session was restored from the snapshot and
	// awaits remote confirmation. It counts as authenticated.
	PhaseTentative
	// PhaseConfirmed means the remote endpoint has vouched for the session.
	PhaseConfirmed
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseTentative:
		return "tentative"
	case PhaseConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Credentials is the input to [Manager.Login]. Both fields are required.
type Credentials struct {
	Email    string
	Password string
}

// Registration is the input to [Manager.Register]. All fields are required.
type Registration struct {
	Email    string
	Password string
	Name     string
}

// AdminCredentials is the input to [Manager.AdminLogin]. Both fields are
// required.
type AdminCredentials struct {
	Email         string
	AdminPassword string
}

// State is a point-in-time copy of the session, safe to retain after the
// Manager moves on.
type State struct {
	// User is the signed-in principal, or nil when unauthenticated.
	User *User

	// AuxiliaryData is the opaque server-defined payload returned
	// alongside login, passed through unchanged.
	AuxiliaryData json.RawMessage

	// Phase is the confirmation phase backing Authenticated.
	Phase Phase

	// Authenticated is true iff User is present and the session is
	// tentative or confirmed.
	Authenticated bool

	// Loading is true while any session-affecting operation is in flight.
	Loading bool

	// LastError is the normalized message of the most recent failed
	// operation, or empty. Cleared by ClearError and by the next
	// successful operation.
	LastError string
}

// SessionEvent is a structured record of one session-affecting outcome.
type SessionEvent = event.Event

// EventType names a session-affecting outcome in a [SessionEvent].
type EventType = event.Type

// EventSink receives [SessionEvent] values from the Manager's dispatcher.
type EventSink = event.Sink

// NoOpSink is an [EventSink] that silently discards all events.
type NoOpSink = event.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = event.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = event.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return event.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return event.NewJSONWriterSink(w)
}
