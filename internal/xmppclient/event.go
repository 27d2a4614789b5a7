package xmppclient

import "github.com/aiox-platform/xmpp-gateway/internal/stanza"

// EventKind discriminates the events a Client surfaces to its monitor.
type EventKind int

const (
	EventOnline EventKind = iota
	EventOffline
	EventMessage
	EventPresence
	EventError
)

// Event is a tagged union of everything a Client reports to its caller;
// at most one payload field is populated, matching EventKind (none for
// EventOnline and EventOffline).
type Event struct {
	Kind     EventKind
	Message  *stanza.Message
	Presence *stanza.Presence
	Err      error
}
