// Package xerr defines the typed error kinds described in spec §7, so
// callers can branch with errors.As instead of matching on message text.
package xerr

import "fmt"

// Kind categorizes an adapter error.
type Kind string

const (
	KindConfig        Kind = "config"         // missing JID/password
	KindTransport     Kind = "transport"       // connect/timeout/closed
	KindAuth          Kind = "auth"            // SASL failure
	KindStanzaDecode  Kind = "stanza_decode"   // dropped, logged, never fatal
	KindInvalidTarget Kind = "invalid_target"  // outbound rejected
	KindPairingStore  Kind = "pairing_store"   // pairing reply skipped, inbound still dropped
	KindDispatch      Kind = "dispatch"        // reply callback failed
)

// Error wraps an underlying cause with a Kind and optional structured
// context, matching the wrap-with-%w convention used throughout
// internal/governance/quota and internal/orchestrator rather than
// sentinel string errors.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "connect", "sendMessage"
	Err     error
	Context map[string]string
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithContext attaches structured fields for logging and returns e for
// chaining.
func (e *Error) WithContext(kv map[string]string) *Error {
	e.Context = kv
	return e
}

// Config, Transport, Auth, StanzaDecode, InvalidTarget, PairingStore and
// Dispatch are small constructors for the kinds above.
func Config(op string, err error) *Error        { return New(KindConfig, op, err) }
func Transport(op string, err error) *Error      { return New(KindTransport, op, err) }
func Auth(op string, err error) *Error           { return New(KindAuth, op, err) }
func StanzaDecode(op string, err error) *Error   { return New(KindStanzaDecode, op, err) }
func InvalidTarget(op string, err error) *Error  { return New(KindInvalidTarget, op, err) }
func PairingStore(op string, err error) *Error   { return New(KindPairingStore, op, err) }
func Dispatch(op string, err error) *Error       { return New(KindDispatch, op, err) }

// DispatchKind distinguishes a streamed reply failure from a single
// block-mode reply failure, per §7 "{kind: stream|block}".
type DispatchKind string

const (
	DispatchStream DispatchKind = "stream"
	DispatchBlock  DispatchKind = "block"
)
