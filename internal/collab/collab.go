// Package collab declares the interfaces the adapter consumes from its host
// (§6 "Host plugin API consumed"): the agent runtime, markdown/chunking,
// session store, routing table, activity ledger and pairing store are all
// out of scope for this module and modeled here as plain interfaces so the
// core packages (internal/inbound, internal/outbound, internal/pairing)
// depend on behavior, not on a concrete gateway implementation.
//
// Default NATS JetStream-backed implementations of ActivityRecorder,
// RoutingTable and SessionStore are provided alongside the interfaces
// (nats_defaults.go) for deployments that don't plug in their own.
package collab

import (
	"context"
	"time"
)

// DispatchRequest is the payload handed to the agent runtime for one
// eligible inbound message.
type DispatchRequest struct {
	AccountID      string
	MessageID      string
	Target         string
	SenderJID      string
	SenderBareJID  string
	SenderNickname string
	IsGroup        bool
	Text           string
	HistoryLimit   int
	Skills         []string
	Tools          []string
	SystemPrompt   string
	ResponsePrefix string
	BlockStreaming bool
}

// ReplyChunk is one piece of a (possibly streamed) agent reply.
type ReplyChunk struct {
	Text  string
	Final bool
}

// AgentRuntime turns an inbound message into a reply stream (§1 "out of
// scope: the agent runtime").
type AgentRuntime interface {
	Dispatch(ctx context.Context, req DispatchRequest) (<-chan ReplyChunk, error)
}

// Markdown converts agent-authored markdown into plain text suitable for an
// XMPP body, flattening constructs (tables, nested lists) that have no wire
// representation, and chunks long text into message-sized pieces.
type Markdown interface {
	ToPlainText(markdown string) string
	Chunk(text string, maxLen int) []string
}

// SessionRecord is the conversational state carried between turns.
type SessionRecord struct {
	AccountID string
	Target    string
	UpdatedAt time.Time
}

// SessionStore persists conversational session state keyed by
// (accountID, target).
type SessionStore interface {
	Load(ctx context.Context, accountID, target string) (SessionRecord, bool, error)
	Save(ctx context.Context, rec SessionRecord) error
}

// Route is the resolved destination for an inbound message.
type Route struct {
	AgentID   string
	SkillID   string
	ModelID   string
	Available bool
}

// RoutingTable resolves a channel/account/target triple to an agent route.
type RoutingTable interface {
	Resolve(ctx context.Context, accountID, target string) (Route, error)
}

// ActivityRecorder appends to the activity ledger (one entry per inbound or
// outbound message) for audit/observability (§6 "activity recorder").
type ActivityRecorder interface {
	RecordInbound(ctx context.Context, accountID, messageID, senderBareJID, target string, isGroup bool) error
	RecordOutbound(ctx context.Context, accountID, messageID, toJID string, isGroup bool) error
}

// PairingStore persists pairing requests and the resulting allowlist,
// keyed by (channel="xmpp", bareJID), idempotently across process restarts
// (§3 "Lifecycle": "persisted idempotently by the external pairing store").
type PairingStore interface {
	// UpsertPairingRequest records that bareJID attempted contact.
	// created=true only the first time a given bareJID is seen.
	UpsertPairingRequest(ctx context.Context, channel, bareJID string) (created bool, err error)
	// ReadAllowlist returns the bare JIDs approved for this channel/account.
	ReadAllowlist(ctx context.Context, channel, accountID string) ([]string, error)
	// BuildPairingReply renders the first-contact instruction message.
	BuildPairingReply(channel, bareJID string) string
}

// CommandGate is implemented by the host's command detector/authorizer; it
// mirrors internal/policy.CommandGate so callers can satisfy both with one
// concrete type without internal/policy importing this package.
type CommandGate interface {
	IsCommand(body string) (isCommand bool, channelAllowsCommands bool)
}
