// Package pairing implements the §4.5 first-contact challenge: the first
// unauthorized DM from a bare JID under dmPolicy=pairing triggers an
// idempotent store upsert and a one-line instruction reply; every
// subsequent DM from the same bare JID is a silent no-op until an operator
// approves it out-of-band.
package pairing

import (
	"context"
	"fmt"
	"strings"

	"github.com/aiox-platform/xmpp-gateway/internal/collab"
)

const Channel = "xmpp"

// DefaultMaxChallengesPerMinute bounds how many UpsertPairingRequest calls a
// single bare JID can trigger per minute when a RateLimiter is configured.
const DefaultMaxChallengesPerMinute = 5

// Engine issues and tracks pairing challenges against a collab.PairingStore.
type Engine struct {
	store   collab.PairingStore
	limiter *RateLimiter
	maxRate int
}

// NewEngine wraps a pairing store.
func NewEngine(store collab.PairingStore) *Engine {
	return &Engine{store: store, maxRate: DefaultMaxChallengesPerMinute}
}

// WithRateLimiter attaches a Redis-backed RateLimiter bounding how often a
// single bare JID's messages reach UpsertPairingRequest at all, ahead of
// the store's own idempotent compare-and-set. Returns e for chaining.
func (e *Engine) WithRateLimiter(limiter *RateLimiter) *Engine {
	e.limiter = limiter
	return e
}

// Challenge upserts a pairing request for bareJID and, if this is the first
// time the store has seen it, returns the reply text to send. A nil reply
// (ok=false) means either the request already existed, the sender is over
// the challenge rate limit, or the store failed — callers treat all three
// as "no reply", per §7 ("pairing reply skipped, inbound still dropped" on
// PairingStoreError).
func (e *Engine) Challenge(ctx context.Context, bareJID string) (reply string, ok bool, err error) {
	id := strings.ToLower(bareJID)

	if e.limiter != nil {
		allowed, err := e.limiter.Allow(ctx, id, e.maxRate)
		if err != nil {
			return "", false, fmt.Errorf("checking pairing rate limit for %s: %w", id, err)
		}
		if !allowed {
			return "", false, nil
		}
	}

	created, err := e.store.UpsertPairingRequest(ctx, Channel, id)
	if err != nil {
		return "", false, fmt.Errorf("upserting pairing request for %s: %w", id, err)
	}
	if !created {
		return "", false, nil
	}
	return e.store.BuildPairingReply(Channel, id), true, nil
}

// Allowlist returns the channel's current pairing-approved bare JIDs for an
// account, merged by the policy engine into the effective DM/group
// allowlist (§4.4 "Effective DM allowlist = account allowFrom ∪ pairing
// store for channel").
func (e *Engine) Allowlist(ctx context.Context, accountID string) ([]string, error) {
	list, err := e.store.ReadAllowlist(ctx, Channel, accountID)
	if err != nil {
		return nil, fmt.Errorf("reading pairing allowlist: %w", err)
	}
	return list, nil
}

// ApprovedMessage is the fixed text for a bare JID whose pairing request an
// operator has approved out-of-band (§4.5 "notifyApproval"). No function in
// this module sends it; NATSStore.Approve only reports whether a request
// became newly approved.
const ApprovedMessage = "You're approved. You can message this account directly now."
