// Package monitor runs the per-account supervisor loop (§5): it binds one
// account to one internal/xmppclient.Client, drains that client's event
// channel in receive order, and feeds each event through the §4.4 policy
// gate, the §4.5 pairing engine, and the §4.6 inbound pipeline, serially
// for this account. Multiple Monitors run concurrently, one per enabled
// account, mirroring internal/xmpp/component.go's one-component-per-process
// loop generalized to one-client-per-account.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/collab"
	"github.com/aiox-platform/xmpp-gateway/internal/inbound"
	"github.com/aiox-platform/xmpp-gateway/internal/jid"
	"github.com/aiox-platform/xmpp-gateway/internal/metrics"
	"github.com/aiox-platform/xmpp-gateway/internal/outbound"
	"github.com/aiox-platform/xmpp-gateway/internal/pairing"
	"github.com/aiox-platform/xmpp-gateway/internal/policy"
	"github.com/aiox-platform/xmpp-gateway/internal/presence"
	"github.com/aiox-platform/xmpp-gateway/internal/stanza"
	"github.com/aiox-platform/xmpp-gateway/internal/xmppclient"
)

// Client is the subset of *xmppclient.Client a Monitor drives.
type Client interface {
	Connect(ctx context.Context) error
	Events() <-chan xmppclient.Event
	Send(raw string) error
	State() xmppclient.State
	Stop()
}

// Deps bundles the collaborators a Monitor wires the inbound pipeline and
// outbound sender to.
type Deps struct {
	Pairing  *pairing.Engine
	Commands policy.CommandGate
	Activity collab.ActivityRecorder
	Routing  collab.RoutingTable
	Sessions collab.SessionStore
	Agent    collab.AgentRuntime
	Markdown collab.Markdown
}

// Monitor supervises one account's client.
type Monitor struct {
	acct     account.Account
	client   Client
	deps     Deps
	pipeline *inbound.Pipeline
	sender   *outbound.Dispatcher
	presence *presence.Tracker
	log      *slog.Logger
}

// New builds a Monitor for acct. client must already be built (unconnected)
// for this account, e.g. via xmppclient.New(acct).
func New(acct account.Account, client Client, deps Deps) *Monitor {
	pipeline := inbound.NewPipeline(acct.AccountID, inbound.Deps{
		Activity: deps.Activity,
		Routing:  deps.Routing,
		Sessions: deps.Sessions,
		Agent:    deps.Agent,
	})
	sender := outbound.NewDispatcher(nil, deps.Markdown, deps.Activity)
	return &Monitor{
		acct:     acct,
		client:   client,
		deps:     deps,
		pipeline: pipeline,
		sender:   sender,
		presence: presence.NewTracker(),
		log:      slog.With("account", acct.AccountID),
	}
}

// Presence exposes this account's presence tracker, read-only state shared
// with nothing else (§5 "The presence tracker is per-account and not
// shared").
func (m *Monitor) Presence() *presence.Tracker { return m.presence }

// Run connects the client and serves its events until ctx is cancelled or
// the client's event channel closes. It never returns early on a single
// bad stanza; decode and dispatch failures are logged and counted, not
// fatal (§5 "stanza decode errors are logged and the stanza dropped").
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.client.Connect(ctx); err != nil {
		metrics.XMPPConnectionsTotal.WithLabelValues(m.acct.AccountID, "failure").Inc()
		return err
	}
	metrics.XMPPConnectionsTotal.WithLabelValues(m.acct.AccountID, "success").Inc()
	metrics.XMPPConnectionsActive.WithLabelValues(m.acct.AccountID).Set(1)
	defer metrics.XMPPConnectionsActive.WithLabelValues(m.acct.AccountID).Set(0)

	defer m.client.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-m.client.Events():
			if !ok {
				return nil
			}
			m.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one client event to completion. Events for a
// single account are consumed off the channel in order and handled to
// completion before the next is read, preserving the §5 per-account
// serialization guarantee. Exported so tests can drive a Monitor
// synchronously without racing Run's event loop against cancellation.
func (m *Monitor) HandleEvent(ctx context.Context, ev xmppclient.Event) {
	switch ev.Kind {
	case xmppclient.EventOnline:
		m.log.Info("xmpp client online")
	case xmppclient.EventOffline:
		m.log.Info("xmpp client offline")
		metrics.XMPPConnectionsActive.WithLabelValues(m.acct.AccountID).Set(0)
	case xmppclient.EventError:
		m.log.Warn("xmpp client error", "error", ev.Err)
	case xmppclient.EventPresence:
		m.handlePresence(ev.Presence)
	case xmppclient.EventMessage:
		metrics.XMPPStanzasInTotal.WithLabelValues(m.acct.AccountID, "message").Inc()
		m.handleMessage(ctx, ev.Message)
	}
}

func (m *Monitor) handlePresence(p *stanza.Presence) {
	if p == nil {
		return
	}
	metrics.XMPPStanzasInTotal.WithLabelValues(m.acct.AccountID, "presence").Inc()
	j, ok := jid.Parse(p.From)
	if !ok {
		return
	}
	available := p.Type != "unavailable"
	var priority int8
	if p.Priority != nil {
		priority = *p.Priority
	}
	m.presence.Update(j.Bare(), available, p.Status, p.Show, priority)
}

func (m *Monitor) handleMessage(ctx context.Context, msg *stanza.Message) {
	if msg == nil {
		return
	}
	from, ok := jid.Parse(msg.From)
	if !ok {
		m.log.Warn("dropping message with unparsable sender", "from", msg.From)
		return
	}
	isGroup := jid.IsRoom(from.Bare())

	target := from.Bare()
	senderBare := from.Bare()
	senderNick := ""
	if isGroup {
		senderNick = from.Resource
	}

	pmsg := policy.Message{
		IsGroup:        isGroup,
		Target:         target,
		SenderJID:      msg.From,
		SenderBareJID:  senderBare,
		SenderNickname: senderNick,
		Body:           msg.Body,
	}

	allowlist := m.pairingAllowlist(ctx)
	decision := policy.Decide(pmsg, m.acct.JID, m.acct.Config, policy.Deps{
		PairingAllowlist: allowlist,
		Commands:         m.deps.Commands,
	})

	if !decision.Allow {
		metrics.XMPPPolicyDropsTotal.WithLabelValues(m.acct.AccountID, decision.Reason).Inc()
		m.log.Info("inbound message dropped by policy", "reason", decision.Reason, "target", target)
		if decision.NeedsPairing && m.deps.Pairing != nil {
			m.challenge(ctx, senderBare)
		}
		return
	}

	im := inbound.Message{
		MessageID:      msg.ID,
		Target:         target,
		SenderJID:      msg.From,
		SenderBareJID:  senderBare,
		SenderNickname: senderNick,
		Text:           msg.Body,
		IsGroup:        isGroup,
		Timestamp:      time.Now().UTC(),
	}
	if msg.Delay != nil {
		if stamp, err := time.Parse(time.RFC3339, msg.Delay.Stamp); err == nil {
			im.Timestamp = stamp
		}
	}

	deliverTo := target
	err := m.pipeline.Process(ctx, im, m.acct.Config, decision, func(ctx context.Context, chunk collab.ReplyChunk) error {
		return m.sender.SendMessage(ctx, deliverTo, chunk.Text, outbound.Options{
			AccountID: m.acct.AccountID,
			ReplyTo:   msg.ID,
			Client:    m.client,
		})
	})
	if err != nil {
		metrics.XMPPDispatchFailuresTotal.WithLabelValues(m.acct.AccountID, "pipeline").Inc()
		m.log.Warn("inbound pipeline failed", "error", err)
	}
}

func (m *Monitor) pairingAllowlist(ctx context.Context) []string {
	if m.deps.Pairing == nil {
		return nil
	}
	list, err := m.deps.Pairing.Allowlist(ctx, m.acct.AccountID)
	if err != nil {
		m.log.Warn("reading pairing allowlist failed", "error", err)
		return nil
	}
	return list
}

func (m *Monitor) challenge(ctx context.Context, senderBare string) {
	reply, ok, err := m.deps.Pairing.Challenge(ctx, senderBare)
	if err != nil {
		m.log.Warn("pairing challenge failed", "error", err, "sender", senderBare)
		return
	}
	if !ok {
		return
	}
	metrics.XMPPPairingChallengesTotal.WithLabelValues(m.acct.AccountID).Inc()
	if err := m.sender.SendMessage(ctx, senderBare, reply, outbound.Options{
		AccountID: m.acct.AccountID,
		Client:    m.client,
	}); err != nil {
		m.log.Warn("sending pairing challenge reply failed", "error", err, "sender", senderBare)
	}
}

// Supervisor runs one Monitor per enabled account concurrently and waits
// for all of them to stop, matching §5 "the system runs as multiple
// concurrent account supervisors, one per enabled account".
type Supervisor struct {
	monitors []*Monitor
}

// NewSupervisor builds a Supervisor over the given monitors.
func NewSupervisor(monitors ...*Monitor) *Supervisor {
	return &Supervisor{monitors: monitors}
}

// Run starts every monitor and blocks until all have returned.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, mon := range s.monitors {
		wg.Add(1)
		go func(mon *Monitor) {
			defer wg.Done()
			if err := mon.Run(ctx); err != nil {
				slog.Error("account monitor exited", "account", mon.acct.AccountID, "error", err)
			}
		}(mon)
	}
	wg.Wait()
}
