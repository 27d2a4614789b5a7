// Package inbound implements the §4.6 orchestration pipeline run once a
// message has cleared the policy gate: activity recording, route
// resolution, envelope formatting, session recording, context payload
// construction and agent dispatch. It mirrors the stage sequence of
// internal/orchestrator.Orchestrator.processMessage, generalized from
// "NATS message in, NATS task + outbound message out" to "typed inbound
// value in, agent dispatch + outbound send out".
package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/collab"
	"github.com/aiox-platform/xmpp-gateway/internal/policy"
	"github.com/aiox-platform/xmpp-gateway/internal/xmppadapter/xerr"
)

// Message is one decoded, policy-accepted inbound XMPP message (§3
// "InboundMessage").
type Message struct {
	MessageID      string
	Target         string
	SenderJID      string
	SenderBareJID  string
	SenderNickname string
	Text           string
	Timestamp      time.Time
	IsGroup        bool
}

// Deps bundles the out-of-scope collaborators the pipeline calls into.
type Deps struct {
	Activity collab.ActivityRecorder
	Routing  collab.RoutingTable
	Sessions collab.SessionStore
	Agent    collab.AgentRuntime
}

// Pipeline runs the §4.6 steps for one account.
type Pipeline struct {
	accountID string
	deps      Deps
}

// NewPipeline builds a Pipeline bound to one account.
func NewPipeline(accountID string, deps Deps) *Pipeline {
	return &Pipeline{accountID: accountID, deps: deps}
}

// Deliver is invoked once per reply chunk the agent runtime produces.
type Deliver func(ctx context.Context, chunk collab.ReplyChunk) error

// Process runs steps 1–6 of §4.6 for msg, already policy-accepted, and
// streams the agent's reply chunks to deliver. cfg is the merged account
// config the policy decision was made against, used to fill the dispatch
// request's history/response-prefix/streaming defaults.
func (p *Pipeline) Process(ctx context.Context, msg Message, cfg account.AccountConfig, decision policy.Decision, deliver Deliver) error {
	if err := p.recordInbound(ctx, msg); err != nil {
		return err
	}

	route, err := p.resolveRoute(ctx, msg)
	if err != nil {
		return err
	}

	prevSession, hadPrev := p.lastSession(ctx, msg)
	envelope := p.formatEnvelope(msg, prevSession, hadPrev)

	if err := p.recordSession(ctx, msg); err != nil {
		return err
	}

	payload := p.buildContextPayload(msg, cfg, route, decision, envelope)

	return p.dispatch(ctx, payload, deliver)
}

func (p *Pipeline) recordInbound(ctx context.Context, msg Message) error {
	if p.deps.Activity == nil {
		return nil
	}
	if err := p.deps.Activity.RecordInbound(ctx, p.accountID, msg.MessageID, msg.SenderBareJID, msg.Target, msg.IsGroup); err != nil {
		return xerr.Dispatch("inbound.recordInbound", fmt.Errorf("recording inbound activity: %w", err))
	}
	return nil
}

func (p *Pipeline) resolveRoute(ctx context.Context, msg Message) (collab.Route, error) {
	if p.deps.Routing == nil {
		return collab.Route{}, nil
	}
	route, err := p.deps.Routing.Resolve(ctx, p.accountID, msg.Target)
	if err != nil {
		return collab.Route{}, xerr.Dispatch("inbound.resolveRoute", fmt.Errorf("resolving route for %s: %w", msg.Target, err))
	}
	return route, nil
}

// envelope holds the channel label, sender label, current timestamp,
// previous-session timestamp and body for one message (§4.6 step 3). Only
// Body is copied into the DispatchRequest; the labels and timestamps are
// not forwarded to the agent runtime.
type envelope struct {
	ChannelLabel        string
	SenderLabel         string
	Timestamp           time.Time
	PreviousSessionTime time.Time
	Body                string
}

func (p *Pipeline) formatEnvelope(msg Message, prevSession collab.SessionRecord, hadPrev bool) envelope {
	senderLabel := msg.SenderBareJID
	if msg.IsGroup && msg.SenderNickname != "" {
		senderLabel = msg.SenderNickname
	}
	env := envelope{
		ChannelLabel: "xmpp",
		SenderLabel:  senderLabel,
		Timestamp:    msg.Timestamp,
		Body:         msg.Text,
	}
	if hadPrev {
		env.PreviousSessionTime = prevSession.UpdatedAt
	}
	return env
}

// lastSession fetches the session record saved for this target on a prior
// turn, before recordSession overwrites it with the current one.
func (p *Pipeline) lastSession(ctx context.Context, msg Message) (collab.SessionRecord, bool) {
	if p.deps.Sessions == nil {
		return collab.SessionRecord{}, false
	}
	rec, ok, err := p.deps.Sessions.Load(ctx, p.accountID, msg.Target)
	if err != nil {
		return collab.SessionRecord{}, false
	}
	return rec, ok
}

func (p *Pipeline) recordSession(ctx context.Context, msg Message) error {
	if p.deps.Sessions == nil {
		return nil
	}
	rec := collab.SessionRecord{AccountID: p.accountID, Target: msg.Target, UpdatedAt: msg.Timestamp}
	if err := p.deps.Sessions.Save(ctx, rec); err != nil {
		return xerr.Dispatch("inbound.recordSession", fmt.Errorf("saving session: %w", err))
	}
	return nil
}

func (p *Pipeline) buildContextPayload(msg Message, cfg account.AccountConfig, route collab.Route, decision policy.Decision, env envelope) collab.DispatchRequest {
	req := collab.DispatchRequest{
		AccountID:      p.accountID,
		MessageID:      msg.MessageID,
		Target:         msg.Target,
		SenderJID:      msg.SenderJID,
		SenderBareJID:  msg.SenderBareJID,
		SenderNickname: msg.SenderNickname,
		IsGroup:        msg.IsGroup,
		Text:           env.Body,
		HistoryLimit:   cfg.HistoryLimit,
		ResponsePrefix: cfg.ResponsePrefix,
		BlockStreaming: cfg.BlockStreaming,
		SystemPrompt:   route.SkillID,
	}
	if decision.RoomConfig != nil {
		if len(decision.RoomConfig.Skills) > 0 {
			req.Skills = decision.RoomConfig.Skills
		}
		if len(decision.RoomConfig.Tools) > 0 {
			req.Tools = decision.RoomConfig.Tools
		}
		if decision.RoomConfig.SystemPrompt != "" {
			req.SystemPrompt = decision.RoomConfig.SystemPrompt
		}
	}
	return req
}

func (p *Pipeline) dispatch(ctx context.Context, req collab.DispatchRequest, deliver Deliver) error {
	if p.deps.Agent == nil {
		return xerr.Dispatch("inbound.dispatch", fmt.Errorf("no agent runtime configured"))
	}
	chunks, err := p.deps.Agent.Dispatch(ctx, req)
	if err != nil {
		return xerr.Dispatch("inbound.dispatch", fmt.Errorf("dispatching to agent runtime: %w", err))
	}
	for chunk := range chunks {
		if err := deliver(ctx, chunk); err != nil {
			return xerr.Dispatch("inbound.dispatch", fmt.Errorf("delivering reply chunk: %w", err))
		}
	}
	return nil
}
