package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/collab"
	"github.com/aiox-platform/xmpp-gateway/internal/policy"
)

type fakeActivity struct {
	inboundCalls int
}

func (f *fakeActivity) RecordInbound(ctx context.Context, accountID, messageID, senderBareJID, target string, isGroup bool) error {
	f.inboundCalls++
	return nil
}
func (f *fakeActivity) RecordOutbound(ctx context.Context, accountID, messageID, toJID string, isGroup bool) error {
	return nil
}

type fakeRouting struct {
	route collab.Route
	err   error
}

func (f *fakeRouting) Resolve(ctx context.Context, accountID, target string) (collab.Route, error) {
	return f.route, f.err
}

type fakeSessions struct {
	prior   collab.SessionRecord
	hasPrior bool
	saved   []collab.SessionRecord
}

func (f *fakeSessions) Load(ctx context.Context, accountID, target string) (collab.SessionRecord, bool, error) {
	return f.prior, f.hasPrior, nil
}
func (f *fakeSessions) Save(ctx context.Context, rec collab.SessionRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

type fakeAgent struct {
	req    collab.DispatchRequest
	chunks []collab.ReplyChunk
	err    error
}

func (f *fakeAgent) Dispatch(ctx context.Context, req collab.DispatchRequest) (<-chan collab.ReplyChunk, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan collab.ReplyChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func baseMessage() Message {
	return Message{
		MessageID:     "msg-1",
		Target:        "alice@example.com",
		SenderJID:     "alice@example.com/phone",
		SenderBareJID: "alice@example.com",
		Text:          "hello",
		Timestamp:     time.Unix(1000, 0),
	}
}

func TestProcess_RunsFullPipelineAndDispatches(t *testing.T) {
	activity := &fakeActivity{}
	routing := &fakeRouting{route: collab.Route{AgentID: "agent-1", SkillID: "general"}}
	sessions := &fakeSessions{}
	agent := &fakeAgent{chunks: []collab.ReplyChunk{{Text: "hi", Final: true}}}

	p := NewPipeline("default", Deps{Activity: activity, Routing: routing, Sessions: sessions, Agent: agent})

	var delivered []collab.ReplyChunk
	err := p.Process(context.Background(), baseMessage(), account.AccountConfig{HistoryLimit: 10}, policy.Decision{Allow: true}, func(ctx context.Context, chunk collab.ReplyChunk) error {
		delivered = append(delivered, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, activity.inboundCalls)
	require.Len(t, sessions.saved, 1)
	assert.Equal(t, "alice@example.com", sessions.saved[0].Target)
	assert.Equal(t, "general", agent.req.SystemPrompt)
	assert.Equal(t, 10, agent.req.HistoryLimit)
	require.Len(t, delivered, 1)
	assert.Equal(t, "hi", delivered[0].Text)
}

func TestProcess_RoomConfigOverridesSkillsToolsAndPrompt(t *testing.T) {
	agent := &fakeAgent{}
	p := NewPipeline("default", Deps{Agent: agent})

	msg := baseMessage()
	msg.IsGroup = true
	msg.Target = "room@conference.example.com"

	decision := policy.Decision{
		Allow: true,
		RoomConfig: &account.RoomConfig{
			Skills:       []string{"triage"},
			Tools:        []string{"search"},
			SystemPrompt: "You are a room moderator.",
		},
	}

	err := p.Process(context.Background(), msg, account.AccountConfig{}, decision, func(ctx context.Context, chunk collab.ReplyChunk) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"triage"}, agent.req.Skills)
	assert.Equal(t, []string{"search"}, agent.req.Tools)
	assert.Equal(t, "You are a room moderator.", agent.req.SystemPrompt)
}

func TestProcess_NoAgentRuntimeErrors(t *testing.T) {
	p := NewPipeline("default", Deps{})
	err := p.Process(context.Background(), baseMessage(), account.AccountConfig{}, policy.Decision{Allow: true}, func(ctx context.Context, chunk collab.ReplyChunk) error {
		return nil
	})
	assert.Error(t, err)
}

func TestProcess_NilCollaboratorsAreOptional(t *testing.T) {
	agent := &fakeAgent{chunks: []collab.ReplyChunk{{Text: "ok", Final: true}}}
	p := NewPipeline("default", Deps{Agent: agent})

	err := p.Process(context.Background(), baseMessage(), account.AccountConfig{}, policy.Decision{Allow: true}, func(ctx context.Context, chunk collab.ReplyChunk) error {
		return nil
	})
	require.NoError(t, err)
}

func TestProcess_SenderNicknameUsedForGroupEnvelope(t *testing.T) {
	agent := &fakeAgent{}
	p := NewPipeline("default", Deps{Agent: agent})

	msg := baseMessage()
	msg.IsGroup = true
	msg.SenderNickname = "alice-nick"

	err := p.Process(context.Background(), msg, account.AccountConfig{}, policy.Decision{Allow: true}, func(ctx context.Context, chunk collab.ReplyChunk) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", agent.req.Text)
	assert.Equal(t, "alice-nick", p.formatEnvelope(msg, collab.SessionRecord{}, false).SenderLabel)
}
