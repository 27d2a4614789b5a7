// Package outbound implements the §4.7 sender: target normalization,
// markdown flattening, reply-marker append, chat/groupchat type selection,
// and transient-vs-live client reuse.
package outbound

import (
	"context"
	"fmt"

	"github.com/aiox-platform/xmpp-gateway/internal/collab"
	"github.com/aiox-platform/xmpp-gateway/internal/jid"
	"github.com/aiox-platform/xmpp-gateway/internal/stanza"
	"github.com/aiox-platform/xmpp-gateway/internal/xmppadapter/xerr"
)

// Sender is the minimal surface outbound needs from a connected client
// (satisfied by *xmppclient.Client); kept as an interface here so outbound
// has no import-time dependency on the transport package.
type Sender interface {
	Send(raw string) error
}

// ClientOpener opens a transient, already-connected client for an account
// when no live client is supplied (§4.7: "otherwise open a transient
// client, send, then stop it").
type ClientOpener interface {
	OpenTransient(ctx context.Context, accountID string) (Sender, func(), error)
}

// Options configures one SendMessage call.
type Options struct {
	AccountID string
	ReplyTo   string
	Client    Sender // live client, if the caller already has one ready
}

// Dispatcher sends text to XMPP targets.
type Dispatcher struct {
	opener   ClientOpener
	markdown collab.Markdown
	activity collab.ActivityRecorder
}

// NewDispatcher builds an outbound Dispatcher.
func NewDispatcher(opener ClientOpener, markdown collab.Markdown, activity collab.ActivityRecorder) *Dispatcher {
	return &Dispatcher{opener: opener, markdown: markdown, activity: activity}
}

// SendMessage resolves to, formats text, and delivers it, per §4.7.
func (d *Dispatcher) SendMessage(ctx context.Context, to, text string, opts Options) error {
	target := jid.StripChannelPrefix(to)
	normalized, ok := jid.NormalizeBare(target)
	if !ok {
		return xerr.InvalidTarget("outbound.SendMessage", fmt.Errorf("%q is not a valid JID", to))
	}

	if d.markdown != nil {
		text = d.markdown.ToPlainText(text)
	}
	if opts.ReplyTo != "" {
		text = text + fmt.Sprintf("\n\n[reply:%s]", opts.ReplyTo)
	}

	msgType := stanza.TypeChat
	if jid.IsRoom(normalized) {
		msgType = stanza.TypeGroupchat
	}
	raw := stanza.EncodeMessage(normalized, text, msgType)

	sender := opts.Client
	var cleanup func()
	if sender == nil {
		if d.opener == nil {
			return xerr.Transport("outbound.SendMessage", fmt.Errorf("no live client supplied and no transient client opener configured"))
		}
		var err error
		sender, cleanup, err = d.opener.OpenTransient(ctx, opts.AccountID)
		if err != nil {
			return xerr.Transport("outbound.SendMessage", fmt.Errorf("opening transient client: %w", err))
		}
		defer cleanup()
	}

	if err := sender.Send(raw); err != nil {
		return xerr.Transport("outbound.SendMessage", fmt.Errorf("sending to %s: %w", normalized, err))
	}

	if d.activity != nil {
		messageID := stanza.NewID()
		if err := d.activity.RecordOutbound(ctx, opts.AccountID, messageID, normalized, jid.IsRoom(normalized)); err != nil {
			return xerr.Dispatch("outbound.SendMessage", fmt.Errorf("recording outbound activity: %w", err))
		}
	}
	return nil
}
