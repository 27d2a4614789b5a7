// Package xmppclient implements the §4.2 client-to-server state machine on
// top of gosrc.io/xmpp: TCP/TLS transport, SASL PLAIN authentication,
// resource binding, presence, and the MUC join protocol.
//
// gosrc.io/xmpp's router dispatches already-decoded stanza.Message /
// stanza.Presence values rather than raw bytes, so incoming stanzas are
// re-serialized with encoding/xml and handed to internal/stanza's own
// decoder to recover the XEP-0203/0308/0461 extension fields that decoder
// owns (see internal/stanza's package doc for why it doesn't reuse
// gosrc.io/xmpp's stanza types). Outgoing stanzas always go through
// internal/stanza's encoders and Client.sendRawVia, so the wire format this
// adapter produces is fully under this module's control, the way the
// teacher's internal/xmpp/handler.go builds stanza.Message by hand rather
// than deferring to library defaults.
package xmppclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"gosrc.io/xmpp"
	gstanza "gosrc.io/xmpp/stanza"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/jid"
	"github.com/aiox-platform/xmpp-gateway/internal/stanza"
	"github.com/aiox-platform/xmpp-gateway/internal/xmppadapter/xerr"
)

// mucJoinYield is the cooperative delay between a MUC join presence and the
// owner-configuration submit, per §4.2 step 2.
const mucJoinYield = 500 * time.Millisecond

// Client drives one account's XMPP connection.
type Client struct {
	acct account.Account

	mu    sync.RWMutex
	state State

	gclient *xmpp.Client
	sm      *xmpp.StreamManager

	events chan Event
	cancel context.CancelFunc
}

// New builds a Client for acct; it does not connect until Connect is called.
func New(acct account.Account) *Client {
	return &Client{
		acct:   acct,
		state:  StateIdle,
		events: make(chan Event, 64),
	}
}

// Events returns the channel of events this client emits. The channel is
// closed when the client is stopped.
func (c *Client) Events() <-chan Event { return c.events }

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Connect dials, authenticates and binds the account's resource, then
// enters Online and auto-joins the account's configured rooms. It respects
// acct.ConnectTimeout (§4.2 "connectTimeoutMs", default 15s / probe 8s) and
// returns a TransportError if the deadline passes before Online is reached.
func (c *Client) Connect(ctx context.Context) error {
	if !c.acct.Configured() {
		return xerr.Config("xmppclient.Connect", fmt.Errorf("account %s is not configured (missing jid or password)", c.acct.AccountID))
	}

	c.setState(StateConnecting)

	cfg := xmpp.Config{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: fmt.Sprintf("%s:%d", c.acct.Host, c.acct.Port),
			Domain:  domainOf(c.acct.JID),
		},
		Jid:          c.acct.JID + "/" + c.acct.Resource,
		Credential:   xmpp.Password(c.acct.Password),
		Insecure:     !c.acct.TLS,
		ConnectTimeout: int(c.acct.ConnectTimeout / time.Second),
	}

	router := xmpp.NewRouter()
	router.HandleFunc("message", c.handleMessage)
	router.HandleFunc("presence", c.handlePresence)
	router.HandleFunc("iq", c.handleIQ)

	c.setState(StateAuthenticating)

	gc, err := xmpp.NewClient(&cfg, router, c.handleTransportError)
	if err != nil {
		c.setState(StateOffline)
		return xerr.Auth("xmppclient.Connect", err)
	}
	c.gclient = gc

	connCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	onConnect := func(s xmpp.Sender) {
		c.setState(StateBound)
		c.onOnline(s)
	}
	c.sm = xmpp.NewStreamManager(gc, onConnect)

	runErr := make(chan error, 1)
	go func() { runErr <- c.sm.Run() }()

	timeout := c.acct.ConnectTimeout
	if timeout <= 0 {
		timeout = account.DefaultConnectTimeout
	}
	select {
	case <-time.After(timeout):
		c.sm.Stop()
		c.setState(StateOffline)
		return xerr.Transport("xmppclient.Connect", fmt.Errorf("connect timed out after %s", timeout))
	case err := <-runErr:
		c.setState(StateOffline)
		if err != nil {
			return xerr.Transport("xmppclient.Connect", err)
		}
		return nil
	case <-connCtx.Done():
		c.sm.Stop()
		c.setState(StateOffline)
		return connCtx.Err()
	case <-c.onlineSignal(connCtx):
		return nil
	}
}

// onlineSignal is a one-shot channel closed the instant the client becomes
// Online, used to race against the connect timeout above. It stops polling
// once ctx is done so it never outlives a failed or abandoned connect.
func (c *Client) onlineSignal(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.State() == StateOnline {
					close(ch)
					return
				}
			}
		}
	}()
	return ch
}

func (c *Client) onOnline(s xmpp.Sender) {
	if err := c.sendRawVia(s, stanza.EncodePresence(stanza.PresenceOptions{})); err != nil {
		c.emit(Event{Kind: EventError, Err: xerr.Transport("xmppclient.onOnline", err)})
		return
	}
	c.setState(StateOnline)
	c.emit(Event{Kind: EventOnline})

	for _, room := range c.acct.Config.AutoJoinRooms {
		if err := c.joinRoom(s, room); err != nil {
			c.emit(Event{Kind: EventError, Err: err})
		}
	}
}

// joinRoom performs the §4.2 MUC JOIN PROTOCOL: join presence, a 500ms
// cooperative yield, then an owner-configuration submit that unlocks
// freshly created rooms and no-ops on existing ones.
func (c *Client) joinRoom(s xmpp.Sender, roomJID string) error {
	nickname := c.acct.Resource
	occupant := jid.Occupant(roomJID, nickname)

	if err := c.sendRawVia(s, stanza.EncodeMUCJoin(occupant)); err != nil {
		return xerr.Transport("xmppclient.joinRoom", err).WithContext(map[string]string{"room": roomJID})
	}

	time.Sleep(mucJoinYield)

	if err := c.sendRawVia(s, stanza.EncodeMUCUnlock(roomJID)); err != nil {
		return xerr.Transport("xmppclient.joinRoom", err).WithContext(map[string]string{"room": roomJID})
	}
	return nil
}

// Send writes a raw, pre-encoded stanza (from internal/stanza's encoders)
// to the wire. It fails immediately if the client isn't Online (§5
// "Cancellation... A send during Offline fails immediately").
func (c *Client) Send(raw string) error {
	if c.State() != StateOnline {
		return xerr.Transport("xmppclient.Send", fmt.Errorf("client is %s, not online", c.State()))
	}
	return c.sendRawVia(c.gclient, raw)
}

func (c *Client) sendRawVia(s xmpp.Sender, raw string) error {
	return s.SendRaw(raw)
}

// Stop ends the stanza loop and transitions to Offline (§5 "Cancellation").
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.sm != nil {
		c.sm.Stop()
	}
	c.setState(StateOffline)
	c.emit(Event{Kind: EventOffline})
	close(c.events)
}

func (c *Client) handleTransportError(err error) {
	c.emit(Event{Kind: EventError, Err: xerr.Transport("xmppclient", err)})
}

func (c *Client) handleMessage(_ xmpp.Sender, p gstanza.Packet) {
	gmsg, ok := p.(gstanza.Message)
	if !ok {
		return
	}
	raw, err := xml.Marshal(gmsg)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: xerr.StanzaDecode("xmppclient.handleMessage", err)})
		return
	}
	msg, err := stanza.DecodeMessage(raw)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: xerr.StanzaDecode("xmppclient.handleMessage", err)})
		return
	}
	if msg.Body == "" {
		return
	}
	c.emit(Event{Kind: EventMessage, Message: msg})
}

func (c *Client) handlePresence(_ xmpp.Sender, p gstanza.Packet) {
	gpres, ok := p.(gstanza.Presence)
	if !ok {
		return
	}
	raw, err := xml.Marshal(gpres)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: xerr.StanzaDecode("xmppclient.handlePresence", err)})
		return
	}
	pres, err := stanza.DecodePresence(raw)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: xerr.StanzaDecode("xmppclient.handlePresence", err)})
		return
	}
	c.emit(Event{Kind: EventPresence, Presence: pres})
}

func (c *Client) handleIQ(_ xmpp.Sender, _ gstanza.Packet) {
	// IQ traffic here is limited to the MUC-owner unlock this client itself
	// sends; no inbound IQ handling is required by §4.2.
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Events channel is full; drop rather than block the stanza loop.
	}
}

func domainOf(bareJID string) string {
	j, ok := jid.Parse(bareJID)
	if !ok {
		return ""
	}
	return j.Domain
}
