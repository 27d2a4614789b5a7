// Package stanza encodes and decodes the XMPP stanzas and extension
// elements this adapter speaks: base <message/>, <presence/>, <iq/>, and
// the XEP-0045 (MUC), XEP-0085 (chat states), XEP-0184 (receipts),
// XEP-0203 (delayed delivery), XEP-0308 (corrections) and XEP-0461
// (replies) children described in spec §4.1.
//
// It is deliberately independent of gosrc.io/xmpp's own stanza types:
// that library's Packet structs round-trip the handful of attributes the
// teacher's handler.go reads (From/To/Id/Type/Body) but make no promise
// about preserving the extension namespaces this adapter needs, so this
// package owns the full wire shape; internal/xmppclient re-serializes each
// packet gosrc.io/xmpp delivers and decodes those bytes here.
package stanza

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Namespaces used by the extensions this package understands.
const (
	NSDelay       = "urn:xmpp:delay"
	NSChatStates  = "http://jabber.org/protocol/chatstates"
	NSReceipts    = "urn:xmpp:receipts"
	NSCorrect     = "urn:xmpp:message-correct:0"
	NSReply       = "urn:xmpp:reply:0"
	NSMUC         = "http://jabber.org/protocol/muc"
	NSMUCOwner    = "http://jabber.org/protocol/muc#owner"
	NSMUCUser     = "http://jabber.org/protocol/muc#user"
	NSDataForm    = "jabber:x:data"
)

// MessageType is the value of a <message/>'s type attribute.
type MessageType string

const (
	TypeChat      MessageType = "chat"
	TypeGroupchat MessageType = "groupchat"
	TypeNormal    MessageType = "normal"
	TypeHeadline  MessageType = "headline"
	TypeError     MessageType = "error"
)

// ChatState is one of the XEP-0085 chat-state values.
type ChatState string

const (
	StateComposing ChatState = "composing"
	StatePaused    ChatState = "paused"
	StateActive    ChatState = "active"
	StateInactive  ChatState = "inactive"
	StateGone      ChatState = "gone"
)

// Message is a decoded <message/> stanza together with the extension
// children this adapter acts on.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	From    string      `xml:"from,attr"`
	To      string      `xml:"to,attr"`
	ID      string      `xml:"id,attr"`
	Type    MessageType `xml:"type,attr"`
	Body    string      `xml:"body"`

	Delay      *Delay      `xml:"urn:xmpp:delay delay"`
	ChatState  ChatState   `xml:"-"`
	Correction *Correction `xml:"urn:xmpp:message-correct:0 replace"`
	Reply      *Reply      `xml:"urn:xmpp:reply:0 reply"`
	Receipt    *Receipt    `xml:"urn:xmpp:receipts received"`
}

// Delay is the XEP-0203 <delay/> element.
type Delay struct {
	XMLName xml.Name `xml:"urn:xmpp:delay delay"`
	From    string   `xml:"from,attr,omitempty"`
	Stamp   string   `xml:"stamp,attr"`
}

// Time parses the delay's stamp as RFC 3339, per spec §4.1.
func (d *Delay) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, d.Stamp)
}

// Correction is the XEP-0308 <replace id="..."/> element naming the
// message being corrected.
type Correction struct {
	XMLName xml.Name `xml:"urn:xmpp:message-correct:0 replace"`
	ID      string   `xml:"id,attr"`
}

// Reply is the XEP-0461 <reply to="..."/> element naming the thread
// origin.
type Reply struct {
	XMLName xml.Name `xml:"urn:xmpp:reply:0 reply"`
	To      string   `xml:"to,attr"`
	ID      string   `xml:"id,attr,omitempty"`
}

// Receipt is the XEP-0184 <received id="..."/> element.
type Receipt struct {
	XMLName xml.Name `xml:"urn:xmpp:receipts received"`
	ID      string   `xml:"id,attr"`
}

// Presence is a decoded <presence/> stanza.
type Presence struct {
	XMLName xml.Name `xml:"presence"`
	From    string   `xml:"from,attr"`
	To      string   `xml:"to,attr"`
	ID      string   `xml:"id,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`
	Show    string   `xml:"show,omitempty"`
	Status  string   `xml:"status,omitempty"`
	Priority *int8   `xml:"priority,omitempty"`

	MUC     *mucJoin `xml:"http://jabber.org/protocol/muc x"`
	MUCUser *mucUser `xml:"http://jabber.org/protocol/muc#user x"`
}

type mucJoin struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/muc x"`
}

type mucUser struct {
	XMLName xml.Name  `xml:"http://jabber.org/protocol/muc#user x"`
	Status  []mucCode `xml:"status"`
}

type mucCode struct {
	Code string `xml:"code,attr"`
}

// StatusCodes returns the XEP-0045 <status code=".../> codes present on an
// incoming MUC presence, e.g. "110" (self-presence) or "201" (room
// created and locked).
func (p *Presence) StatusCodes() []string {
	if p.MUCUser == nil {
		return nil
	}
	codes := make([]string, 0, len(p.MUCUser.Status))
	for _, s := range p.MUCUser.Status {
		codes = append(codes, s.Code)
	}
	return codes
}

// HasStatusCode reports whether code is present among the presence's MUC
// status codes.
func (p *Presence) HasStatusCode(code string) bool {
	for _, c := range p.StatusCodes() {
		if c == code {
			return true
		}
	}
	return false
}

// IQ is a decoded <iq/> stanza.
type IQ struct {
	XMLName xml.Name `xml:"jabber:client iq"`
	From    string   `xml:"from,attr"`
	To      string   `xml:"to,attr"`
	ID      string   `xml:"id,attr"`
	Type    string   `xml:"type,attr"`
}

// DecodeMessage parses raw stanza XML bytes (a single <message/> element)
// into a Message. Decode errors are the caller's to log-and-drop per §4.2
// ("stanza decode errors are logged and the stanza dropped, never fatal").
func DecodeMessage(raw []byte) (*Message, error) {
	var m Message
	if err := xml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m.ChatState = decodeChatState(raw)
	return &m, nil
}

// decodeChatState scans raw for a recognized XEP-0085 element, since the
// element name itself (not a fixed tag) carries the state.
func decodeChatState(raw []byte) ChatState {
	for _, s := range []ChatState{StateComposing, StatePaused, StateActive, StateInactive, StateGone} {
		if strings.Contains(string(raw), "<"+string(s)+" xmlns=\""+NSChatStates+"\"") ||
			strings.Contains(string(raw), "<"+string(s)+" xmlns='"+NSChatStates+"'") {
			return s
		}
	}
	return ""
}

// DecodePresence parses raw stanza XML bytes into a Presence.
func DecodePresence(raw []byte) (*Presence, error) {
	var p Presence
	if err := xml.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewID returns a fresh stanza ID, a UUID v4 per spec §4.1.
func NewID() string {
	return uuid.New().String()
}

// EncodeMessage renders a <message/> stanza. body is trimmed of
// surrounding whitespace but internal newlines are preserved verbatim.
func EncodeMessage(to string, body string, typ MessageType) string {
	var b strings.Builder
	b.WriteString(`<message to="`)
	b.WriteString(xmlEscapeAttr(to))
	b.WriteString(`" id="`)
	b.WriteString(NewID())
	b.WriteString(`" type="`)
	b.WriteString(string(typ))
	b.WriteString(`"><body>`)
	b.WriteString(xmlEscapeText(strings.TrimSpace(body)))
	b.WriteString(`</body></message>`)
	return b.String()
}

// EncodeChatState renders a XEP-0085 chat-state notification.
func EncodeChatState(to string, state ChatState) string {
	var b strings.Builder
	b.WriteString(`<message to="`)
	b.WriteString(xmlEscapeAttr(to))
	b.WriteString(`" type="chat"><`)
	b.WriteString(string(state))
	b.WriteString(` xmlns="`)
	b.WriteString(NSChatStates)
	b.WriteString(`"/></message>`)
	return b.String()
}

// EncodeReceipt renders a XEP-0184 delivery receipt for the message
// identified by id.
func EncodeReceipt(to, id string) string {
	var b strings.Builder
	b.WriteString(`<message to="`)
	b.WriteString(xmlEscapeAttr(to))
	b.WriteString(`"><received xmlns="`)
	b.WriteString(NSReceipts)
	b.WriteString(`" id="`)
	b.WriteString(xmlEscapeAttr(id))
	b.WriteString(`"/></message>`)
	return b.String()
}

// PresenceOptions configures EncodePresence.
type PresenceOptions struct {
	Type   string // subscribe, subscribed, unavailable, ... empty for plain availability
	To     string
	Status string
	Show   string
}

// EncodePresence renders a <presence/> stanza.
func EncodePresence(opts PresenceOptions) string {
	var b strings.Builder
	b.WriteString(`<presence`)
	if opts.To != "" {
		b.WriteString(` to="` + xmlEscapeAttr(opts.To) + `"`)
	}
	if opts.Type != "" {
		b.WriteString(` type="` + xmlEscapeAttr(opts.Type) + `"`)
	}
	hasChildren := opts.Status != "" || opts.Show != ""
	if !hasChildren {
		b.WriteString(`/>`)
		return b.String()
	}
	b.WriteString(`>`)
	if opts.Show != "" {
		b.WriteString(`<show>` + xmlEscapeText(opts.Show) + `</show>`)
	}
	if opts.Status != "" {
		b.WriteString(`<status>` + xmlEscapeText(opts.Status) + `</status>`)
	}
	b.WriteString(`</presence>`)
	return b.String()
}

// EncodeMUCJoin renders the initial join presence to an occupant JID
// (room@service/nickname), step 1 of the MUC join protocol (§4.2).
func EncodeMUCJoin(occupantJID string) string {
	var b strings.Builder
	b.WriteString(`<presence to="`)
	b.WriteString(xmlEscapeAttr(occupantJID))
	b.WriteString(`"><x xmlns="`)
	b.WriteString(NSMUC)
	b.WriteString(`"/></presence>`)
	return b.String()
}

// EncodeMUCUnlock renders the owner-configuration submit that accepts
// room defaults, step 3 of the MUC join protocol (§4.2). It is a no-op
// for rooms that already existed, and unlocks a freshly created room
// (XEP-0045 §10.1, "201" case).
func EncodeMUCUnlock(roomJID string) string {
	var b strings.Builder
	b.WriteString(`<iq to="`)
	b.WriteString(xmlEscapeAttr(roomJID))
	b.WriteString(`" type="set" id="cfg-`)
	b.WriteString(NewID())
	b.WriteString(`"><query xmlns="`)
	b.WriteString(NSMUCOwner)
	b.WriteString(`"><x xmlns="`)
	b.WriteString(NSDataForm)
	b.WriteString(`" type="submit"/></query></iq>`)
	return b.String()
}

func xmlEscapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&stringsWriter{&b}, []byte(s))
	return b.String()
}

// textEscaper escapes character data but, unlike xml.EscapeText, leaves
// newlines and tabs as literal characters.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscapeText(s string) string {
	return textEscaper.Replace(s)
}

type stringsWriter struct{ b *strings.Builder }

func (w *stringsWriter) Write(p []byte) (int, error) { return w.b.Write(p) }
