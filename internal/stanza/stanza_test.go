package stanza

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	raw := EncodeMessage("alice@example.com", "  hi there\nline two  ", TypeChat)
	assert.Contains(t, raw, `to="alice@example.com"`)
	assert.Contains(t, raw, `type="chat"`)
	assert.Contains(t, raw, "<body>hi there\nline two</body>")
	assert.Contains(t, raw, `id="`)
}

func TestEncodeMessageEscaping(t *testing.T) {
	raw := EncodeMessage("alice@example.com", "<script>&\"'", TypeChat)
	assert.NotContains(t, raw, "<script>")
	assert.Contains(t, raw, "&lt;script&gt;")
}

func TestEncodeChatState(t *testing.T) {
	raw := EncodeChatState("alice@example.com", StateComposing)
	assert.Contains(t, raw, `<composing xmlns="`+NSChatStates+`"/>`)
	assert.Contains(t, raw, `type="chat"`)
}

func TestEncodeReceipt(t *testing.T) {
	raw := EncodeReceipt("alice@example.com", "msg-1")
	assert.Contains(t, raw, `<received xmlns="`+NSReceipts+`" id="msg-1"/>`)
}

func TestEncodeMUCJoinAndUnlock(t *testing.T) {
	join := EncodeMUCJoin("room@conference.example.com/bot")
	assert.Contains(t, join, `to="room@conference.example.com/bot"`)
	assert.Contains(t, join, `xmlns="`+NSMUC+`"`)

	unlock := EncodeMUCUnlock("room@conference.example.com")
	assert.Contains(t, unlock, `type="set"`)
	assert.Contains(t, unlock, NSMUCOwner)
	assert.Contains(t, unlock, `type="submit"`)
}

func TestDecodeMessageBasic(t *testing.T) {
	raw := []byte(`<message from="bob@example.com/phone" to="agent@example.com" id="1" type="chat"><body>hello</body></message>`)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com/phone", m.From)
	assert.Equal(t, "hello", m.Body)
	assert.Equal(t, TypeChat, m.Type)
}

func TestDecodeMessageDelay(t *testing.T) {
	raw := []byte(`<message from="bob@example.com" to="a@b.com"><body>hi</body><delay xmlns="urn:xmpp:delay" stamp="2024-01-02T15:04:05Z"/></message>`)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	require.NotNil(t, m.Delay)
	ts, err := m.Delay.Time()
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
}

func TestDecodeMessageCorrectionAndReply(t *testing.T) {
	raw := []byte(`<message from="bob@example.com" to="a@b.com"><body>edited</body><replace xmlns="urn:xmpp:message-correct:0" id="orig-1"/><reply xmlns="urn:xmpp:reply:0" to="a@b.com" id="orig-0"/></message>`)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	require.NotNil(t, m.Correction)
	assert.Equal(t, "orig-1", m.Correction.ID)
	require.NotNil(t, m.Reply)
	assert.Equal(t, "a@b.com", m.Reply.To)
}

func TestDecodeChatState(t *testing.T) {
	raw := []byte(`<message from="bob@example.com" to="a@b.com" type="chat"><composing xmlns="http://jabber.org/protocol/chatstates"/></message>`)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, StateComposing, m.ChatState)
}

func TestDecodePresenceMUCStatus(t *testing.T) {
	raw := []byte(`<presence from="room@conference.example.com/bot" to="bot@example.com/res"><x xmlns="http://jabber.org/protocol/muc#user"><status code="110"/><status code="201"/></x></presence>`)
	p, err := DecodePresence(raw)
	require.NoError(t, err)
	assert.True(t, p.HasStatusCode("110"))
	assert.True(t, p.HasStatusCode("201"))
	assert.False(t, p.HasStatusCode("999"))
}

func TestEncodePresence(t *testing.T) {
	raw := EncodePresence(PresenceOptions{})
	assert.Equal(t, "<presence/>", raw)

	raw = EncodePresence(PresenceOptions{Status: "away", Show: "away"})
	assert.True(t, strings.Contains(raw, "<show>away</show>"))
	assert.True(t, strings.Contains(raw, "<status>away</status>"))
}
