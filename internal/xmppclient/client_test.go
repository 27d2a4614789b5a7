package xmppclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "authenticating", StateAuthenticating.String())
	assert.Equal(t, "bound", StateBound.String())
	assert.Equal(t, "online", StateOnline.String())
	assert.Equal(t, "offline", StateOffline.String())
}

func TestNewClientStartsIdle(t *testing.T) {
	c := New(account.Account{AccountID: "default", JID: "agent@localhost"})
	assert.Equal(t, StateIdle, c.State())
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "localhost", domainOf("agent@localhost"))
	assert.Equal(t, "", domainOf(""))
}

func TestConnectRejectsUnconfiguredAccount(t *testing.T) {
	c := New(account.Account{AccountID: "default"})
	err := c.Connect(context.Background())
	assert.Error(t, err)
}
