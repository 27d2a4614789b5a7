package account

import (
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKoanf(t *testing.T, m map[string]any) *koanf.Koanf {
	t.Helper()
	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(m, "."), nil))
	return k
}

func TestResolveDefaultAccountSingleton(t *testing.T) {
	k := newKoanf(t, map[string]any{
		"channels.xmpp.jid":      "agent@localhost",
		"channels.xmpp.password": "p",
	})
	r := NewResolver(k)
	assert.Equal(t, []string{DefaultAccountID}, r.AccountIDs())

	acct, err := r.Resolve("", false)
	require.NoError(t, err)
	assert.Equal(t, "agent@localhost", acct.JID)
	assert.Equal(t, "p", acct.Password)
	assert.True(t, acct.Configured())
	assert.Equal(t, "localhost", acct.Host)
	assert.Equal(t, DefaultPort, acct.Port)
	assert.True(t, acct.TLS)
	assert.Equal(t, DefaultResource, acct.Resource)
}

func TestResolveAccountOverlayWins(t *testing.T) {
	k := newKoanf(t, map[string]any{
		"channels.xmpp.dmPolicy":                  "allowlist",
		"channels.xmpp.accounts.support.jid":      "support@example.com",
		"channels.xmpp.accounts.support.password": "secret",
		"channels.xmpp.accounts.support.dmPolicy":  "open",
	})
	r := NewResolver(k)
	ids := r.AccountIDs()
	assert.Equal(t, []string{"support"}, ids)

	acct, err := r.Resolve("Support", true)
	require.NoError(t, err)
	assert.Equal(t, "support@example.com", acct.JID)
	assert.Equal(t, DMOpen, acct.Config.DMPolicy)
}

func TestResolveFallsBackToDefaultWhenUnpinnedAndUnconfigured(t *testing.T) {
	// Credentials come from the default-only environment overrides, so the
	// "empty" account inherits no jid/password from the base config.
	t.Setenv("XMPP_JID", "agent@localhost")
	t.Setenv("XMPP_PASSWORD", "p")
	k := newKoanf(t, map[string]any{
		"channels.xmpp.accounts.empty.host": "irrelevant.example.com",
	})
	r := NewResolver(k)

	acct, err := r.Resolve("empty", false)
	require.NoError(t, err)
	assert.Equal(t, "agent@localhost", acct.JID, "should fall back to the configured default account")
}

func TestResolvePinnedDoesNotFallBack(t *testing.T) {
	// Only the default account is configured (via its environment
	// overrides); "empty" has no jid/password of its own or inherited.
	t.Setenv("XMPP_JID", "agent@localhost")
	t.Setenv("XMPP_PASSWORD", "p")
	k := newKoanf(t, map[string]any{
		"channels.xmpp.accounts.empty.host": "irrelevant.example.com",
	})
	r := NewResolver(k)

	acct, err := r.Resolve("empty", true)
	require.NoError(t, err)
	assert.False(t, acct.Configured())
}

func TestResolvePasswordPrecedence(t *testing.T) {
	r := &Resolver{}
	pw, src := r.resolvePassword(AccountConfig{Password: "inline"}, false)
	assert.Equal(t, "inline", pw)
	assert.Equal(t, PasswordConfig, src)

	pw, src = r.resolvePassword(AccountConfig{}, false)
	assert.Equal(t, "", pw)
	assert.Equal(t, PasswordNone, src)
}

func TestNormalizeAccountID(t *testing.T) {
	assert.Equal(t, DefaultAccountID, normalizeAccountID(""))
	assert.Equal(t, DefaultAccountID, normalizeAccountID("  "))
	assert.Equal(t, "support", normalizeAccountID(" Support "))
}
