package pairing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created   map[string]bool
	allowlist map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{created: map[string]bool{}, allowlist: map[string][]string{}}
}

func (f *fakeStore) UpsertPairingRequest(ctx context.Context, channel, bareJID string) (bool, error) {
	key := channel + "/" + bareJID
	if f.created[key] {
		return false, nil
	}
	f.created[key] = true
	return true, nil
}

func (f *fakeStore) ReadAllowlist(ctx context.Context, channel, accountID string) ([]string, error) {
	return f.allowlist[accountID], nil
}

func (f *fakeStore) BuildPairingReply(channel, bareJID string) string {
	return "pair:" + bareJID
}

func TestChallenge_FirstContactRepliesOnce(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store)
	ctx := context.Background()

	reply, ok, err := e.Challenge(ctx, "bob@ex")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pair:bob@ex", reply)

	reply2, ok2, err := e.Challenge(ctx, "bob@ex")
	require.NoError(t, err)
	assert.False(t, ok2)
	assert.Empty(t, reply2)
}

func TestChallenge_CaseInsensitiveBareJID(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store)
	ctx := context.Background()

	_, ok, err := e.Challenge(ctx, "Bob@Ex")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok2, err := e.Challenge(ctx, "bob@ex")
	require.NoError(t, err)
	assert.False(t, ok2, "same bare JID under different casing must not re-trigger a reply")
}

func TestAllowlist(t *testing.T) {
	store := newFakeStore()
	store.allowlist["default"] = []string{"approved@ex"}
	e := NewEngine(store)

	list, err := e.Allowlist(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, []string{"approved@ex"}, list)
}

func TestChallenge_RateLimitedSenderGetsNoReply(t *testing.T) {
	store := newFakeStore()
	rdb := setupMiniredis(t)
	e := NewEngine(store).WithRateLimiter(NewRateLimiter(rdb))
	e.maxRate = 1
	ctx := context.Background()

	// First upsert for a brand new bare JID is allowed and idempotently
	// recorded; deleting it from the fake store simulates an operator
	// resetting a pairing request while the rate-limit window is still open.
	_, ok, err := e.Challenge(ctx, "flood@ex")
	require.NoError(t, err)
	assert.True(t, ok)
	delete(store.created, "xmpp/flood@ex")

	// The store would allow a fresh upsert again, but the rate limiter
	// still has this bare JID at its cap within the same window.
	_, ok2, err := e.Challenge(ctx, "flood@ex")
	require.NoError(t, err)
	assert.False(t, ok2, "rate-limited sender gets no reply even though the store would allow a fresh upsert")
}
