package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const bucketPairing = "AIOX_XMPP_PAIRING"

// record is the value stored per bare JID, capturing the request/approval
// state the store is the source of truth for.
type record struct {
	BareJID    string    `json:"bare_jid"`
	RequestedAt time.Time `json:"requested_at"`
	Approved   bool      `json:"approved"`
}

// NATSStore is the default collab.PairingStore, backed by a JetStream KV
// bucket keyed "<channel>/<bareJID>". jetstream.KeyValue.Create gives the
// compare-and-set semantics UpsertPairingRequest needs: the first writer for
// a key wins, every later call observes ErrKeyExists and reports
// created=false, which is exactly the idempotence §3's Lifecycle note and
// §8's boundary behavior ("exactly one pairing reply per distinct bare JID")
// require.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore creates or opens the pairing KV bucket.
func NewNATSStore(ctx context.Context, js jetstream.JetStream) (*NATSStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucketPairing})
	if err != nil {
		return nil, fmt.Errorf("ensuring pairing kv bucket: %w", err)
	}
	return &NATSStore{kv: kv}, nil
}

func (s *NATSStore) UpsertPairingRequest(ctx context.Context, channel, bareJID string) (bool, error) {
	key := storeKey(channel, bareJID)
	payload, err := json.Marshal(record{BareJID: bareJID, RequestedAt: time.Now().UTC()})
	if err != nil {
		return false, fmt.Errorf("marshaling pairing record: %w", err)
	}
	if _, err := s.kv.Create(ctx, key, payload); err != nil {
		if err == jetstream.ErrKeyExists {
			return false, nil
		}
		return false, fmt.Errorf("creating pairing record %s: %w", key, err)
	}
	return true, nil
}

func (s *NATSStore) ReadAllowlist(ctx context.Context, channel, accountID string) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("listing pairing keys: %w", err)
	}
	prefix := channel + "/"
	var out []string
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if rec.Approved {
			out = append(out, rec.BareJID)
		}
	}
	return out, nil
}

func (s *NATSStore) BuildPairingReply(channel, bareJID string) string {
	return fmt.Sprintf("To message this account, ask an operator to approve %s (channel=%s). You'll get a confirmation once approved.", bareJID, channel)
}

// Approve marks bareJID approved, the effect of an operator's out-of-band
// "notifyApproval" call (§4.5). It returns whether the bare JID is newly
// approved, so callers know whether to send pairing.ApprovedMessage.
func (s *NATSStore) Approve(ctx context.Context, bareJID string) (bool, error) {
	key := storeKey(Channel, bareJID)
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading pairing record %s: %w", key, err)
	}
	var rec record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return false, fmt.Errorf("decoding pairing record %s: %w", key, err)
	}
	if rec.Approved {
		return false, nil
	}
	rec.Approved = true
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling pairing record: %w", err)
	}
	if _, err := s.kv.Update(ctx, key, payload, entry.Revision()); err != nil {
		return false, fmt.Errorf("updating pairing record %s: %w", key, err)
	}
	return true, nil
}

func storeKey(channel, bareJID string) string {
	return channel + "/" + strings.ToLower(bareJID)
}
