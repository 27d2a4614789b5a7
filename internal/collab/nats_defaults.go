package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Subjects used by the default NATS-backed collaborators.
const (
	SubjectActivityInbound  = "aiox.xmpp.activity.inbound"
	SubjectActivityOutbound = "aiox.xmpp.activity.outbound"

	bucketRouting  = "AIOX_XMPP_ROUTES"
	bucketSessions = "AIOX_XMPP_SESSIONS"
)

// NATSActivityRecorder publishes one JetStream event per recorded message,
// the way internal/orchestrator.Orchestrator publishes AuditEvent entries.
type NATSActivityRecorder struct {
	js jetstream.JetStream
}

// NewNATSActivityRecorder wraps an existing JetStream context. The caller
// is expected to have already ensured a stream whose subjects cover
// "aiox.xmpp.activity.>", mirroring internal/nats.Client.ensureStreams.
func NewNATSActivityRecorder(js jetstream.JetStream) *NATSActivityRecorder {
	return &NATSActivityRecorder{js: js}
}

type activityEvent struct {
	AccountID string    `json:"account_id"`
	MessageID string    `json:"message_id"`
	JID       string    `json:"jid"`
	IsGroup   bool      `json:"is_group"`
	Direction string    `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *NATSActivityRecorder) RecordInbound(ctx context.Context, accountID, messageID, senderBareJID, target string, isGroup bool) error {
	return r.publish(ctx, SubjectActivityInbound, activityEvent{
		AccountID: accountID, MessageID: messageID, JID: senderBareJID,
		IsGroup: isGroup, Direction: "inbound", Timestamp: time.Now().UTC(),
	})
}

func (r *NATSActivityRecorder) RecordOutbound(ctx context.Context, accountID, messageID, toJID string, isGroup bool) error {
	return r.publish(ctx, SubjectActivityOutbound, activityEvent{
		AccountID: accountID, MessageID: messageID, JID: toJID,
		IsGroup: isGroup, Direction: "outbound", Timestamp: time.Now().UTC(),
	})
}

func (r *NATSActivityRecorder) publish(ctx context.Context, subject string, ev activityEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling activity event: %w", err)
	}
	if _, err := r.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing activity event to %s: %w", subject, err)
	}
	return nil
}

// NATSRoutingTable resolves accountID/target pairs against a JetStream KV
// bucket of operator-provisioned routes. Entries are plain JSON-encoded
// Route values, keyed "<accountID>/<target>".
type NATSRoutingTable struct {
	kv jetstream.KeyValue
}

// NewNATSRoutingTable creates or opens the routing KV bucket.
func NewNATSRoutingTable(ctx context.Context, js jetstream.JetStream) (*NATSRoutingTable, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucketRouting})
	if err != nil {
		return nil, fmt.Errorf("ensuring routing kv bucket: %w", err)
	}
	return &NATSRoutingTable{kv: kv}, nil
}

func (t *NATSRoutingTable) Resolve(ctx context.Context, accountID, target string) (Route, error) {
	key := routeKey(accountID, target)
	entry, err := t.kv.Get(ctx, key)
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return Route{}, nil
		}
		return Route{}, fmt.Errorf("looking up route %s: %w", key, err)
	}
	var route Route
	if err := json.Unmarshal(entry.Value(), &route); err != nil {
		return Route{}, fmt.Errorf("decoding route %s: %w", key, err)
	}
	return route, nil
}

// Put provisions or replaces a route, for operator tooling and tests.
func (t *NATSRoutingTable) Put(ctx context.Context, accountID, target string, route Route) error {
	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("marshaling route: %w", err)
	}
	if _, err := t.kv.Put(ctx, routeKey(accountID, target), payload); err != nil {
		return fmt.Errorf("storing route: %w", err)
	}
	return nil
}

func routeKey(accountID, target string) string {
	return accountID + "/" + target
}

// NATSSessionStore persists SessionRecord values in a JetStream KV bucket
// keyed "<accountID>/<target>", the same sharding as NATSRoutingTable.
type NATSSessionStore struct {
	kv jetstream.KeyValue
}

// NewNATSSessionStore creates or opens the session KV bucket.
func NewNATSSessionStore(ctx context.Context, js jetstream.JetStream) (*NATSSessionStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucketSessions})
	if err != nil {
		return nil, fmt.Errorf("ensuring session kv bucket: %w", err)
	}
	return &NATSSessionStore{kv: kv}, nil
}

func (s *NATSSessionStore) Load(ctx context.Context, accountID, target string) (SessionRecord, bool, error) {
	entry, err := s.kv.Get(ctx, routeKey(accountID, target))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, fmt.Errorf("loading session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return SessionRecord{}, false, fmt.Errorf("decoding session: %w", err)
	}
	return rec, true, nil
}

func (s *NATSSessionStore) Save(ctx context.Context, rec SessionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if _, err := s.kv.Put(ctx, routeKey(rec.AccountID, rec.Target), payload); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}
