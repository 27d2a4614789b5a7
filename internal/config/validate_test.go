package config

import (
	"strings"
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

func validConfig() *Config {
	return &Config{
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		XMPP:  XMPPConfig{Domain: "aiox.local"},
		NATS:  NATSConfig{URL: "nats://localhost:4222"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_InvalidRedisPort(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Port = 99999
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "REDIS_PORT") {
		t.Fatalf("expected REDIS_PORT error, got: %v", err)
	}
}

func TestValidate_DMPolicyOpenRequiresWildcardAllowFrom(t *testing.T) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"channels.xmpp.jid":       "agent@localhost",
		"channels.xmpp.password":  "p",
		"channels.xmpp.dmPolicy":  "open",
		"channels.xmpp.allowFrom": []string{"someone@localhost"},
	}, "."), nil); err != nil {
		t.Fatal(err)
	}
	cfg := validConfig()
	cfg.k = k
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must contain \"*\"") {
		t.Fatalf("expected wildcard-allowFrom error, got: %v", err)
	}
}

func TestValidate_DMPolicyOpenWithWildcardPasses(t *testing.T) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"channels.xmpp.jid":       "agent@localhost",
		"channels.xmpp.password":  "p",
		"channels.xmpp.dmPolicy":  "open",
		"channels.xmpp.allowFrom": []string{"*"},
	}, "."), nil); err != nil {
		t.Fatal(err)
	}
	cfg := validConfig()
	cfg.k = k
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"channels.xmpp.jid":       "agent@localhost",
		"channels.xmpp.password":  "p",
		"channels.xmpp.dmPolicy":  "open",
		"channels.xmpp.allowFrom": []string{"someone@localhost"},
	}, "."), nil); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Redis: RedisConfig{Port: 99999}, k: k}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"REDIS_PORT", "must contain \"*\""} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}
