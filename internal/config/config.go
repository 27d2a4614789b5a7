package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Redis RedisConfig
	XMPP  XMPPConfig
	NATS  NATSConfig
	Log   LogConfig

	// k is the underlying koanf tree, kept around so packages that need
	// a richer shape than the flat Config structs (account.Resolver reading
	// channels.xmpp.* and channels.xmpp.accounts.<id>.*) can read it directly
	// instead of Config growing a field per nested account override.
	k *koanf.Koanf
}

// Koanf returns the underlying koanf tree Load populated.
func (c *Config) Koanf() *koanf.Koanf { return c.k }

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// XMPPConfig carries the legacy external-component connection parameters
// (XEP-0114, internal/xmpp) kept alive as reference infrastructure; the
// client-to-server adapter accounts live under channels.xmpp in the koanf
// tree and are read via account.Resolver instead.
type XMPPConfig struct {
	Domain          string
	ComponentHost   string
	ComponentPort   int
	ComponentName   string
	ComponentSecret string
}

// ComponentAddr returns the host:port the external component dials.
func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.ComponentHost, c.ComponentPort)
}

type NATSConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		XMPP: XMPPConfig{
			Domain:          k.String("xmpp.domain"),
			ComponentHost:   k.String("xmpp.component.host"),
			ComponentPort:   k.Int("xmpp.component.port"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		k: k,
	}

	// Apply defaults
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.XMPP.Domain == "" {
		cfg.XMPP.Domain = "aiox.local"
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}
