package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/collab"
	"github.com/aiox-platform/xmpp-gateway/internal/config"
	"github.com/aiox-platform/xmpp-gateway/internal/monitor"
	inats "github.com/aiox-platform/xmpp-gateway/internal/nats"
	"github.com/aiox-platform/xmpp-gateway/internal/pairing"
	iredis "github.com/aiox-platform/xmpp-gateway/internal/redis"
	"github.com/aiox-platform/xmpp-gateway/internal/xmppclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Error("connecting to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	js := natsClient.JetStream()

	activity := collab.NewNATSActivityRecorder(js)

	routing, err := collab.NewNATSRoutingTable(ctx, js)
	if err != nil {
		slog.Error("opening routing kv bucket", "error", err)
		os.Exit(1)
	}

	sessions, err := collab.NewNATSSessionStore(ctx, js)
	if err != nil {
		slog.Error("opening session kv bucket", "error", err)
		os.Exit(1)
	}

	pairingStore, err := pairing.NewNATSStore(ctx, js)
	if err != nil {
		slog.Error("opening pairing kv bucket", "error", err)
		os.Exit(1)
	}
	pairingEngine := pairing.NewEngine(pairingStore).WithRateLimiter(pairing.NewRateLimiter(redisClient))

	resolver := account.NewResolver(cfg.Koanf())
	var monitors []*monitor.Monitor
	for _, id := range resolver.AccountIDs() {
		acct, err := resolver.Resolve(id, true)
		if err != nil {
			slog.Error("resolving account", "account", id, "error", err)
			continue
		}
		if !acct.Configured() {
			slog.Warn("account not configured, skipping", "account", id)
			continue
		}

		client := xmppclient.New(acct)
		mon := monitor.New(acct, client, monitor.Deps{
			Pairing:  pairingEngine,
			Activity: activity,
			Routing:  routing,
			Sessions: sessions,
			// Agent and Markdown are bound to the out-of-scope agent-runtime
			// and markdown-flattening collaborators at deployment time; this
			// binary wires the channel-adapter CORE only (§1).
		})
		monitors = append(monitors, mon)
		slog.Info("account monitor configured", "account", acct.AccountID, "jid", acct.JID)
	}

	if len(monitors) == 0 {
		slog.Error("no configured XMPP accounts, nothing to run")
		os.Exit(1)
	}

	slog.Info("xmpp gateway starting", "accounts", len(monitors))
	monitor.NewSupervisor(monitors...).Run(ctx)
	slog.Info("xmpp gateway stopped")
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
