package account

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/v2"

	"github.com/aiox-platform/xmpp-gateway/internal/jid"
)

// DefaultAccountID is the synthesized account key used when config has no
// channels.xmpp.accounts map.
const DefaultAccountID = "default"

// Resolver resolves one account's configuration out of a koanf tree
// rooted at "channels.xmpp", the way internal/config.Load merges a base
// config plus environment overrides (§4.3).
type Resolver struct {
	k *koanf.Koanf
}

// NewResolver wraps an already-loaded koanf tree.
func NewResolver(k *koanf.Koanf) *Resolver {
	return &Resolver{k: k}
}

// AccountIDs lists the configured account keys, synthesizing a single
// "default" entry when channels.xmpp.accounts is absent (§4.3 step 1).
func (r *Resolver) AccountIDs() []string {
	keys := r.k.MapKeys("channels.xmpp.accounts")
	if len(keys) == 0 {
		return []string{DefaultAccountID}
	}
	return keys
}

// Resolve resolves a single account by ID, applying the §4.3 algorithm.
// An empty accountID resolves the default account. If the requested
// account isn't configured and the caller didn't pin it explicitly
// (pinned=false), Resolve falls back to the default account when that one
// is configured (§4.3 step 6).
func (r *Resolver) Resolve(accountID string, pinned bool) (Account, error) {
	id := normalizeAccountID(accountID)
	acct, err := r.resolveOne(id)
	if err != nil {
		return Account{}, err
	}
	if !acct.Configured() && !pinned && id != DefaultAccountID {
		fallback, ferr := r.resolveOne(DefaultAccountID)
		if ferr == nil && fallback.Configured() {
			return fallback, nil
		}
	}
	return acct, nil
}

func normalizeAccountID(accountID string) string {
	id := strings.ToLower(strings.TrimSpace(accountID))
	if id == "" {
		return DefaultAccountID
	}
	return id
}

func (r *Resolver) resolveOne(id string) (Account, error) {
	cfg := r.mergedConfig(id)
	isDefault := id == DefaultAccountID

	password, source := r.resolvePassword(cfg, isDefault)

	rawJID := cfg.JID
	if isDefault {
		if env := os.Getenv("XMPP_JID"); env != "" && rawJID == "" {
			rawJID = env
		}
	}

	bareJID := ""
	if rawJID != "" {
		if parsed, ok := jid.Parse(rawJID); ok {
			bareJID = parsed.Bare()
		} else {
			return Account{}, fmt.Errorf("account %s: invalid jid %q", id, rawJID)
		}
	}

	host := cfg.Host
	port := cfg.Port
	tls := true
	if cfg.TLS != nil {
		tls = *cfg.TLS
	}
	if isDefault {
		if env := os.Getenv("XMPP_HOST"); env != "" && host == "" {
			host = env
		}
		if env := os.Getenv("XMPP_PORT"); env != "" && port == 0 {
			if p, perr := strconv.Atoi(env); perr == nil {
				port = p
			}
		}
		if env := os.Getenv("XMPP_TLS"); env != "" {
			tls = env != "false" && env != "0"
		}
		if env := os.Getenv("XMPP_ROOMS"); env != "" && len(cfg.AutoJoinRooms) == 0 {
			cfg.AutoJoinRooms = splitNonEmpty(env, ",")
		}
	}
	if host == "" {
		if parsed, ok := jid.Parse(bareJID); ok {
			host = parsed.Domain
		}
	}
	if port == 0 {
		port = DefaultPort
	}

	resource := cfg.Resource
	if resource == "" {
		resource = DefaultResource
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}

	return Account{
		AccountID:      id,
		JID:            bareJID,
		Resource:       resource,
		Host:           host,
		Port:           port,
		TLS:            tls,
		Password:       password,
		PasswordSource: source,
		Enabled:        true,
		ConnectTimeout: connectTimeout,
		Config:         cfg,
	}, nil
}

// resolvePassword applies the §4.3 step 3 precedence: env (default
// account only) → passwordFile (read + trim) → inline password → none.
func (r *Resolver) resolvePassword(cfg AccountConfig, isDefault bool) (string, PasswordSource) {
	if isDefault {
		if env := os.Getenv("XMPP_PASSWORD"); env != "" {
			return env, PasswordEnv
		}
	}
	if cfg.PasswordFile != "" {
		data, err := os.ReadFile(cfg.PasswordFile)
		if err == nil {
			return strings.TrimSpace(string(data)), PasswordFile
		}
	}
	if cfg.Password != "" {
		return cfg.Password, PasswordConfig
	}
	return "", PasswordNone
}

// mergedConfig merges channels.xmpp (base) with
// channels.xmpp.accounts.<id> (account wins on conflicts), per §4.3 step 2.
func (r *Resolver) mergedConfig(id string) AccountConfig {
	base := r.readConfigAt("channels.xmpp")
	overlay := r.readConfigAt("channels.xmpp.accounts." + id)
	merged := mergeConfig(base, overlay)
	if merged.DMPolicy == "" {
		merged.DMPolicy = DMPairing
	}
	if merged.GroupPolicy == "" {
		merged.GroupPolicy = GroupAllowlist
	}
	return merged
}

func (r *Resolver) readConfigAt(path string) AccountConfig {
	get := func(key string) string { return r.k.String(path + "." + key) }
	getBool := func(key string) *bool {
		if !r.k.Exists(path + "." + key) {
			return nil
		}
		v := r.k.Bool(path + "." + key)
		return &v
	}

	cfg := AccountConfig{
		JID:            get("jid"),
		Password:       get("password"),
		PasswordFile:   get("passwordFile"),
		Resource:       get("resource"),
		Host:           get("host"),
		Port:           r.k.Int(path + ".port"),
		TLS:            getBool("tls"),
		DMPolicy:       DMPolicy(get("dmPolicy")),
		AllowFrom:      r.k.Strings(path + ".allowFrom"),
		GroupPolicy:    GroupPolicy(get("groupPolicy")),
		GroupAllowFrom: r.k.Strings(path + ".groupAllowFrom"),
		AutoJoinRooms:  r.k.Strings(path + ".autoJoinRooms"),
		MentionPatterns: r.k.Strings(path + ".mentionPatterns"),
		Markdown:       get("markdown"),
		HistoryLimit:   r.k.Int(path + ".historyLimit"),
		ResponsePrefix: get("responsePrefix"),
		BlockStreaming: r.k.Bool(path + ".blockStreaming"),
		Rooms:          r.readRooms(path + ".rooms"),
	}
	return cfg
}

func (r *Resolver) readRooms(path string) map[string]RoomConfig {
	keys := r.k.MapKeys(path)
	if len(keys) == 0 {
		return nil
	}
	rooms := make(map[string]RoomConfig, len(keys))
	for _, key := range keys {
		p := path + "." + key
		rc := RoomConfig{
			AllowFrom:    r.k.Strings(p + ".allowFrom"),
			Tools:        r.k.Strings(p + ".tools"),
			Skills:       r.k.Strings(p + ".skills"),
			SystemPrompt: r.k.String(p + ".systemPrompt"),
		}
		if r.k.Exists(p + ".requireMention") {
			v := r.k.Bool(p + ".requireMention")
			rc.RequireMention = &v
		}
		if r.k.Exists(p + ".enabled") {
			v := r.k.Bool(p + ".enabled")
			rc.Enabled = &v
		}
		rooms[key] = rc
	}
	return rooms
}

// mergeConfig overlays fields present in overlay onto base; account-level
// fields win (§4.3 step 2: "account wins").
func mergeConfig(base, overlay AccountConfig) AccountConfig {
	merged := base
	if overlay.JID != "" {
		merged.JID = overlay.JID
	}
	if overlay.Password != "" {
		merged.Password = overlay.Password
	}
	if overlay.PasswordFile != "" {
		merged.PasswordFile = overlay.PasswordFile
	}
	if overlay.Resource != "" {
		merged.Resource = overlay.Resource
	}
	if overlay.Host != "" {
		merged.Host = overlay.Host
	}
	if overlay.Port != 0 {
		merged.Port = overlay.Port
	}
	if overlay.TLS != nil {
		merged.TLS = overlay.TLS
	}
	if overlay.DMPolicy != "" {
		merged.DMPolicy = overlay.DMPolicy
	}
	if len(overlay.AllowFrom) > 0 {
		merged.AllowFrom = overlay.AllowFrom
	}
	if overlay.GroupPolicy != "" {
		merged.GroupPolicy = overlay.GroupPolicy
	}
	if len(overlay.GroupAllowFrom) > 0 {
		merged.GroupAllowFrom = overlay.GroupAllowFrom
	}
	if len(overlay.Rooms) > 0 {
		if merged.Rooms == nil {
			merged.Rooms = map[string]RoomConfig{}
		}
		for k, v := range overlay.Rooms {
			merged.Rooms[k] = v
		}
	}
	if len(overlay.AutoJoinRooms) > 0 {
		merged.AutoJoinRooms = overlay.AutoJoinRooms
	}
	if len(overlay.MentionPatterns) > 0 {
		merged.MentionPatterns = overlay.MentionPatterns
	}
	if overlay.Markdown != "" {
		merged.Markdown = overlay.Markdown
	}
	if overlay.HistoryLimit != 0 {
		merged.HistoryLimit = overlay.HistoryLimit
	}
	if overlay.ResponsePrefix != "" {
		merged.ResponsePrefix = overlay.ResponsePrefix
	}
	if overlay.BlockStreaming {
		merged.BlockStreaming = overlay.BlockStreaming
	}
	if overlay.ConnectTimeout != 0 {
		merged.ConnectTimeout = overlay.ConnectTimeout
	}
	return merged
}

func splitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
