// Package account resolves XMPP account configuration: one or more
// accounts merged from base config, per-account overrides, and (for the
// default account only) environment variables, per spec §4.3.
package account

import "time"

// DMPolicy controls how direct messages from unrecognized senders are
// handled.
type DMPolicy string

const (
	DMPairing   DMPolicy = "pairing"
	DMAllowlist DMPolicy = "allowlist"
	DMOpen      DMPolicy = "open"
	DMDisabled  DMPolicy = "disabled"
)

// GroupPolicy controls how MUC messages are handled.
type GroupPolicy string

const (
	GroupAllowlist GroupPolicy = "allowlist"
	GroupOpen      GroupPolicy = "open"
	GroupDisabled  GroupPolicy = "disabled"
)

// PasswordSource records where an account's password came from, for
// diagnostics.
type PasswordSource string

const (
	PasswordEnv  PasswordSource = "env"
	PasswordFile PasswordSource = "passwordFile"
	PasswordConfig PasswordSource = "config"
	PasswordNone PasswordSource = "none"
)

// DefaultResource is the product identifier used as the resource when an
// account config doesn't set one.
const DefaultResource = "aiox-xmpp"

// DefaultPort is the standard XMPP client port.
const DefaultPort = 5222

// DefaultConnectTimeout is the connect timeout used when the account
// config doesn't override it.
const DefaultConnectTimeout = 15 * time.Second

// ProbeConnectTimeout is the shorter timeout used by status probes (§4.2).
const ProbeConnectTimeout = 8 * time.Second

// RoomConfig is the per-room (or wildcard "*") override block.
type RoomConfig struct {
	RequireMention *bool
	Enabled        *bool
	AllowFrom      []string
	Tools          []string
	ToolsBySender  map[string][]string
	Skills         []string
	SystemPrompt   string
}

// AccountConfig is the merged (base ⊕ per-account) configuration for one
// account, before password/host/port resolution.
type AccountConfig struct {
	JID             string
	Password        string
	PasswordFile    string
	Resource        string
	Host            string
	Port            int
	TLS             *bool
	DMPolicy        DMPolicy
	AllowFrom       []string
	GroupPolicy     GroupPolicy
	GroupAllowFrom  []string
	Rooms           map[string]RoomConfig
	AutoJoinRooms   []string
	MentionPatterns []string
	Markdown        string
	HistoryLimit    int
	ResponsePrefix  string
	BlockStreaming  bool
	ConnectTimeout  time.Duration
}

// Account is the fully resolved identity and connection parameters for
// one XMPP account (spec §3).
type Account struct {
	AccountID      string
	JID            string // bare JID
	Resource       string
	Host           string
	Port           int
	TLS            bool
	Password       string
	PasswordSource PasswordSource
	Enabled        bool
	ConnectTimeout time.Duration
	Config         AccountConfig
}

// AllowsAny reports whether an allowFrom list contains the "*" wildcard.
func AllowsAny(allowFrom []string) bool {
	for _, e := range allowFrom {
		if e == "*" {
			return true
		}
	}
	return false
}

// Configured reports whether the account has both a JID and a password,
// the precondition for starting a client (§3: "configured = jid ≠ "" ∧
// password ≠ """).
func (a Account) Configured() bool {
	return a.JID != "" && a.Password != ""
}
