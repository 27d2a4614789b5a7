// Package policy implements the inbound access-control decision chain
// from spec §4.4: group gate, room match, allowlist matching, DM gate,
// command gate and mention gate, run in fixed order with any NO
// short-circuiting to DROP.
//
// Each policy variant (DMPolicy, GroupPolicy) is a closed enum compared
// with a switch, not dispatched through an interface (§9 design note:
// "prefer tagged variants over interface dispatch"). Allowlist matching
// is a pure function over (candidates, entries).
package policy

import (
	"regexp"
	"strings"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
	"github.com/aiox-platform/xmpp-gateway/internal/jid"
)

// Message is the subset of an inbound message the policy engine needs.
// It mirrors internal/inbound.Message without importing it, to keep this
// package a leaf.
type Message struct {
	IsGroup        bool
	Target         string // room JID for group messages, sender bare JID for DMs
	SenderJID      string // full JID
	SenderBareJID  string
	SenderNickname string
	Body           string
}

// Decision is the outcome of running the gate chain.
type Decision struct {
	Allow             bool
	Reason            string
	NeedsPairing      bool // dmPolicy=pairing and sender unknown: issue a challenge
	WasMentioned      bool
	CommandAuthorized bool
	RoomConfig        *account.RoomConfig
}

func drop(reason string) Decision { return Decision{Allow: false, Reason: reason} }
func allow(reason string) Decision { return Decision{Allow: true, Reason: reason} }

// CommandGate is implemented by the host's command detector/authorizer
// (§6 "command detector and gate"), an out-of-scope collaborator.
type CommandGate interface {
	// IsCommand reports whether body contains a recognized command
	// prefix, and whether the channel allows text commands at all.
	IsCommand(body string) (isCommand bool, channelAllowsCommands bool)
}

// Deps bundles the inputs the gate chain needs beyond the message and
// account config.
type Deps struct {
	// PairingAllowlist is the pairing store's current allowlist for this
	// channel (approved bare JIDs), merged into the effective DM/group
	// allowlist per §4.4.
	PairingAllowlist []string
	Commands         CommandGate
}

// Decide runs the full §4.4 gate chain for one inbound message against
// one account's merged config.
func Decide(msg Message, acctJID string, cfg account.AccountConfig, deps Deps) Decision {
	if sameBareJID(msg.SenderBareJID, acctJID) {
		return drop("self-message")
	}

	if msg.IsGroup {
		return decideGroup(msg, cfg, deps)
	}
	return decideDM(msg, cfg, deps)
}

func sameBareJID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ja, ok1 := jid.Parse(a)
	jb, ok2 := jid.Parse(b)
	return ok1 && ok2 && ja.EqualBare(jb)
}

func decideGroup(msg Message, cfg account.AccountConfig, deps Deps) Decision {
	if cfg.GroupPolicy == account.GroupDisabled {
		return drop("group-disabled")
	}

	room, wildcard, matched := RoomMatch(cfg.Rooms, msg.Target)

	if cfg.GroupPolicy == account.GroupAllowlist {
		if len(cfg.Rooms) == 0 {
			return drop("no rooms configured")
		}
		if !matched {
			return drop("not allowlisted")
		}
	}

	if roomDisabled(room, wildcard) {
		return drop("room-disabled")
	}

	reason := "open"
	if matched {
		reason = "allowlisted"
	}

	// Allowlist / command authorization for the sender within this room.
	effective := effectiveGroupAllowlist(room, cfg, deps.PairingAllowlist)
	candidates := candidateSet(msg)
	senderAllowed := AllowlistMatch(candidates, effective)
	if len(effective) == 0 {
		senderAllowed = cfg.GroupPolicy == account.GroupOpen
	}

	isCommand, commandsEnabled := false, false
	if deps.Commands != nil {
		isCommand, commandsEnabled = deps.Commands.IsCommand(msg.Body)
	}
	commandAuthorized := isCommand && commandsEnabled && senderAllowed
	if isCommand && commandsEnabled && !senderAllowed {
		return drop("unauthorized-command")
	}

	requireMention := resolveRequireMention(room, wildcard)
	wasMentioned := matchesMention(msg, cfg.MentionPatterns, acctLocalFromConfig(cfg))

	d := Decision{Reason: reason, WasMentioned: wasMentioned, CommandAuthorized: commandAuthorized, RoomConfig: room}
	switch {
	case !requireMention:
		d.Allow = true
	case wasMentioned:
		d.Allow = true
	case commandAuthorized:
		d.Allow = true
	default:
		d.Allow = false
		d.Reason = "missing-mention"
	}
	return d
}

func decideDM(msg Message, cfg account.AccountConfig, deps Deps) Decision {
	switch cfg.DMPolicy {
	case account.DMDisabled:
		return drop("dm-disabled")
	case account.DMOpen:
		return allow("dm-open")
	}

	effective := dedupe(append(append([]string{}, cfg.AllowFrom...), deps.PairingAllowlist...))
	candidates := candidateSet(msg)
	if AllowlistMatch(candidates, effective) {
		return allow("allowlisted")
	}

	if cfg.DMPolicy == account.DMPairing {
		d := drop("pairing-required")
		d.NeedsPairing = true
		return d
	}
	return drop("not-allowlisted")
}

func roomDisabled(room, wildcard *account.RoomConfig) bool {
	if room != nil && room.Enabled != nil && !*room.Enabled {
		return true
	}
	if room == nil && wildcard != nil && wildcard.Enabled != nil && !*wildcard.Enabled {
		return true
	}
	return false
}

func resolveRequireMention(room, wildcard *account.RoomConfig) bool {
	if room != nil && room.RequireMention != nil {
		return *room.RequireMention
	}
	if wildcard != nil && wildcard.RequireMention != nil {
		return *wildcard.RequireMention
	}
	return true
}

func effectiveGroupAllowlist(room *account.RoomConfig, cfg account.AccountConfig, pairingAllowlist []string) []string {
	if room != nil && len(room.AllowFrom) > 0 {
		return room.AllowFrom
	}
	return dedupe(append(append([]string{}, cfg.GroupAllowFrom...), pairingAllowlist...))
}

// RoomMatch finds the room config for target: exact key first, then
// case-insensitive equality, else the "*" wildcard (§4.4).
func RoomMatch(rooms map[string]account.RoomConfig, target string) (room, wildcard *account.RoomConfig, matched bool) {
	if rooms == nil {
		return nil, nil, false
	}
	if rc, ok := rooms[target]; ok {
		r := rc
		return &r, wildcardOf(rooms), true
	}
	lowerTarget := strings.ToLower(target)
	for key, rc := range rooms {
		if key == "*" {
			continue
		}
		if strings.ToLower(key) == lowerTarget {
			r := rc
			return &r, wildcardOf(rooms), true
		}
	}
	if rc, ok := rooms["*"]; ok {
		r := rc
		return nil, &r, true
	}
	return nil, nil, false
}

func wildcardOf(rooms map[string]account.RoomConfig) *account.RoomConfig {
	if rc, ok := rooms["*"]; ok {
		r := rc
		return &r
	}
	return nil
}

// AllowlistMatch reports whether any of candidates (already lowercased
// bare-JID-or-nickname forms) matches any of entries (normalized
// allowlist entries, "*" matches anything).
func AllowlistMatch(candidates, entries []string) bool {
	for _, e := range entries {
		if e == "*" {
			return true
		}
	}
	normEntries := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		normEntries[jid.NormalizeAllowEntry(e)] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := normEntries[strings.ToLower(c)]; ok {
			return true
		}
	}
	return false
}

func candidateSet(msg Message) []string {
	candidates := []string{strings.ToLower(msg.SenderBareJID), strings.ToLower(msg.SenderJID)}
	if msg.SenderNickname != "" {
		candidates = append(candidates, strings.ToLower(msg.SenderNickname))
	}
	return candidates
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// matchesMention reports whether body matches any of patterns (treated as
// regular expressions) or mentions localpart as a standalone word,
// optionally followed by ":" or ",", case-insensitively (§4.4).
func matchesMention(msg Message, patterns []string, localpart string) bool {
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		if re.MatchString(msg.Body) {
			return true
		}
	}
	if localpart == "" {
		return false
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(localpart) + `\b[:,]?`)
	return re.MatchString(msg.Body)
}

func acctLocalFromConfig(cfg account.AccountConfig) string {
	j, ok := jid.Parse(cfg.JID)
	if !ok {
		return ""
	}
	return j.Local
}
