// Package jid parses and normalizes XMPP Jabber IDs.
//
// A JID has the form local@domain/resource. This package never panics on
// malformed input; callers get a zero JID and ok=false instead.
package jid

import "strings"

// JID is a parsed local@domain/resource identifier. The zero value is not
// a valid JID.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// Parse splits s into a JID. Domain is required; local and resource are
// optional; whitespace in the local or domain part makes s invalid.
// Domain and local are lowercased, matching the case-insensitive
// matching rules in use throughout the adapter. Resource is left as-is.
func Parse(s string) (JID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return JID{}, false
	}

	var local, rest string
	if at := strings.IndexByte(s, '@'); at >= 0 {
		local = s[:at]
		rest = s[at+1:]
	} else {
		rest = s
	}

	domain := rest
	resource := ""
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		domain = rest[:slash]
		resource = rest[slash+1:]
	}

	if domain == "" {
		return JID{}, false
	}
	if strings.ContainsAny(local+domain, " \t\r\n") {
		return JID{}, false
	}

	return JID{
		Local:    strings.ToLower(local),
		Domain:   strings.ToLower(domain),
		Resource: resource,
	}, true
}

// Bare returns the local@domain form, dropping any resource.
func (j JID) Bare() string {
	if j.Local == "" {
		return j.Domain
	}
	return j.Local + "@" + j.Domain
}

// String returns the full local@domain/resource form.
func (j JID) String() string {
	bare := j.Bare()
	if j.Resource == "" {
		return bare
	}
	return bare + "/" + j.Resource
}

// IsZero reports whether j is the zero value.
func (j JID) IsZero() bool {
	return j.Domain == ""
}

// Equal compares two JIDs for exact equality (domain/local already
// case-folded by Parse; resource compared verbatim per RFC 6122).
func (j JID) Equal(other JID) bool {
	return j.Local == other.Local && j.Domain == other.Domain && j.Resource == other.Resource
}

// EqualBare compares the bare-JID portion of two JIDs.
func (j JID) EqualBare(other JID) bool {
	return j.Local == other.Local && j.Domain == other.Domain
}

// Normalize parses and re-renders s in its canonical form: one channel
// prefix stripped, local and domain lowercased, resource kept. It is
// idempotent: Normalize(Normalize(x)) == Normalize(x) for any x that parses.
// Returns "", false for input that doesn't parse.
func Normalize(s string) (string, bool) {
	j, ok := Parse(StripChannelPrefix(s))
	if !ok {
		return "", false
	}
	return j.String(), true
}

// NormalizeBare is like Normalize but drops the resource.
func NormalizeBare(s string) (string, bool) {
	j, ok := Parse(StripChannelPrefix(s))
	if !ok {
		return "", false
	}
	return j.Bare(), true
}

// channelPrefixes are the target-string prefixes §6 says must be accepted
// and stripped exactly once before JID parsing.
var channelPrefixes = []string{"xmpp:", "user:", "room:"}

// StripChannelPrefix removes a single leading "xmpp:", "user:" or "room:"
// prefix from s, if present. "*" passes through untouched.
func StripChannelPrefix(s string) string {
	if s == "*" {
		return s
	}
	for _, p := range channelPrefixes {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}
	return s
}

// NormalizeAllowEntry normalizes an allowlist entry: "*" passes through
// unchanged, anything else is stripped of a single channel prefix and
// reduced to its bare-JID form, lowercased. Invalid entries are returned
// lowercased and stripped, best-effort, so a typo'd allowlist entry still
// fails comparisons rather than panicking.
func NormalizeAllowEntry(s string) string {
	if s == "*" {
		return "*"
	}
	bare, ok := NormalizeBare(s)
	if !ok {
		return strings.ToLower(StripChannelPrefix(s))
	}
	return bare
}

// IsRoom applies the §3/§9 room-JID heuristic: the domain contains
// "conference" or "muc". It is a package-level variable so a deployment
// with unusual MUC component names can override it (§9 design note).
var IsRoom = func(rawJID string) bool {
	j, ok := Parse(rawJID)
	if !ok {
		return false
	}
	return strings.Contains(j.Domain, "conference") || strings.Contains(j.Domain, "muc")
}

// Occupant builds a room occupant JID room@service/nickname.
func Occupant(roomJID, nickname string) string {
	return roomJID + "/" + nickname
}
