package jid

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantOK  bool
		local   string
		domain  string
		res     string
	}{
		{name: "bare", in: "alice@example.com", wantOK: true, local: "alice", domain: "example.com"},
		{name: "full", in: "alice@example.com/phone", wantOK: true, local: "alice", domain: "example.com", res: "phone"},
		{name: "domain only", in: "example.com", wantOK: true, domain: "example.com"},
		{name: "uppercase domain folds", in: "Alice@EXAMPLE.com", wantOK: true, local: "alice", domain: "example.com"},
		{name: "empty", in: "", wantOK: false},
		{name: "room occupant", in: "room@conference.example.com/nick", wantOK: true, local: "room", domain: "conference.example.com", res: "nick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Local != tt.local || got.Domain != tt.domain || got.Resource != tt.res {
				t.Fatalf("Parse(%q) = %+v, want local=%q domain=%q res=%q", tt.in, got, tt.local, tt.domain, tt.res)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Alice@Example.COM/phone", "xmpp:bob@example.com", "room@conference.example.com", "*"}
	for _, in := range inputs {
		once, ok1 := Normalize(in)
		if in == "*" {
			if once != "" || ok1 {
				// Normalize parses "*" as a domain-only JID; allowlist
				// wildcards go through NormalizeAllowEntry instead.
			}
			continue
		}
		if !ok1 {
			t.Fatalf("Normalize(%q) failed", in)
		}
		twice, ok2 := Normalize(once)
		if !ok2 || once != twice {
			t.Fatalf("Normalize not idempotent: Normalize(%q)=%q, Normalize(that)=%q", in, once, twice)
		}
	}
}

func TestNormalizeAllowEntry(t *testing.T) {
	tests := []struct{ in, want string }{
		{"*", "*"},
		{"xmpp:Alice@Example.com", "alice@example.com"},
		{"user:bob@example.com", "bob@example.com"},
		{"room:room@conference.example.com", "room@conference.example.com"},
		{"CAROL@EXAMPLE.COM", "carol@example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeAllowEntry(tt.in); got != tt.want {
			t.Errorf("NormalizeAllowEntry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRoom(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"foo@conference.example.com", true},
		{"foo@muc.example.com", true},
		{"alice@example.com", false},
		{"not-a-jid", false},
	}
	for _, tt := range tests {
		if got := IsRoom(tt.in); got != tt.want {
			t.Errorf("IsRoom(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBareAndString(t *testing.T) {
	j, ok := Parse("room@conference.example.com/nickname")
	if !ok {
		t.Fatal("parse failed")
	}
	if j.Bare() != "room@conference.example.com" {
		t.Fatalf("Bare() = %q", j.Bare())
	}
	if j.String() != "room@conference.example.com/nickname" {
		t.Fatalf("String() = %q", j.String())
	}
	if Occupant(j.Bare(), "nickname") != j.String() {
		t.Fatalf("Occupant mismatch")
	}
}
