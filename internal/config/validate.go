package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aiox-platform/xmpp-gateway/internal/account"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.k != nil {
		errs = append(errs, c.validateXMPPChannels()...)
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// validateXMPPChannels enforces that dmPolicy=open carries "*" in allowFrom
// (§6: "dmPolicy=open requires \"*\" in allowFrom"), path-qualified per account.
func (c *Config) validateXMPPChannels() []string {
	var errs []string
	r := account.NewResolver(c.k)
	for _, id := range r.AccountIDs() {
		acct, err := r.Resolve(id, true)
		if err != nil {
			errs = append(errs, fmt.Sprintf("channels.xmpp.accounts.%s: %v", id, err))
			continue
		}
		if acct.Config.DMPolicy == account.DMOpen && !account.AllowsAny(acct.Config.AllowFrom) {
			path := "channels.xmpp.allowFrom"
			if id != account.DefaultAccountID {
				path = fmt.Sprintf("channels.xmpp.accounts.%s.allowFrom", id)
			}
			errs = append(errs, fmt.Sprintf("%s must contain \"*\" when dmPolicy is \"open\"", path))
		}
	}
	return errs
}
