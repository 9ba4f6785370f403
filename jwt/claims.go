package jwtkit

import (
	"strings"
	"time"
)

// Claims is the full claim set of a locally issued session token.
//
// Registered claims (iss/typ/sub/aud/exp/nbf/iat/jti) are always present on
// issued tokens. The remaining fields are optional and omitted from the wire
// format when empty. Extra holds deployment-defined custom claims keyed by
// their wire names; the codec decides which of them make it into the token.
type Claims struct {
	Issuer     string
	Type       string
	Subject    string
	Audience   string
	ExpiresAt  time.Time
	NotBefore  time.Time
	IssuedAt   time.Time
	ID         string // jti

	Name              string
	PreferredUsername string
	Email             string
	// EmailVerified is nil when the upstream identity documents did not carry
	// an explicit email_verified claim. Only an explicit value is serialized.
	EmailVerified *bool
	Provider      string
	Scopes        []string
	Customers     []string
	Extra         map[string]any
}

// ScopeString returns the scopes joined into the single space-separated
// `scope` claim value, e.g. ["read","write"] => "read write".
func (c *Claims) ScopeString() string { return strings.Join(c.Scopes, " ") }

// HasScope reports whether the token carries the given scope verbatim.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
