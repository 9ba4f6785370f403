package jwtkit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Parse failures map to exactly one of these kinds so callers can pick user
// messaging ("session expired" vs "invalid token") without string matching.
var (
	ErrTokenDecode     = errors.New("token could not be decoded or verified")
	ErrTokenExpired    = errors.New("token signature has expired")
	ErrInvalidAudience = errors.New("token audience does not match")
)

// ErrNoSecret is returned when a codec is used before a signing key is set.
var ErrNoSecret = errors.New("signing secret not configured")

// Codec signs and parses session tokens with a single shared HS256 secret.
//
// Audience is the expected `aud` on parse (typically the OAuth2 client id);
// when empty, the caller's request base URL is used instead. CustomClaim is
// the runtime-configured name of the single deployment-defined claim; it is
// constant for the lifetime of a deployment and applied only here, at the
// wire boundary. CustomerViews gates whether customer lists are serialized.
type Codec struct {
	Secret        []byte
	Audience      string
	CustomClaim   string
	CustomerViews bool
}

// Sign serializes the claims and returns the compact signed token.
//
// Required claims are always emitted; optional fields only when non-empty.
// Scopes collapse into a single space-joined `scope` string. email_verified
// is emitted only when explicitly known.
func (c *Codec) Sign(cl Claims) (string, error) {
	if len(c.Secret) == 0 {
		return "", ErrNoSecret
	}
	m := jwt.MapClaims{
		"iss": cl.Issuer,
		"typ": cl.Type,
		"sub": cl.Subject,
		"aud": cl.Audience,
		"exp": cl.ExpiresAt.Unix(),
		"nbf": cl.NotBefore.Unix(),
		"iat": cl.IssuedAt.Unix(),
	}
	if cl.ID != "" {
		m["jti"] = cl.ID
	}
	if cl.Name != "" {
		m["name"] = cl.Name
	}
	if cl.PreferredUsername != "" {
		m["preferred_username"] = cl.PreferredUsername
	}
	if cl.Email != "" {
		m["email"] = cl.Email
	}
	if cl.EmailVerified != nil {
		m["email_verified"] = *cl.EmailVerified
	}
	if cl.Provider != "" {
		m["provider"] = cl.Provider
	}
	if len(cl.Scopes) > 0 {
		m["scope"] = cl.ScopeString()
	}
	if c.CustomerViews {
		m["customers"] = cl.Customers
	}
	if c.CustomClaim != "" {
		if v, ok := cl.Extra[c.CustomClaim]; ok {
			m[c.CustomClaim] = v
		}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, m).SignedString(c.Secret)
}

// Parse verifies the signature, expiry, not-before and audience of a compact
// token and reconstructs its claims.
//
// requestURL is the audience fallback for deployments without a configured
// client id. Scopes are rebuilt by splitting `scope` on whitespace. A legacy
// singular `customer` claim wins over the plural `customers` list and parses
// as a one-element list.
func (c *Codec) Parse(raw, requestURL string) (*Claims, error) {
	if len(c.Secret) == 0 {
		return nil, ErrNoSecret
	}
	aud := c.Audience
	if aud == "" {
		aud = requestURL
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(aud),
	)
	m := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, m, func(*jwt.Token) (any, error) {
		return c.Secret, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %v", ErrInvalidAudience, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
		}
	}

	cl := &Claims{
		Issuer:            str(m["iss"]),
		Type:              str(m["typ"]),
		Subject:           str(m["sub"]),
		Audience:          str(m["aud"]),
		ExpiresAt:         unixTime(m["exp"]),
		NotBefore:         unixTime(m["nbf"]),
		IssuedAt:          unixTime(m["iat"]),
		ID:                str(m["jti"]),
		Name:              str(m["name"]),
		PreferredUsername: str(m["preferred_username"]),
		Email:             str(m["email"]),
		Provider:          str(m["provider"]),
		Scopes:            strings.Fields(str(m["scope"])),
	}
	if v, ok := m["email_verified"].(bool); ok {
		cl.EmailVerified = &v
	}
	if v, ok := m["customer"]; ok {
		cl.Customers = []string{str(v)}
	} else if v, ok := m["customers"]; ok {
		cl.Customers = stringSlice(v)
	}
	if c.CustomClaim != "" {
		if v, ok := m[c.CustomClaim]; ok {
			cl.Extra = map[string]any{c.CustomClaim: v}
		}
	}
	return cl, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func unixTime(v any) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0)
	case int64:
		return time.Unix(n, 0)
	}
	return time.Time{}
}

func stringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vs == "" {
			return nil
		}
		return []string{vs}
	}
	return nil
}
