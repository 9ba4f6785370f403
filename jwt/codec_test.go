package jwtkit

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("unit-test-secret")

func baseClaims() Claims {
	now := time.Now().Truncate(time.Second)
	return Claims{
		Issuer:    "http://api.example.test/",
		Type:      "Bearer",
		Subject:   "subject-1",
		Audience:  "test-client",
		ExpiresAt: now.Add(time.Hour),
		NotBefore: now,
		IssuedAt:  now,
		ID:        "jti-1",
	}
}

func TestSignParse_RoundTripsAllOptionalFields(t *testing.T) {
	verified := true
	cl := baseClaims()
	cl.Name = "Ada Lovelace"
	cl.PreferredUsername = "ada"
	cl.Email = "ada@example.com"
	cl.EmailVerified = &verified
	cl.Provider = "openid"
	cl.Scopes = []string{"read", "write"}
	cl.Customers = []string{"orgA", "orgB"}
	cl.Extra = map[string]any{"department": "engineering"}

	codec := &Codec{Secret: testSecret, Audience: "test-client", CustomClaim: "department", CustomerViews: true}
	raw, err := codec.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	got, err := codec.Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got.Subject != cl.Subject || got.Issuer != cl.Issuer || got.Audience != cl.Audience {
		t.Fatalf("registered claims mismatch: %+v", got)
	}
	if got.Type != "Bearer" || got.ID != "jti-1" {
		t.Fatalf("typ/jti mismatch: typ=%q jti=%q", got.Type, got.ID)
	}
	if got.Name != cl.Name || got.PreferredUsername != cl.PreferredUsername || got.Email != cl.Email {
		t.Fatalf("profile claims mismatch: %+v", got)
	}
	if got.EmailVerified == nil || !*got.EmailVerified {
		t.Fatalf("expected email_verified=true, got %v", got.EmailVerified)
	}
	if got.Provider != "openid" {
		t.Fatalf("expected provider openid, got %q", got.Provider)
	}
	if len(got.Scopes) != 2 || got.Scopes[0] != "read" || got.Scopes[1] != "write" {
		t.Fatalf("scopes mismatch: %v", got.Scopes)
	}
	if len(got.Customers) != 2 || got.Customers[0] != "orgA" {
		t.Fatalf("customers mismatch: %v", got.Customers)
	}
	if got.Extra["department"] != "engineering" {
		t.Fatalf("custom claim mismatch: %v", got.Extra)
	}
	if !got.ExpiresAt.Equal(cl.ExpiresAt) {
		t.Fatalf("exp mismatch: want %v got %v", cl.ExpiresAt, got.ExpiresAt)
	}
}

func TestSign_OmitsEmptyOptionalFields(t *testing.T) {
	codec := &Codec{Secret: testSecret, Audience: "test-client"}
	raw, err := codec.Sign(baseClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	m := decodePayload(t, raw)
	for _, key := range []string{"name", "preferred_username", "email", "email_verified", "provider", "scope", "customers"} {
		if _, ok := m[key]; ok {
			t.Fatalf("expected %q to be omitted, payload: %v", key, m)
		}
	}
	for _, key := range []string{"iss", "typ", "sub", "aud", "exp", "nbf", "iat", "jti"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("expected required claim %q, payload: %v", key, m)
		}
	}

	got, err := codec.Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Name != "" || got.Email != "" || got.EmailVerified != nil || len(got.Scopes) != 0 || got.Customers != nil {
		t.Fatalf("expected optional fields absent after round-trip: %+v", got)
	}
}

func TestScopeString_RoundTrip(t *testing.T) {
	cl := baseClaims()
	cl.Scopes = []string{"read", "write"}

	codec := &Codec{Secret: testSecret, Audience: "test-client"}
	raw, err := codec.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if s := decodePayload(t, raw)["scope"]; s != "read write" {
		t.Fatalf("expected scope claim \"read write\", got %v", s)
	}
	got, err := codec.Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.ScopeString() != "read write" {
		t.Fatalf("scope string did not round-trip: %q", got.ScopeString())
	}
}

func TestParse_SingularCustomerClaimWins(t *testing.T) {
	codec := &Codec{Secret: testSecret, Audience: "test-client"}

	now := time.Now()
	mint := func(m jwt.MapClaims) string {
		m["aud"] = "test-client"
		m["exp"] = now.Add(time.Hour).Unix()
		m["iat"] = now.Unix()
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, m).SignedString(testSecret)
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
		return raw
	}

	got, err := codec.Parse(mint(jwt.MapClaims{"customer": "orgA"}), "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got.Customers) != 1 || got.Customers[0] != "orgA" {
		t.Fatalf("expected customers [orgA], got %v", got.Customers)
	}

	// Singular claim wins even when both are present.
	got, err = codec.Parse(mint(jwt.MapClaims{"customer": "orgA", "customers": []string{"orgB", "orgC"}}), "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got.Customers) != 1 || got.Customers[0] != "orgA" {
		t.Fatalf("expected singular claim to win, got %v", got.Customers)
	}

	got, err = codec.Parse(mint(jwt.MapClaims{"customers": []string{"orgB", "orgC"}}), "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got.Customers) != 2 || got.Customers[0] != "orgB" || got.Customers[1] != "orgC" {
		t.Fatalf("expected customers list unchanged, got %v", got.Customers)
	}
}

func TestParse_ExpiredTokenIsDistinguishable(t *testing.T) {
	cl := baseClaims()
	cl.ExpiresAt = time.Now().Add(-time.Hour)
	cl.NotBefore = time.Now().Add(-2 * time.Hour)
	cl.IssuedAt = cl.NotBefore

	codec := &Codec{Secret: testSecret, Audience: "test-client"}
	raw, err := codec.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	_, err = codec.Parse(raw, "")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, ErrInvalidAudience) || errors.Is(err, ErrTokenDecode) {
		t.Fatalf("expired error must not match other kinds: %v", err)
	}
}

func TestParse_AudienceMismatchIsDistinguishable(t *testing.T) {
	codec := &Codec{Secret: testSecret, Audience: "test-client"}
	raw, err := codec.Sign(baseClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	other := &Codec{Secret: testSecret, Audience: "other-client"}
	_, err = other.Parse(raw, "")
	if !errors.Is(err, ErrInvalidAudience) {
		t.Fatalf("expected ErrInvalidAudience, got %v", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Fatalf("audience error must not match expired kind: %v", err)
	}
}

func TestParse_AudienceFallsBackToRequestURL(t *testing.T) {
	cl := baseClaims()
	cl.Audience = "http://api.example.test/"

	codec := &Codec{Secret: testSecret} // no configured client id
	raw, err := codec.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := codec.Parse(raw, "http://api.example.test/"); err != nil {
		t.Fatalf("expected request-URL audience to verify, got %v", err)
	}
	if _, err := codec.Parse(raw, "http://evil.example.test/"); !errors.Is(err, ErrInvalidAudience) {
		t.Fatalf("expected ErrInvalidAudience for wrong request URL, got %v", err)
	}
}

func TestParse_GarbageAndWrongKeyAreDecodeErrors(t *testing.T) {
	codec := &Codec{Secret: testSecret, Audience: "test-client"}

	if _, err := codec.Parse("not-a-token", ""); !errors.Is(err, ErrTokenDecode) {
		t.Fatalf("expected ErrTokenDecode for garbage, got %v", err)
	}

	other := &Codec{Secret: []byte("a-different-secret"), Audience: "test-client"}
	raw, err := other.Sign(baseClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := codec.Parse(raw, ""); !errors.Is(err, ErrTokenDecode) {
		t.Fatalf("expected ErrTokenDecode for bad signature, got %v", err)
	}
}

func TestSign_CustomClaimOnlyWhenConfigured(t *testing.T) {
	cl := baseClaims()
	cl.Extra = map[string]any{"department": "engineering"}

	unconfigured := &Codec{Secret: testSecret, Audience: "test-client"}
	raw, err := unconfigured.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, ok := decodePayload(t, raw)["department"]; ok {
		t.Fatalf("custom claim serialized without a configured name")
	}

	configured := &Codec{Secret: testSecret, Audience: "test-client", CustomClaim: "department"}
	raw, err = configured.Sign(cl)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if v := decodePayload(t, raw)["department"]; v != "engineering" {
		t.Fatalf("expected department claim, got %v", v)
	}
}

func TestSign_NoSecret(t *testing.T) {
	codec := &Codec{}
	if _, err := codec.Sign(baseClaims()); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

// decodePayload returns the raw claim map of a signed token, verifying with
// the test secret.
func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	m := jwt.MapClaims{}
	if _, err := jwt.NewParser().ParseWithClaims(raw, m, func(*jwt.Token) (any, error) {
		return testSecret, nil
	}); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return m
}
