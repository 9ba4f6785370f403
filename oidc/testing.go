package oidckit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TestProvider is an in-process OIDC provider serving discovery, token and
// userinfo endpoints for tests. Behavior is mutable between requests so a
// single provider can exercise both happy paths and provider-side failures.
type TestProvider struct {
	t   *testing.T
	srv *httptest.Server

	mu sync.Mutex
	// IssuerOverride, when set, is returned as the discovery document's
	// issuer claim instead of the real server URL (to provoke the
	// issuer-mismatch guard).
	issuerOverride string
	expectCode     string
	tokenType      string
	tokenStatus    int
	userinfoStatus int
	idTokenClaims  map[string]any
	userinfo       map[string]any
	omitIDToken    bool
	rawIDToken     string
	lastAuthz      string
}

// StartTestProvider starts a fake provider that accepts any authorization
// code and returns the given userinfo document. It is shut down with the
// test.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	p := &TestProvider{
		t:             t,
		idTokenClaims: map[string]any{},
		userinfo:      map[string]any{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(discoveryPath, p.handleDiscovery)
	mux.HandleFunc("/oauth/token", p.handleToken)
	mux.HandleFunc("/oauth/userinfo", p.handleUserinfo)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// Issuer returns the provider's issuer URL (the test server base URL).
func (p *TestProvider) Issuer() string { return p.srv.URL }

// SetIssuerClaim overrides the issuer reported by the discovery document.
func (p *TestProvider) SetIssuerClaim(iss string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuerOverride = iss
}

// SetUserinfo replaces the userinfo response document.
func (p *TestProvider) SetUserinfo(doc map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userinfo = doc
}

// SetIDTokenClaims replaces the claims embedded in issued id_tokens.
func (p *TestProvider) SetIDTokenClaims(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenClaims = claims
	p.rawIDToken = ""
}

// SetRawIDToken forces the token endpoint to return the given id_token
// verbatim (e.g. garbage, to exercise decode failures).
func (p *TestProvider) SetRawIDToken(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawIDToken = raw
}

// SetTokenType sets the token_type returned by the token endpoint; empty
// omits the field so clients must default to Bearer.
func (p *TestProvider) SetTokenType(tt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenType = tt
}

// SetExpectCode makes the token endpoint reject any other code with a 400.
func (p *TestProvider) SetExpectCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectCode = code
}

// FailToken makes the token endpoint answer with the given status.
func (p *TestProvider) FailToken(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
}

// OmitIDToken makes the token endpoint leave out the id_token field.
func (p *TestProvider) OmitIDToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// LastAuthorization reports the Authorization header of the most recent
// userinfo request.
func (p *TestProvider) LastAuthorization() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthz
}

// FailUserinfo makes the userinfo endpoint answer with the given status.
func (p *TestProvider) FailUserinfo(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userinfoStatus = status
}

func (p *TestProvider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	iss := p.issuerOverride
	p.mu.Unlock()
	if iss == "" {
		iss = p.srv.URL
	}
	writeDoc(w, map[string]any{
		"issuer":            iss,
		"token_endpoint":    p.srv.URL + "/oauth/token",
		"userinfo_endpoint": p.srv.URL + "/oauth/userinfo",
	})
}

func (p *TestProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokenStatus != 0 {
		http.Error(w, "token endpoint unavailable", p.tokenStatus)
		return
	}
	if err := r.ParseForm(); err != nil || r.PostFormValue("grant_type") != "authorization_code" {
		http.Error(w, "unsupported grant_type", http.StatusBadRequest)
		return
	}
	if p.expectCode != "" && r.PostFormValue("code") != p.expectCode {
		http.Error(w, "invalid code", http.StatusBadRequest)
		return
	}
	body := map[string]any{"access_token": "test-access-token"}
	if p.tokenType != "" {
		body["token_type"] = p.tokenType
	}
	if !p.omitIDToken {
		body["id_token"] = p.signIDToken()
	}
	writeDoc(w, body)
}

func (p *TestProvider) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userinfoStatus != 0 {
		http.Error(w, "userinfo unavailable", p.userinfoStatus)
		return
	}
	p.lastAuthz = r.Header.Get("Authorization")
	if p.lastAuthz == "" {
		http.Error(w, "missing authorization", http.StatusUnauthorized)
		return
	}
	writeDoc(w, p.userinfo)
}

// signIDToken mints an HS256 id_token over a throwaway key. Consumers decode
// it without verifying, so any signature works.
func (p *TestProvider) signIDToken() string {
	if p.rawIDToken != "" {
		return p.rawIDToken
	}
	claims := jwt.MapClaims{"iss": p.srv.URL, "aud": "test-client"}
	for k, v := range p.idTokenClaims {
		claims[k] = v
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-provider-key"))
	if err != nil {
		p.t.Fatalf("sign test id_token: %v", err)
	}
	return raw
}

func writeDoc(w http.ResponseWriter, doc map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}
