package oidckit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

// Exchanger drives the provider-facing half of a login: authorization-code
// exchange, id_token decode, and the userinfo fetch that anchors trust.
//
// The id_token signature is intentionally NOT verified here. The access
// token returned alongside it is immediately exercised against the
// provider's userinfo endpoint over TLS, and the subject is taken from that
// response only; changing this trust ordering is a design decision, not a
// bug fix.
type Exchanger struct {
	client *http.Client
	log    hclog.Logger

	// ClaimNames are the deployment-configured claim keys (role, group,
	// custom) to merge from userinfo/id_token into Identity.Custom.
	ClaimNames []string
}

func NewExchanger(client *http.Client, log hclog.Logger, claimNames ...string) *Exchanger {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Exchanger{client: client, log: log.Named("exchange"), ClaimNames: claimNames}
}

// Exchange runs code -> token -> userinfo -> merged identity against the
// given provider endpoints. Each stage fails with its own error type and
// nothing is retried.
func (e *Exchanger) Exchange(ctx context.Context, pc *ProviderConfig, code, redirectURI, clientID, clientSecret string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  pc.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, &IdentityError{Err: fmt.Errorf("token response carries no id_token")}
	}
	idToken, err := jwt.ParseInsecure([]byte(rawIDToken))
	if err != nil {
		return nil, &IdentityError{Err: err}
	}

	userinfo, err := e.fetchUserinfo(ctx, pc.UserinfoEndpoint, tok.Type(), tok.AccessToken)
	if err != nil {
		return nil, err
	}

	id := mergeIdentity(userinfo, idToken.PrivateClaims(), e.ClaimNames)
	if id.Subject == "" {
		return nil, &UserinfoError{Err: fmt.Errorf("userinfo response carries no sub claim")}
	}
	e.log.Debug("exchanged authorization code", "subject", id.Subject, "login", id.Login())
	return id, nil
}

// fetchUserinfo authorizes with the freshly exchanged access token using the
// provider-reported token type (Bearer when absent).
func (e *Exchanger) fetchUserinfo(ctx context.Context, endpoint, tokenType, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UserinfoError{Err: err}
	}
	req.Header.Set("Authorization", tokenType+" "+accessToken)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &UserinfoError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UserinfoError{Err: fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)}
	}
	var userinfo map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return nil, &UserinfoError{Err: fmt.Errorf("decode userinfo response: %w", err)}
	}
	return userinfo, nil
}
