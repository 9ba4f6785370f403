package oidckit

import (
	"errors"
	"fmt"
)

// ErrNoIssuer means neither an explicit issuer URL nor a provider default
// could produce an issuer. This is a server configuration problem.
var ErrNoIssuer = errors.New("must define an issuer URL in server configuration to use OpenID Connect")

// DiscoveryError reports a failed or untrustworthy discovery-document fetch,
// including the issuer-claim mismatch guard.
type DiscoveryError struct {
	Issuer string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("oidc discovery for %s failed: %v", e.Issuer, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExchangeError reports a rejected or unreachable token-endpoint exchange.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// IdentityError reports a token response whose id_token is missing or
// undecodable.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("malformed id_token: %v", e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// UserinfoError reports a failed userinfo call or a response without the
// mandatory subject.
type UserinfoError struct {
	Err error
}

func (e *UserinfoError) Error() string {
	return fmt.Sprintf("userinfo request failed: %v", e.Err)
}

func (e *UserinfoError) Unwrap() error { return e.Err }
