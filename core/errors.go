package core

import (
	"errors"
	"fmt"

	oidckit "github.com/open-rails/loginkit/oidc"
)

// ErrorKind classifies a login failure so transports can map it to a
// response class without inspecting messages.
type ErrorKind int

const (
	// KindConfiguration: no issuer resolvable (service unavailable class).
	KindConfiguration ErrorKind = iota + 1
	// KindDiscovery: discovery fetch failed or issuer claim mismatched.
	KindDiscovery
	// KindTokenExchange: provider rejected or was unreachable (bad gateway class).
	KindTokenExchange
	// KindMalformedIdentity: the id_token could not be decoded.
	KindMalformedIdentity
	// KindUserinfo: the userinfo call failed.
	KindUserinfo
	// KindAuthorization: inactive user or role/domain policy rejection (forbidden).
	KindAuthorization
)

// AuthError is a classified login-pipeline failure. Login carries the
// offending login identifier when it is known at the failing stage.
type AuthError struct {
	Kind    ErrorKind
	Login   string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// notAuthorized builds the forbidden-class failure used by the status and
// policy checks.
func notAuthorized(login, message string) *AuthError {
	return &AuthError{Kind: KindAuthorization, Login: login, Message: message}
}

// classifyProviderError wraps an oidc-package failure with its pipeline kind.
func classifyProviderError(err error) error {
	var (
		de *oidckit.DiscoveryError
		xe *oidckit.ExchangeError
		ie *oidckit.IdentityError
		ue *oidckit.UserinfoError
	)
	switch {
	case errors.Is(err, oidckit.ErrNoIssuer):
		return &AuthError{Kind: KindConfiguration, Message: "openid connect is not configured", Err: err}
	case errors.As(err, &de):
		return &AuthError{Kind: KindDiscovery, Message: "provider discovery failed", Err: err}
	case errors.As(err, &xe):
		return &AuthError{Kind: KindTokenExchange, Message: "authorization code exchange failed", Err: err}
	case errors.As(err, &ie):
		return &AuthError{Kind: KindMalformedIdentity, Message: "provider identity token is malformed", Err: err}
	case errors.As(err, &ue):
		return &AuthError{Kind: KindUserinfo, Message: "provider userinfo call failed", Err: err}
	}
	return err
}
