package authhttp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/open-rails/loginkit/core"
	jwtkit "github.com/open-rails/loginkit/jwt"
)

type claimsCtxKey struct{}

// ClaimsFromContext returns the session claims attached by Required, or nil.
func ClaimsFromContext(ctx context.Context) *jwtkit.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*jwtkit.Claims)
	return c
}

// Required rejects requests without a valid session token. The error code
// distinguishes expiry and audience mismatch from plain decode failures so
// frontends can tell users "session expired" instead of "invalid token".
func Required(svc *core.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing_token")
				return
			}
			claims, err := svc.ParseToken(raw, requestBaseURL(r))
			if err != nil {
				unauthorized(w, tokenErrCode(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsCtxKey{}, claims)))
		})
	}
}

// Optional attaches claims when a valid token is present and passes the
// request through otherwise.
func Optional(svc *core.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := bearerToken(r); raw != "" {
				if claims, err := svc.ParseToken(raw, requestBaseURL(r)); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsCtxKey{}, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope guards a handler behind a single scope on the session token.
// Use inside Required.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				unauthorized(w, "missing_token")
				return
			}
			if !claims.HasScope(scope) {
				forbidden(w, "missing_scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func tokenErrCode(err error) string {
	switch {
	case errors.Is(err, jwtkit.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, jwtkit.ErrInvalidAudience):
		return "invalid_audience"
	default:
		return "invalid_token"
	}
}
