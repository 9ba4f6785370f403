package authhttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/open-rails/loginkit/core"
)

// openidRequest is the body posted by the login frontend after the provider
// redirected back with an authorization code. Field names follow the wire
// convention of the classic web UI.
type openidRequest struct {
	Code        string `json:"code"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
}

type openidResponse struct {
	Token string `json:"token"`
}

// OpenIDHandler serves the authorization-code login endpoint. Mount it at
// POST /auth/openid (and provider aliases if desired); route registration
// and CORS stay with the host.
func OpenIDHandler(svc *core.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendErr(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		var body openidRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid_request_body")
			return
		}
		if body.Code == "" {
			badRequest(w, "missing_code")
			return
		}

		res, err := svc.Login(r.Context(), core.LoginRequest{
			Code:        body.Code,
			RedirectURI: body.RedirectURI,
			ClientID:    body.ClientID,
			Request:     requestInfo(r),
		})
		if err != nil {
			sendLoginErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, openidResponse{Token: res.Token})
	})
}

// requestInfo captures the pieces of the inbound request that flow into the
// audit trail and into token issuance (issuer/audience fallback).
func requestInfo(r *http.Request) core.RequestInfo {
	return core.RequestInfo{
		BaseURL:   requestBaseURL(r),
		RemoteIP:  remoteIP(r),
		UserAgent: r.UserAgent(),
	}
}

// requestBaseURL reconstructs scheme://host/ with a trailing slash, the same
// shape web frameworks call the URL root. Issued and parsed tokens must
// agree on this value when it serves as the audience.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + "/"
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
