package authhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/open-rails/loginkit/core"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string)   { sendErr(w, http.StatusBadRequest, code) }
func unauthorized(w http.ResponseWriter, code string) { sendErr(w, http.StatusUnauthorized, code) }
func forbidden(w http.ResponseWriter, code string)    { sendErr(w, http.StatusForbidden, code) }
func serverErr(w http.ResponseWriter, code string)    { sendErr(w, http.StatusInternalServerError, code) }

// sendLoginErr maps a classified login failure onto its response class:
// configuration/discovery problems are service-unavailable, provider-side
// failures are bad-gateway, policy rejections are forbidden.
func sendLoginErr(w http.ResponseWriter, err error) {
	var ae *core.AuthError
	if !errors.As(err, &ae) {
		serverErr(w, "login_failed")
		return
	}
	switch ae.Kind {
	case core.KindConfiguration:
		sendErr(w, http.StatusServiceUnavailable, "oidc_not_configured")
	case core.KindDiscovery:
		sendErr(w, http.StatusServiceUnavailable, "oidc_discovery_failed")
	case core.KindTokenExchange:
		sendErr(w, http.StatusBadGateway, "token_exchange_failed")
	case core.KindMalformedIdentity:
		sendErr(w, http.StatusBadGateway, "malformed_id_token")
	case core.KindUserinfo:
		sendErr(w, http.StatusBadGateway, "userinfo_failed")
	case core.KindAuthorization:
		forbidden(w, "not_authorized")
	default:
		serverErr(w, "login_failed")
	}
}
