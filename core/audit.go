package core

import (
	"context"
	"time"
)

// AuditEvent is an append-only record of an authentication outcome.
type AuditEvent struct {
	OccurredAt time.Time
	// Event is the event name, e.g. "openid-login".
	Event   string
	Message string
	// User is the effective login identifier.
	User      string
	Customers []string
	Scopes    []string
	// ResourceID is the OIDC subject; ResourceType is "user" for logins.
	ResourceID   string
	ResourceType string
	Request      RequestInfo
}

// RequestInfo captures the inbound request context an audit trail wants.
// BaseURL additionally serves as the issuer/audience fallback for issued
// tokens when no client id is configured.
type RequestInfo struct {
	BaseURL   string
	RemoteIP  string
	UserAgent string
}

// AuditSink records audit events to an external trail. Implementations must
// be best-effort and non-blocking; a sink error never changes a login
// outcome.
type AuditSink interface {
	Record(ctx context.Context, e AuditEvent) error
}
