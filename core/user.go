package core

import (
	"context"
	"strings"
	"time"
)

// StatusActive is the only user status allowed to log in.
const StatusActive = "active"

// User is the local account behind a federated subject. One user exists per
// distinct subject; accounts created through OIDC are federated-only and
// never carry a local password.
type User struct {
	// ID is the OIDC subject.
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Status        string
	Roles         []string
	Text          string
	LastLogin     *time.Time
	CreatedAt     time.Time
}

// Domain is the email domain used by the domain allow-list and customer
// lookup; empty when the user has no parseable email.
func (u *User) Domain() string {
	if i := strings.LastIndex(u.Email, "@"); i >= 0 && i < len(u.Email)-1 {
		return u.Email[i+1:]
	}
	return ""
}

// UserStore is the persistence contract for local users. The store owns
// atomicity of upsert-by-subject: Create for an already existing subject
// must return the existing record, never a duplicate, including under
// concurrent first logins.
type UserStore interface {
	// FindByID returns (nil, nil) when the subject is unknown.
	FindByID(ctx context.Context, id string) (*User, error)
	// Create inserts the user with status "active" and returns the stored
	// record (the pre-existing one on a subject collision).
	Create(ctx context.Context, u *User) (*User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// ListStaleBefore returns up to limit ids of accounts whose last login
	// (or creation, if they never logged in) predates cutoff. Used by the
	// retention purge job.
	ListStaleBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
}
