package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/open-rails/loginkit/core"
)

// Users is an in-memory core.UserStore for tests and single-process dev
// deployments. The mutex gives it the same upsert-by-subject atomicity a
// database uniqueness constraint provides.
type Users struct {
	mu    sync.Mutex
	users map[string]*core.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]*core.User)}
}

func (s *Users) FindByID(ctx context.Context, id string) (*core.User, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *Users) Create(ctx context.Context, u *core.User) (*core.User, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		return copyUser(existing), nil
	}
	stored := copyUser(u)
	if stored.Status == "" {
		stored.Status = core.StatusActive
	}
	if stored.Roles == nil {
		stored.Roles = []string{}
	}
	stored.CreatedAt = time.Now()
	s.users[u.ID] = stored
	return copyUser(stored), nil
}

func (s *Users) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		t := at
		u.LastLogin = &t
	}
	return nil
}

func (s *Users) ListStaleBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, u := range s.users {
		seen := u.CreatedAt
		if u.LastLogin != nil {
			seen = *u.LastLogin
		}
		if seen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Users) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// SetStatus flips a user's status; exposed for dev tooling and tests.
func (s *Users) SetStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Status = status
	}
}

// SetRoles replaces a user's stored roles; exposed for dev tooling and tests.
func (s *Users) SetRoles(id string, roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Roles = append([]string(nil), roles...)
	}
}

// Len reports the number of stored users.
func (s *Users) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func copyUser(u *core.User) *core.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}
