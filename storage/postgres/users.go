package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/loginkit/core"
)

// Users is the Postgres-backed core.UserStore. The primary key on auth.users
// is the OIDC subject, so concurrent first logins for one subject collapse
// onto a single row via the ON CONFLICT upsert.
type Users struct {
	pool *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

const userColumns = `id, name, email, email_verified, status, roles, text, last_login, created_at`

func (s *Users) FindByID(ctx context.Context, id string) (*core.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM auth.users WHERE id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts the user and, on a subject collision, returns the row that
// won the race instead of failing. The no-op DO UPDATE is what makes
// RETURNING yield the existing row.
func (s *Users) Create(ctx context.Context, u *core.User) (*core.User, error) {
	status := u.Status
	if status == "" {
		status = core.StatusActive
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO auth.users (id, name, email, email_verified, status, roles, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.EmailVerified, status, roles, u.Text)
	return scanUser(row)
}

func (s *Users) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE auth.users SET last_login=$2, updated_at=now() WHERE id=$1`, id, at)
	return err
}

func (s *Users) ListStaleBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM auth.users
		WHERE COALESCE(last_login, created_at) < $1
		ORDER BY id
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Users) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM auth.users WHERE id=$1`, id)
	return err
}

// SetStatus updates a user's status (admin tooling).
func (s *Users) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE auth.users SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	return err
}

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Status, &u.Roles, &u.Text, &u.LastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
