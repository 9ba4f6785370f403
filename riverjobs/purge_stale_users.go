package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"

	"github.com/open-rails/loginkit/core"
)

type PurgeStaleUsersArgs struct {
	RetentionDays int `json:"retention_days,omitempty"`
	BatchSize     int `json:"batch_size,omitempty"`
}

func (PurgeStaleUsersArgs) Kind() string { return "loginkit_purge_stale_users" }

func (args PurgeStaleUsersArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
		},
	}
}

// BeforeUserPurgeFunc lets the host delete or anonymize app-domain data
// before an account row disappears.
type BeforeUserPurgeFunc func(ctx context.Context, userID string) error

// PurgeStaleUsersWorker deletes federated accounts that have not logged in
// within the retention window. Subjects are re-provisioned automatically on
// their next successful OIDC login, so purging is safe for dormant users.
type PurgeStaleUsersWorker struct {
	river.WorkerDefaults[PurgeStaleUsersArgs]
	users  core.UserStore
	before BeforeUserPurgeFunc
}

func NewPurgeStaleUsersWorker(users core.UserStore, before BeforeUserPurgeFunc) *PurgeStaleUsersWorker {
	return &PurgeStaleUsersWorker{users: users, before: before}
}

func (w *PurgeStaleUsersWorker) Timeout(*river.Job[PurgeStaleUsersArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *PurgeStaleUsersWorker) Work(ctx context.Context, job *river.Job[PurgeStaleUsersArgs]) error {
	if w == nil || w.users == nil {
		return errors.New("loginkit purge: user store not configured")
	}
	retention := job.Args.RetentionDays
	if retention <= 0 {
		retention = 365
	}
	batch := job.Args.BatchSize
	if batch <= 0 {
		batch = 500
	}

	cutoff := time.Now().AddDate(0, 0, -retention)
	ids, err := w.users.ListStaleBefore(ctx, cutoff, batch)
	if err != nil {
		return err
	}
	for _, userID := range ids {
		if w.before != nil {
			if err := w.before(ctx, userID); err != nil {
				return err
			}
		}
		if err := w.users.Delete(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
