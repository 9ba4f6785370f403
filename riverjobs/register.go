package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/open-rails/loginkit/core"
)

// RegisterPurgeStaleUsersWorker registers the purge worker into a River
// workers registry.
func RegisterPurgeStaleUsersWorker(ws *river.Workers, users core.UserStore, before BeforeUserPurgeFunc) {
	river.AddWorker(ws, NewPurgeStaleUsersWorker(users, before))
}

// AddPurgeStaleUsersPeriodicJob adds a periodic job that enqueues the purge
// on a cron schedule.
//
// Example cron: "0 4 * * *" (daily at 4 AM).
func AddPurgeStaleUsersPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeStaleUsersArgs, runOnStart bool) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
