package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Options configures the River client.
type Options struct {
	// Workers caps concurrent jobs on the default queue. Zero means 2.
	Workers int
	// FetchPollInterval is how often idle workers poll SQLite for new
	// jobs. Zero keeps River's default.
	FetchPollInterval time.Duration
	Logger            *slog.Logger
}

// Setup creates a River client with the event worker registered and runs
// River's internal migrations. The caller must call client.Start() to begin
// processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	driver := riversqlite.New(db)

	// River's tables (river_job, river_leader, ...) are migrated separately
	// from the goose-managed lease schema.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	if opts.Workers <= 0 {
		opts.Workers = 2
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewEventWorker(opts.Logger))

	client, err := river.NewClient(driver, &river.Config{
		FetchPollInterval: opts.FetchPollInterval,
		Logger:            opts.Logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.Workers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
