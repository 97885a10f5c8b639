package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrScheduledJobNotFound is returned when no row exists for a job name.
var ErrScheduledJobNotFound = errors.New("scheduled job not found")

// ScheduledJob is one row of scheduled_jobs.
type ScheduledJob struct {
	Name      string
	Spec      string
	Active    bool
	UpdatedAt time.Time
}

// ScheduledJobRepository reads and edits schedule definitions.
type ScheduledJobRepository struct {
	db *DB
}

// NewScheduledJobRepository creates a new PostgreSQL scheduled job repository
func NewScheduledJobRepository(db *DB) *ScheduledJobRepository {
	return &ScheduledJobRepository{db: db}
}

// Get returns the named job, or ErrScheduledJobNotFound.
func (r *ScheduledJobRepository) Get(ctx context.Context, name string) (*ScheduledJob, error) {
	var job ScheduledJob
	err := r.db.QueryRowContext(ctx,
		`SELECT name, spec, active, updated_at FROM scheduled_jobs WHERE name = $1`, name,
	).Scan(&job.Name, &job.Spec, &job.Active, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrScheduledJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled job: %w", err)
	}
	return &job, nil
}

// EnsureDefault inserts the job with spec when it does not exist yet and
// returns the stored row. An existing row is left as it is.
func (r *ScheduledJobRepository) EnsureDefault(ctx context.Context, name, spec string) (*ScheduledJob, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (name, spec, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (name) DO NOTHING
	`, name, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to seed scheduled job: %w", err)
	}
	return r.Get(ctx, name)
}

// SetSpec changes the schedule expression.
func (r *ScheduledJobRepository) SetSpec(ctx context.Context, name, spec string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET spec = $2, updated_at = NOW() WHERE name = $1`, name, spec)
	if err != nil {
		return fmt.Errorf("failed to update scheduled job: %w", err)
	}
	return expectOneRow(result, ErrScheduledJobNotFound)
}

// SetActive pauses or resumes the job.
func (r *ScheduledJobRepository) SetActive(ctx context.Context, name string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET active = $2, updated_at = NOW() WHERE name = $1`, name, active)
	if err != nil {
		return fmt.Errorf("failed to update scheduled job: %w", err)
	}
	return expectOneRow(result, ErrScheduledJobNotFound)
}
