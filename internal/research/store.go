package research

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bandstand/internal/library"
	"bandstand/internal/services"
)

// Store persists research jobs in the shared library database. Jobs form a
// durable FIFO queue: enqueue order is completion order, and a job caught
// mid-flight by a shutdown is reset to queued on the next start.
type Store struct {
	db *sql.DB
}

// NewStore wraps the library store's database connection.
func NewStore(store *library.Store) *Store {
	return &Store{db: store.DB()}
}

const jobColumns = `id, entity_type, entity_id, entity_name, status, phase, phase_current, phase_total,
    failed_phases, error_message, created_at, updated_at, started_at, finished_at`

func scanJob(scanner interface{ Scan(...any) error }) (*Job, error) {
	var (
		job                  Job
		phase                sql.NullString
		failedPhases         sql.NullString
		errorMessage         sql.NullString
		createdAt, updatedAt string
		startedAt            sql.NullString
		finishedAt           sql.NullString
		status               string
	)
	if err := scanner.Scan(&job.ID, &job.EntityType, &job.EntityID, &job.EntityName, &status, &phase,
		&job.PhaseCurrent, &job.PhaseTotal, &failedPhases, &errorMessage,
		&createdAt, &updatedAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Phase = phase.String
	if failedPhases.Valid && failedPhases.String != "" {
		job.FailedPhases = strings.Split(failedPhases.String, ",")
	}
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	if startedAt.Valid {
		ts := parseTime(startedAt.String)
		job.StartedAt = &ts
	}
	if finishedAt.Valid {
		ts := parseTime(finishedAt.String)
		job.FinishedAt = &ts
	}
	return &job, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Enqueue adds a job for an entity. An entity already queued or in flight is
// not enqueued twice; the existing job is returned instead.
func (s *Store) Enqueue(ctx context.Context, entityType string, entityID int64) (*Job, error) {
	if entityType != library.EntitySong {
		return nil, services.Wrap(services.ErrValidation, "research", "enqueue",
			fmt.Sprintf("unsupported entity type %q", entityType), nil)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM research_jobs
         WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)
         ORDER BY id LIMIT 1`,
		entityType, entityID, StatusQueued, StatusResearching)
	existing, err := scanJob(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check existing job: %w", err)
	}

	// The song title is captured at enqueue so status surfaces can name
	// the entity without another join.
	var entityName string
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(title_curated, title_crawled, '') FROM songs WHERE id = ?`,
		entityID).Scan(&entityName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "research", "enqueue",
				fmt.Sprintf("song %d", entityID), nil)
		}
		return nil, fmt.Errorf("resolve entity name: %w", err)
	}

	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO research_jobs (entity_type, entity_id, entity_name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entityType, entityID, entityName, StatusQueued, now, now)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM research_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "research", "get_job", fmt.Sprintf("job %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// NextQueued returns the oldest queued job, or nil when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM research_jobs WHERE status = ? ORDER BY id LIMIT 1`, StatusQueued)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally limited.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM research_jobs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkResearching claims a job for the worker.
func (s *Store) MarkResearching(ctx context.Context, id int64) error {
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs SET status = ?, started_at = ?, updated_at = ? WHERE id = ?`,
		StatusResearching, now, now, id)
	if err != nil {
		return fmt.Errorf("mark researching: %w", err)
	}
	return nil
}

// UpdateProgress persists the phase pointer of an in-flight job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, phase string, current, total int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs SET phase = ?, phase_current = ?, phase_total = ?, updated_at = ? WHERE id = ?`,
		phase, current, total, nowString(), id)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkCompleted finishes a job, recording the phases that failed along the
// way. A job with failed phases still completes.
func (s *Store) MarkCompleted(ctx context.Context, id int64, failedPhases []string) error {
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs SET status = ?, failed_phases = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, strings.Join(failedPhases, ","), now, now, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed aborts a job on an infrastructure error.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, message, now, now, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ResetInFlight returns researching jobs to the queue. Called on startup so
// a job interrupted by shutdown runs again from its first phase.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs
         SET status = ?, phase = NULL, phase_current = 0, phase_total = 0, started_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusQueued, nowString(), StatusResearching)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight jobs: %w", err)
	}
	return res.RowsAffected()
}

// QueueSize counts queued jobs.
func (s *Store) QueueSize(ctx context.Context) (int, error) {
	var size int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM research_jobs WHERE status = ?`, StatusQueued).Scan(&size); err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return size, nil
}
