package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/quantitva/market-intel/errors"
)

// Store persists schedules.
type Store struct {
	db *sql.DB
}

// NewStore creates a schedule store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchedule inserts a new schedule.
func (s *Store) CreateSchedule(ctx context.Context, sched *Schedule) error {
	query := `
		INSERT INTO schedules (id, user_id, frequency, active, status, paused_at,
			last_run, next_run, execution_count, last_execution_id,
			category, sub_niche, geography, email, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		sched.ID,
		sched.UserID,
		sched.Frequency,
		sched.Active,
		sched.Status,
		formatNullableTime(sched.PausedAt),
		formatNullableTime(sched.LastRun),
		sched.NextRun.UTC().Format(time.RFC3339),
		sched.ExecutionCount,
		nullableString(sched.LastExecutionID),
		sched.Category,
		sched.SubNiche,
		nullableString(sched.Geography),
		nullableString(sched.Email),
		nullableString(sched.Notes),
		sched.CreatedAt.UTC().Format(time.RFC3339),
		sched.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert schedule")
	}
	return nil
}

// GetSchedule retrieves a schedule by id, including soft-deleted ones.
// Callers that hide deleted schedules check Status themselves.
func (s *Store) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	query := selectScheduleColumns + ` WHERE id = ?`
	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "schedule %s", id)
		}
		return nil, errors.Wrap(err, "failed to get schedule")
	}
	return sched, nil
}

// ListByUser returns a user's non-deleted schedules, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Schedule, error) {
	query := selectScheduleColumns + `
		WHERE user_id = ? AND status != ?
		ORDER BY created_at DESC
	`
	return s.querySchedules(ctx, query, userID, StatusDeleted)
}

// ListDue returns active schedules whose next_run is at or before now,
// soonest first.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*Schedule, error) {
	query := selectScheduleColumns + `
		WHERE status = ? AND next_run <= ?
		ORDER BY next_run ASC
	`
	return s.querySchedules(ctx, query, StatusActive, now.UTC().Format(time.RFC3339))
}

// Pause marks a schedule paused. Pausing an already-paused schedule is a
// no-op that still succeeds.
func (s *Store) Pause(ctx context.Context, id string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	query := `
		UPDATE schedules
		SET status = ?, active = 0, paused_at = COALESCE(paused_at, ?), updated_at = ?
		WHERE id = ? AND status != ?
	`
	return s.execOnSchedule(ctx, id, query, StatusPaused, ts, ts, id, StatusDeleted)
}

// Resume reactivates a paused schedule. Resuming an active schedule is a
// no-op that still succeeds.
func (s *Store) Resume(ctx context.Context, id string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	query := `
		UPDATE schedules
		SET status = ?, active = 1, paused_at = NULL, updated_at = ?
		WHERE id = ? AND status != ?
	`
	return s.execOnSchedule(ctx, id, query, StatusActive, ts, id, StatusDeleted)
}

// Delete soft-deletes a schedule. Execution history is retained.
func (s *Store) Delete(ctx context.Context, id string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	query := `
		UPDATE schedules
		SET status = ?, active = 0, updated_at = ?
		WHERE id = ? AND status != ?
	`
	return s.execOnSchedule(ctx, id, query, StatusDeleted, ts, id, StatusDeleted)
}

// UpdateAfterRun records that a schedule just ran: bumps the execution
// counter, stamps last_run and last_execution_id, and advances next_run by
// the schedule's own frequency.
func (s *Store) UpdateAfterRun(ctx context.Context, id, executionID string, ranAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var frequency string
	err = tx.QueryRowContext(ctx,
		`SELECT frequency FROM schedules WHERE id = ? AND status != ?`, id, StatusDeleted).
		Scan(&frequency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(errors.ErrNotFound, "schedule %s", id)
		}
		return errors.Wrap(err, "failed to load schedule frequency")
	}

	next, err := NextRun(ranAt, frequency)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE schedules
		SET last_run = ?, next_run = ?, execution_count = execution_count + 1,
			last_execution_id = ?, updated_at = ?
		WHERE id = ?
	`,
		ranAt.UTC().Format(time.RFC3339),
		next.UTC().Format(time.RFC3339),
		nullableString(executionID),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update schedule after run")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schedule update")
	}
	return nil
}

func (s *Store) execOnSchedule(ctx context.Context, id, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update schedule")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "schedule %s", id)
	}
	return nil
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]*Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list schedules")
	}
	defer rows.Close()

	var scheds []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan schedule")
		}
		scheds = append(scheds, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate schedules")
	}
	return scheds, nil
}

const selectScheduleColumns = `
	SELECT id, user_id, frequency, active, status, paused_at,
		last_run, next_run, execution_count, last_execution_id,
		category, sub_niche, geography, email, notes, created_at, updated_at
	FROM schedules`

func scanSchedule(row rowScanner) (*Schedule, error) {
	var sched Schedule
	var pausedAt, lastRun, lastExecutionID, geography, email, notes sql.NullString
	var nextRun, createdAt, updatedAt string
	err := row.Scan(
		&sched.ID,
		&sched.UserID,
		&sched.Frequency,
		&sched.Active,
		&sched.Status,
		&pausedAt,
		&lastRun,
		&nextRun,
		&sched.ExecutionCount,
		&lastExecutionID,
		&sched.Category,
		&sched.SubNiche,
		&geography,
		&email,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sched.LastExecutionID = lastExecutionID.String
	sched.Geography = geography.String
	sched.Email = email.String
	sched.Notes = notes.String

	if sched.NextRun, err = time.Parse(time.RFC3339, nextRun); err != nil {
		return nil, errors.Wrapf(err, "invalid next_run for schedule %s", sched.ID)
	}
	if sched.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "invalid created_at for schedule %s", sched.ID)
	}
	if sched.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "invalid updated_at for schedule %s", sched.ID)
	}
	if sched.PausedAt, err = parseNullableTime(pausedAt); err != nil {
		return nil, errors.Wrapf(err, "invalid paused_at for schedule %s", sched.ID)
	}
	if sched.LastRun, err = parseNullableTime(lastRun); err != nil {
		return nil, errors.Wrapf(err, "invalid last_run for schedule %s", sched.ID)
	}
	return &sched, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
