package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/quantitva/market-intel/errors"
)

// MetadataStore persists per-schedule execution rollups.
type MetadataStore struct {
	db *sql.DB
}

// NewMetadataStore creates a metadata store backed by db.
func NewMetadataStore(db *sql.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

// GetMetadata retrieves the rollup for a schedule. Returns (nil, nil) when
// the schedule has never been ingested; absence is an ordinary state here,
// not an error.
func (s *MetadataStore) GetMetadata(ctx context.Context, scheduleID string) (*Metadata, error) {
	query := `
		SELECT schedule_id, initialized, first_run_at, total_executions,
			last_execution_at, created_at, updated_at
		FROM schedule_metadata
		WHERE schedule_id = ?
	`
	var meta Metadata
	var firstRunAt, lastExecutionAt sql.NullString
	err := s.db.QueryRowContext(ctx, query, scheduleID).Scan(
		&meta.ScheduleID,
		&meta.Initialized,
		&firstRunAt,
		&meta.TotalExecutions,
		&lastExecutionAt,
		&meta.CreatedAt,
		&meta.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get schedule metadata")
	}
	if firstRunAt.Valid {
		meta.FirstRunAt = &firstRunAt.String
	}
	if lastExecutionAt.Valid {
		meta.LastExecutionAt = &lastExecutionAt.String
	}
	return &meta, nil
}

// IsInitialized reports whether the schedule has a recorded first run.
// A schedule with no metadata row is uninitialized.
func (s *MetadataStore) IsInitialized(ctx context.Context, scheduleID string) (bool, error) {
	meta, err := s.GetMetadata(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	return meta != nil && meta.Initialized, nil
}

// recordExecutionTx upserts the rollup for one ingested execution inside tx.
//
// The conditional SQL makes concurrent first-run reports safe: whichever
// transaction commits first claims first_run_at, and every later one only
// increments the counter. initialized never transitions back to false and
// first_run_at is write-once via COALESCE.
func recordExecutionTx(ctx context.Context, tx *sql.Tx, scheduleID, runAt string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	query := `
		INSERT INTO schedule_metadata (schedule_id, initialized, first_run_at,
			total_executions, last_execution_at, created_at, updated_at)
		VALUES (?, 1, ?, 1, ?, ?, ?)
		ON CONFLICT(schedule_id) DO UPDATE SET
			initialized = MAX(initialized, excluded.initialized),
			first_run_at = COALESCE(first_run_at, excluded.first_run_at),
			total_executions = total_executions + 1,
			last_execution_at = excluded.last_execution_at,
			updated_at = excluded.updated_at
	`
	_, err := tx.ExecContext(ctx, query, scheduleID, runAt, runAt, ts, ts)
	if err != nil {
		return errors.Wrap(err, "failed to upsert schedule metadata")
	}
	return nil
}
