package schedule

import (
	"context"
	"database/sql"

	"github.com/quantitva/market-intel/errors"
)

// ExecutionStore persists execution log records.
type ExecutionStore struct {
	db *sql.DB
}

// NewExecutionStore creates an execution store backed by db.
func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// CreateExecution inserts a new execution log record.
func (s *ExecutionStore) CreateExecution(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO executions (execution_id, schedule_id, industry, sub_niche, frequency,
			run_at, is_first_run, final_report, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		exec.ExecutionID,
		exec.ScheduleID,
		exec.Industry,
		exec.SubNiche,
		exec.Frequency,
		exec.RunAt,
		exec.IsFirstRun,
		exec.FinalReport,
		exec.Status,
		exec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert execution")
	}
	return nil
}

// GetExecution retrieves a single execution by its id.
func (s *ExecutionStore) GetExecution(ctx context.Context, executionID string) (*Execution, error) {
	query := `
		SELECT execution_id, schedule_id, industry, sub_niche, frequency,
			run_at, is_first_run, final_report, status, created_at
		FROM executions
		WHERE execution_id = ?
	`
	exec, err := scanExecution(s.db.QueryRowContext(ctx, query, executionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "execution %s", executionID)
		}
		return nil, errors.Wrap(err, "failed to get execution")
	}
	return exec, nil
}

// ListExecutions returns a schedule's execution history, most recent first.
func (s *ExecutionStore) ListExecutions(ctx context.Context, scheduleID string) ([]*Execution, error) {
	query := `
		SELECT execution_id, schedule_id, industry, sub_niche, frequency,
			run_at, is_first_run, final_report, status, created_at
		FROM executions
		WHERE schedule_id = ?
		ORDER BY run_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list executions")
	}
	defer rows.Close()

	var execs []*Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan execution")
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate executions")
	}
	return execs, nil
}

// GetLatestExecution returns the most recent execution for a schedule, or
// ErrNotFound if the schedule has never run.
func (s *ExecutionStore) GetLatestExecution(ctx context.Context, scheduleID string) (*Execution, error) {
	query := `
		SELECT execution_id, schedule_id, industry, sub_niche, frequency,
			run_at, is_first_run, final_report, status, created_at
		FROM executions
		WHERE schedule_id = ?
		ORDER BY run_at DESC
		LIMIT 1
	`
	exec, err := scanExecution(s.db.QueryRowContext(ctx, query, scheduleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "no executions for schedule %s", scheduleID)
		}
		return nil, errors.Wrap(err, "failed to get latest execution")
	}
	return exec, nil
}

// CountExecutions returns the number of logged executions for a schedule.
func (s *ExecutionStore) CountExecutions(ctx context.Context, scheduleID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE schedule_id = ?`, scheduleID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count executions")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	var exec Execution
	var subNiche, finalReport sql.NullString
	err := row.Scan(
		&exec.ExecutionID,
		&exec.ScheduleID,
		&exec.Industry,
		&subNiche,
		&exec.Frequency,
		&exec.RunAt,
		&exec.IsFirstRun,
		&finalReport,
		&exec.Status,
		&exec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	exec.SubNiche = subNiche.String
	exec.FinalReport = finalReport.String
	return &exec, nil
}
