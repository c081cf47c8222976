package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/logger"
)

// ReportRunRequest is the payload the automation engine posts after each
// run. is_first_run is the engine's assertion and is corrected against
// stored state; it is a pointer so an absent field fails validation instead
// of silently reading as false.
type ReportRunRequest struct {
	ScheduleID  string `json:"schedule_id" validate:"required"`
	Industry    string `json:"industry" validate:"required"`
	SubNiche    string `json:"sub_niche"`
	Frequency   string `json:"frequency" validate:"required"`
	RunAt       string `json:"run_at" validate:"required"`
	IsFirstRun  *bool  `json:"is_first_run" validate:"required"`
	FinalReport string `json:"final_report" validate:"required"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result reports what ingestion recorded. IsFirstRun is the corrected
// value, which may differ from the request's assertion.
type Result struct {
	ExecutionID     string `json:"execution_id"`
	ScheduleID      string `json:"schedule_id"`
	IsFirstRun      bool   `json:"is_first_run"`
	Corrected       bool   `json:"corrected"`
	TotalExecutions int    `json:"total_executions"`
	Message         string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request and returns one FieldError per invalid field,
// so the caller can report every problem in a single response. It returns
// nil when the request is valid.
func (r *ReportRunRequest) Validate() []FieldError {
	var fieldErrs []FieldError

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fieldErrs = append(fieldErrs, FieldError{
					Field:   jsonFieldName(fe.Field()),
					Message: "is required",
				})
			}
		} else {
			fieldErrs = append(fieldErrs, FieldError{Field: "request", Message: err.Error()})
		}
	}

	if r.RunAt != "" {
		if _, err := time.Parse(time.RFC3339, r.RunAt); err != nil {
			fieldErrs = append(fieldErrs, FieldError{
				Field:   "run_at",
				Message: "must be an RFC 3339 timestamp",
			})
		}
	}

	return fieldErrs
}

// jsonFieldName maps struct field names to their wire names. The request
// struct is small enough that a switch beats reflection on json tags.
func jsonFieldName(field string) string {
	switch field {
	case "ScheduleID":
		return "schedule_id"
	case "Industry":
		return "industry"
	case "SubNiche":
		return "sub_niche"
	case "Frequency":
		return "frequency"
	case "RunAt":
		return "run_at"
	case "IsFirstRun":
		return "is_first_run"
	case "FinalReport":
		return "final_report"
	default:
		return field
	}
}

// Ingestion response messages, distinguished so engine operators can see
// initialization at a glance in their run logs.
const (
	MessageFirstRun      = "First execution logged successfully. Schedule initialized."
	MessageSubsequentRun = "Execution logged successfully."
)

// Ingestor records engine-reported executions. Each ingestion writes the
// execution log row and the metadata rollup in one transaction, so the
// counter and the log can never disagree.
type Ingestor struct {
	db *sql.DB
}

// NewIngestor creates an ingestor backed by db.
func NewIngestor(db *sql.DB) *Ingestor {
	return &Ingestor{db: db}
}

// Process ingests one execution report. The caller must have validated req.
//
// First-ness is decided by stored state, not by the request: when the
// engine asserts is_first_run=true against an already-initialized schedule
// (a retry, or a drifted engine flag), the record is corrected to false,
// a warning is logged, and ingestion continues. An assertion is never a
// reason to reject a run that actually happened.
func (ing *Ingestor) Process(ctx context.Context, req *ReportRunRequest) (*Result, error) {
	tx, err := ing.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin ingestion transaction")
	}
	defer tx.Rollback()

	var initialized bool
	err = tx.QueryRowContext(ctx,
		`SELECT initialized FROM schedule_metadata WHERE schedule_id = ?`, req.ScheduleID).
		Scan(&initialized)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to check schedule initialization")
	}

	isFirst := !initialized
	corrected := *req.IsFirstRun != isFirst
	if corrected && *req.IsFirstRun {
		logger.Warnw("engine asserted first run for initialized schedule, correcting",
			"schedule_id", req.ScheduleID,
			"run_at", req.RunAt,
		)
	}

	now := time.Now()
	exec := &Execution{
		ExecutionID: NewExecutionID(),
		ScheduleID:  req.ScheduleID,
		Industry:    req.Industry,
		SubNiche:    req.SubNiche,
		Frequency:   req.Frequency,
		RunAt:       req.RunAt,
		IsFirstRun:  isFirst,
		FinalReport: req.FinalReport,
		Status:      ExecutionStatusSuccess,
		CreatedAt:   now.UTC().Format(time.RFC3339),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO executions (execution_id, schedule_id, industry, sub_niche, frequency,
			run_at, is_first_run, final_report, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exec.ExecutionID, exec.ScheduleID, exec.Industry, exec.SubNiche, exec.Frequency,
		exec.RunAt, exec.IsFirstRun, exec.FinalReport, exec.Status, exec.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert execution")
	}

	if err := recordExecutionTx(ctx, tx, req.ScheduleID, req.RunAt, now); err != nil {
		return nil, err
	}

	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT total_executions FROM schedule_metadata WHERE schedule_id = ?`, req.ScheduleID).
		Scan(&total)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read execution total")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit ingestion")
	}

	message := MessageSubsequentRun
	if isFirst {
		message = MessageFirstRun
	}

	logger.Infow("execution ingested",
		"execution_id", exec.ExecutionID,
		"schedule_id", req.ScheduleID,
		"is_first_run", isFirst,
		"total_executions", total,
	)

	return &Result{
		ExecutionID:     exec.ExecutionID,
		ScheduleID:      req.ScheduleID,
		IsFirstRun:      isFirst,
		Corrected:       corrected,
		TotalExecutions: total,
		Message:         message,
	}, nil
}
