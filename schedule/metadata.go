package schedule

// Metadata is the per-schedule execution rollup, upserted once per ingested
// run. It is the source of truth for "first-ness": a caller's is_first_run
// assertion is corrected against the initialized flag here.
//
// Invariants: first_run_at is write-once; total_executions increments by
// exactly one per ingested execution and is never decremented.
type Metadata struct {
	ScheduleID      string  `json:"schedule_id"`
	Initialized     bool    `json:"initialized"`
	FirstRunAt      *string `json:"first_run_at,omitempty"` // RFC3339, set exactly once
	TotalExecutions int     `json:"total_executions"`
	LastExecutionAt *string `json:"last_execution_at,omitempty"` // RFC3339, overwritten each run
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}
