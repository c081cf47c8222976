// Package schedule implements recurring research schedules and the
// execution-tracking protocol around them: next-run date arithmetic,
// per-schedule execution logs, and the idempotent first-run bookkeeping
// that absorbs at-least-once delivery from the automation engine.
package schedule

import "time"

// Schedule is a user-defined recurring research configuration.
type Schedule struct {
	ID              string
	UserID          string
	Frequency       string
	Active          bool
	Status          string
	PausedAt        *time.Time
	LastRun         *time.Time
	NextRun         time.Time
	ExecutionCount  int
	LastExecutionID string

	// Research parameters forwarded to the automation engine
	Category  string
	SubNiche  string
	Geography string
	Email     string
	Notes     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status constants for schedules
const (
	StatusActive  = "active"  // Schedule is running on its recurrence
	StatusPaused  = "paused"  // Schedule is temporarily paused by the owner
	StatusDeleted = "deleted" // Schedule has been deleted by the owner (soft delete)
)
