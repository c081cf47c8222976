package schedule

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewTestSchedule builds a schedule with sensible defaults for tests.
// Callers mutate the returned value before persisting when a test needs
// specific fields.
func NewTestSchedule(userID string) *Schedule {
	now := time.Now().UTC().Truncate(time.Second)
	return &Schedule{
		ID:        uuid.NewString(),
		UserID:    userID,
		Frequency: FrequencyWeekly,
		Active:    true,
		Status:    StatusActive,
		NextRun:   now.AddDate(0, 0, 7),
		Category:  "SaaS Analytics",
		SubNiche:  "Churn prediction",
		Geography: "North America",
		Email:     "owner@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MustCreateSchedule persists a test schedule, failing the test on error.
func MustCreateSchedule(t *testing.T, db *sql.DB, sched *Schedule) *Schedule {
	t.Helper()
	require.NoError(t, NewStore(db).CreateSchedule(context.Background(), sched))
	return sched
}

// NewTestReportRun builds a valid report-run request for a schedule.
func NewTestReportRun(scheduleID string, isFirst bool) *ReportRunRequest {
	return &ReportRunRequest{
		ScheduleID:  scheduleID,
		Industry:    "SaaS Analytics",
		SubNiche:    "Churn prediction",
		Frequency:   FrequencyWeekly,
		RunAt:       time.Now().UTC().Format(time.RFC3339),
		IsFirstRun:  &isFirst,
		FinalReport: "<h1>Market Overview</h1><p>Steady growth.</p>",
	}
}
