package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantitva/market-intel/errors"
	qtesting "github.com/quantitva/market-intel/internal/testing"
)

func seedExecution(t *testing.T, store *ExecutionStore, scheduleID, runAt string, isFirst bool) *Execution {
	t.Helper()
	exec := &Execution{
		ExecutionID: NewExecutionID(),
		ScheduleID:  scheduleID,
		Industry:    "SaaS Analytics",
		Frequency:   FrequencyWeekly,
		RunAt:       runAt,
		IsFirstRun:  isFirst,
		FinalReport: "<h1>Overview</h1>",
		Status:      ExecutionStatusSuccess,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, store.CreateExecution(context.Background(), exec))
	return exec
}

func TestExecutionStoreGet(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewExecutionStore(db)
	ctx := context.Background()

	exec := seedExecution(t, store, "sched-1", "2025-03-01T08:00:00Z", true)

	got, err := store.GetExecution(ctx, exec.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, exec.ExecutionID, got.ExecutionID)
	assert.Equal(t, "sched-1", got.ScheduleID)
	assert.True(t, got.IsFirstRun)
	assert.Equal(t, "<h1>Overview</h1>", got.FinalReport)

	_, err = store.GetExecution(ctx, "exec_0_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestExecutionStoreListOrdering(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewExecutionStore(db)
	ctx := context.Background()

	// Inserted out of order; listing sorts by run_at, not insertion.
	seedExecution(t, store, "sched-1", "2025-03-08T08:00:00Z", false)
	first := seedExecution(t, store, "sched-1", "2025-03-01T08:00:00Z", true)
	latest := seedExecution(t, store, "sched-1", "2025-03-15T08:00:00Z", false)
	seedExecution(t, store, "sched-other", "2025-03-20T08:00:00Z", true)

	execs, err := store.ListExecutions(ctx, "sched-1")
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, latest.ExecutionID, execs[0].ExecutionID)
	assert.Equal(t, first.ExecutionID, execs[2].ExecutionID)

	got, err := store.GetLatestExecution(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, latest.ExecutionID, got.ExecutionID)

	count, err := store.CountExecutions(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestExecutionStoreLatestEmpty(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewExecutionStore(db)

	_, err := store.GetLatestExecution(context.Background(), "sched-empty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	count, err := store.CountExecutions(context.Background(), "sched-empty")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNewExecutionIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewExecutionID()
		assert.Regexp(t, `^exec_\d+_[0-9a-z]{9}$`, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
