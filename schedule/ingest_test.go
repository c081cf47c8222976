package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qtesting "github.com/quantitva/market-intel/internal/testing"
	"github.com/quantitva/market-intel/internal/util"
)

func TestReportRunRequestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := NewTestReportRun("sched-1", true)
		assert.Nil(t, req.Validate())
	})

	t.Run("missing fields are all reported", func(t *testing.T) {
		req := &ReportRunRequest{}
		errs := req.Validate()
		require.Len(t, errs, 6)

		fields := make([]string, len(errs))
		for i, fe := range errs {
			fields[i] = fe.Field
		}
		assert.ElementsMatch(t, []string{
			"schedule_id", "industry", "frequency", "run_at", "is_first_run", "final_report",
		}, fields)
	})

	t.Run("sub_niche is optional", func(t *testing.T) {
		req := NewTestReportRun("sched-1", true)
		req.SubNiche = ""
		assert.Nil(t, req.Validate())
	})

	t.Run("malformed run_at", func(t *testing.T) {
		req := NewTestReportRun("sched-1", true)
		req.RunAt = "2025-03-10 09:30"
		errs := req.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "run_at", errs[0].Field)
	})

	t.Run("is_first_run false is not a missing field", func(t *testing.T) {
		req := NewTestReportRun("sched-1", false)
		assert.Nil(t, req.Validate())
	})
}

func TestIngestorFirstRun(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	ing := NewIngestor(db)
	ctx := context.Background()

	result, err := ing.Process(ctx, NewTestReportRun("sched-first", true))
	require.NoError(t, err)

	assert.True(t, result.IsFirstRun)
	assert.False(t, result.Corrected)
	assert.Equal(t, 1, result.TotalExecutions)
	assert.Equal(t, MessageFirstRun, result.Message)
	assert.Contains(t, result.ExecutionID, "exec_")

	meta, err := NewMetadataStore(db).GetMetadata(ctx, "sched-first")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Initialized)
	require.NotNil(t, meta.FirstRunAt)
	assert.Equal(t, 1, meta.TotalExecutions)
}

func TestIngestorSubsequentRuns(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	ing := NewIngestor(db)
	ctx := context.Background()

	_, err := ing.Process(ctx, NewTestReportRun("sched-seq", true))
	require.NoError(t, err)

	for i := 2; i <= 4; i++ {
		result, err := ing.Process(ctx, NewTestReportRun("sched-seq", false))
		require.NoError(t, err)
		assert.False(t, result.IsFirstRun)
		assert.False(t, result.Corrected)
		assert.Equal(t, i, result.TotalExecutions)
		assert.Equal(t, MessageSubsequentRun, result.Message)
	}

	execs, err := NewExecutionStore(db).ListExecutions(ctx, "sched-seq")
	require.NoError(t, err)
	assert.Len(t, execs, 4)
}

func TestIngestorCorrectsStaleFirstRunFlag(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	ing := NewIngestor(db)
	ctx := context.Background()

	_, err := ing.Process(ctx, NewTestReportRun("sched-retry", true))
	require.NoError(t, err)

	// Engine retries with is_first_run still set: corrected, not rejected.
	result, err := ing.Process(ctx, NewTestReportRun("sched-retry", true))
	require.NoError(t, err)
	assert.False(t, result.IsFirstRun)
	assert.True(t, result.Corrected)
	assert.Equal(t, 2, result.TotalExecutions)
	assert.Equal(t, MessageSubsequentRun, result.Message)

	// The stored record carries the corrected value.
	execs, err := NewExecutionStore(db).ListExecutions(ctx, "sched-retry")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	firstRuns := 0
	for _, e := range execs {
		if e.IsFirstRun {
			firstRuns++
		}
	}
	assert.Equal(t, 1, firstRuns)

	meta, err := NewMetadataStore(db).GetMetadata(ctx, "sched-retry")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 2, meta.TotalExecutions)
}

func TestIngestorFirstRunAtIsWriteOnce(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	ing := NewIngestor(db)
	ctx := context.Background()

	first := NewTestReportRun("sched-once", true)
	first.RunAt = "2025-03-01T08:00:00Z"
	_, err := ing.Process(ctx, first)
	require.NoError(t, err)

	second := NewTestReportRun("sched-once", false)
	second.RunAt = "2025-03-08T08:00:00Z"
	_, err = ing.Process(ctx, second)
	require.NoError(t, err)

	meta, err := NewMetadataStore(db).GetMetadata(ctx, "sched-once")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, util.Ptr("2025-03-01T08:00:00Z"), meta.FirstRunAt)
	assert.Equal(t, util.Ptr("2025-03-08T08:00:00Z"), meta.LastExecutionAt)
}

func TestIngestorUnknownScheduleStillLogs(t *testing.T) {
	// No FK from executions to schedules: the engine may report runs for
	// schedules created out of band.
	db := qtesting.CreateTestDB(t)
	ing := NewIngestor(db)

	result, err := ing.Process(context.Background(), NewTestReportRun("never-created", true))
	require.NoError(t, err)
	assert.True(t, result.IsFirstRun)
}

func TestMetadataStoreAbsentSchedule(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewMetadataStore(db)

	meta, err := store.GetMetadata(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, meta)

	initialized, err := store.IsInitialized(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, initialized)
}
