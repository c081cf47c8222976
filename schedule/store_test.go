package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantitva/market-intel/errors"
	qtesting "github.com/quantitva/market-intel/internal/testing"
)

func TestStoreCreateAndGet(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	sched := NewTestSchedule("user-1")
	sched.Notes = "competitor focus"
	require.NoError(t, store.CreateSchedule(ctx, sched))

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, sched.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, FrequencyWeekly, got.Frequency)
	assert.Equal(t, StatusActive, got.Status)
	assert.True(t, got.Active)
	assert.Nil(t, got.PausedAt)
	assert.Nil(t, got.LastRun)
	assert.Equal(t, sched.NextRun, got.NextRun)
	assert.Equal(t, "competitor focus", got.Notes)
}

func TestStoreGetNotFound(t *testing.T) {
	db := qtesting.CreateTestDB(t)

	_, err := NewStore(db).GetSchedule(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreListByUser(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	a := MustCreateSchedule(t, db, NewTestSchedule("user-a"))
	b := NewTestSchedule("user-a")
	b.CreatedAt = a.CreatedAt.Add(time.Minute)
	b.UpdatedAt = b.CreatedAt
	MustCreateSchedule(t, db, b)
	MustCreateSchedule(t, db, NewTestSchedule("user-b"))

	deleted := MustCreateSchedule(t, db, NewTestSchedule("user-a"))
	require.NoError(t, store.Delete(ctx, deleted.ID, time.Now()))

	scheds, err := store.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, scheds, 2)
	assert.Equal(t, b.ID, scheds[0].ID, "newest first")
	assert.Equal(t, a.ID, scheds[1].ID)
}

func TestStoreListDue(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	overdue := NewTestSchedule("user-1")
	overdue.NextRun = now.Add(-2 * time.Hour)
	MustCreateSchedule(t, db, overdue)

	dueNow := NewTestSchedule("user-1")
	dueNow.NextRun = now
	MustCreateSchedule(t, db, dueNow)

	future := NewTestSchedule("user-1")
	future.NextRun = now.Add(time.Hour)
	MustCreateSchedule(t, db, future)

	pausedDue := NewTestSchedule("user-1")
	pausedDue.NextRun = now.Add(-time.Hour)
	MustCreateSchedule(t, db, pausedDue)
	require.NoError(t, store.Pause(ctx, pausedDue.ID, now))

	due, err := store.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, overdue.ID, due[0].ID, "soonest first")
	assert.Equal(t, dueNow.ID, due[1].ID)
}

func TestStorePauseResume(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sched := MustCreateSchedule(t, db, NewTestSchedule("user-1"))

	require.NoError(t, store.Pause(ctx, sched.ID, now))
	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)
	assert.False(t, got.Active)
	require.NotNil(t, got.PausedAt)
	assert.Equal(t, now, got.PausedAt.UTC())

	// Pausing again keeps the original paused_at.
	require.NoError(t, store.Pause(ctx, sched.ID, now.Add(time.Hour)))
	got, err = store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PausedAt)
	assert.Equal(t, now, got.PausedAt.UTC())

	require.NoError(t, store.Resume(ctx, sched.ID, now.Add(2*time.Hour)))
	got, err = store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.True(t, got.Active)
	assert.Nil(t, got.PausedAt)

	// Resuming an already-active schedule still succeeds.
	require.NoError(t, store.Resume(ctx, sched.ID, now.Add(3*time.Hour)))
}

func TestStoreDelete(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	sched := MustCreateSchedule(t, db, NewTestSchedule("user-1"))
	require.NoError(t, store.Delete(ctx, sched.ID, time.Now()))

	// Soft delete: the row survives with status=deleted.
	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, got.Status)
	assert.False(t, got.Active)

	// Mutating a deleted schedule reports not found.
	err = store.Pause(ctx, sched.ID, time.Now())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	err = store.Delete(ctx, sched.ID, time.Now())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreUpdateAfterRun(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	sched := NewTestSchedule("user-1")
	sched.Frequency = FrequencyMonthly
	MustCreateSchedule(t, db, sched)

	ranAt := time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateAfterRun(ctx, sched.ID, "exec_1738314000000_abc123def", ranAt))

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, ranAt, got.LastRun.UTC())
	assert.Equal(t, time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC), got.NextRun)
	assert.Equal(t, 1, got.ExecutionCount)
	assert.Equal(t, "exec_1738314000000_abc123def", got.LastExecutionID)

	require.NoError(t, store.UpdateAfterRun(ctx, sched.ID, "exec_1740733200000_ghi456jkl", got.NextRun))
	got, err = store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ExecutionCount)
	assert.Equal(t, time.Date(2025, time.March, 28, 9, 0, 0, 0, time.UTC), got.NextRun)
}

func TestStoreUpdateAfterRunNotFound(t *testing.T) {
	db := qtesting.CreateTestDB(t)

	err := NewStore(db).UpdateAfterRun(context.Background(), "missing", "exec_0_x", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreQueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT id, user_id, frequency").
		WillReturnError(assert.AnError)

	_, err = NewStore(mockDB).GetSchedule(context.Background(), "sched-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get schedule")
	assert.NoError(t, mock.ExpectationsWereMet())
}
