package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantitva/market-intel/schedule"
)

func createScheduleVia(t *testing.T, srv *Server, token, frequency string) string {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/api/schedules", token, map[string]any{
		"frequency":      frequency,
		"marketCategory": "SaaS Analytics",
		"subNiche":       "Churn prediction",
		"geography":      "North America",
		"email":          "owner@example.com",
	})
	require.Equal(t, http.StatusCreated, status)
	return body["schedule"].(map[string]any)["id"].(string)
}

func TestScheduleCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")

	id := createScheduleVia(t, srv, token, "weekly")

	status, body := doJSON(t, srv, http.MethodGet, "/api/schedules", token, nil)
	require.Equal(t, http.StatusOK, status)

	scheds := body["schedules"].([]any)
	require.Len(t, scheds, 1)
	sched := scheds[0].(map[string]any)
	assert.Equal(t, id, sched["id"])
	assert.Equal(t, "weekly", sched["frequency"])
	assert.Equal(t, "active", sched["status"])
	assert.NotEmpty(t, sched["nextRun"])
}

func TestScheduleCreateRejectsBadFrequency(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")

	status, body := doJSON(t, srv, http.MethodPost, "/api/schedules", token, map[string]any{
		"frequency":      "hourly",
		"marketCategory": "SaaS Analytics",
		"subNiche":       "Churn prediction",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "frequency")
}

func TestScheduleEndpointsRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/schedules"},
		{http.MethodPost, "/api/schedules"},
		{http.MethodPost, "/api/schedules/x/pause"},
		{http.MethodPost, "/api/schedules/x/resume"},
		{http.MethodDelete, "/api/schedules/x"},
		{http.MethodPost, "/api/research"},
	} {
		status, body := doJSON(t, srv, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", tc.method, tc.path)
		assert.Equal(t, false, body["success"])
	}
}

func TestSchedulePauseResume(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")
	id := createScheduleVia(t, srv, token, "daily")

	status, body := doJSON(t, srv, http.MethodPost, "/api/schedules/"+id+"/pause", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paused", body["status"])

	// Pausing again still succeeds.
	status, _ = doJSON(t, srv, http.MethodPost, "/api/schedules/"+id+"/pause", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, srv, http.MethodPost, "/api/schedules/"+id+"/resume", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", body["status"])
}

func TestScheduleOwnershipDistinguishes403From404(t *testing.T) {
	srv, _ := newTestServer(t)
	ownerToken, _ := signUpUser(t, srv, "owner@example.com")
	strangerToken, _ := signUpUser(t, srv, "stranger@example.com")
	id := createScheduleVia(t, srv, ownerToken, "weekly")

	// Stranger touching someone else's schedule: 403.
	status, _ := doJSON(t, srv, http.MethodPost, "/api/schedules/"+id+"/pause", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = doJSON(t, srv, http.MethodDelete, "/api/schedules/"+id, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Unknown id: 404 for everyone.
	status, _ = doJSON(t, srv, http.MethodPost, "/api/schedules/no-such-id/pause", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScheduleDelete(t *testing.T) {
	srv, db := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")
	id := createScheduleVia(t, srv, token, "weekly")

	// Log an execution so history survival is observable.
	status, _ := doJSON(t, srv, http.MethodPost, "/api/report-run", "",
		reportRunBody(id, true, "<h1>Report</h1>"))
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, srv, http.MethodDelete, "/api/schedules/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "deleted", body["status"])

	// Gone from the owner's list.
	status, body = doJSON(t, srv, http.MethodGet, "/api/schedules", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["schedules"])

	// Deleting again: 404.
	status, _ = doJSON(t, srv, http.MethodDelete, "/api/schedules/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Execution history is retained.
	execs, err := schedule.NewExecutionStore(db).ListExecutions(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestScheduleUpdateRun(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")
	id := createScheduleVia(t, srv, token, "monthly")

	status, body := doJSON(t, srv, http.MethodPost, "/api/schedules/"+id+"/update-run", "", map[string]any{
		"executionId": "exec_1740000000000_abcdef123",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, id, body["scheduleId"])
	assert.Equal(t, float64(1), body["executionCount"])
	assert.NotEmpty(t, body["lastRun"])

	lastRun, err := time.Parse(time.RFC3339, body["lastRun"].(string))
	require.NoError(t, err)
	nextRun, err := time.Parse(time.RFC3339, body["nextRun"].(string))
	require.NoError(t, err)
	assert.True(t, nextRun.After(lastRun.AddDate(0, 0, 27)), "monthly advance")

	status, _ = doJSON(t, srv, http.MethodPost, "/api/schedules/no-such-id/update-run", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSchedulesDue(t *testing.T) {
	srv, db := newTestServer(t)
	token, _ := signUpUser(t, srv, "owner@example.com")
	createScheduleVia(t, srv, token, "weekly")

	// Freshly created schedules run in the future.
	status, body := doJSON(t, srv, http.MethodGet, "/api/schedules/due", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	// Backdate a schedule so it comes due.
	overdue := schedule.NewTestSchedule("engine-seeded")
	overdue.NextRun = time.Now().UTC().Add(-time.Hour)
	schedule.MustCreateSchedule(t, db, overdue)

	status, body = doJSON(t, srv, http.MethodGet, "/api/schedules/due", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	scheds := body["schedules"].([]any)
	assert.Equal(t, overdue.ID, scheds[0].(map[string]any)["id"])
}
