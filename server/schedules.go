package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quantitva/market-intel/auth"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/schedule"
)

// scheduleDTO is the wire form of a schedule.
type scheduleDTO struct {
	ID              string  `json:"id"`
	Frequency       string  `json:"frequency"`
	Active          bool    `json:"active"`
	Status          string  `json:"status"`
	PausedAt        *string `json:"pausedAt,omitempty"`
	LastRun         *string `json:"lastRun,omitempty"`
	NextRun         string  `json:"nextRun"`
	ExecutionCount  int     `json:"executionCount"`
	LastExecutionID string  `json:"lastExecutionId,omitempty"`
	Category        string  `json:"category"`
	SubNiche        string  `json:"subNiche"`
	Geography       string  `json:"geography,omitempty"`
	Email           string  `json:"email,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

func toScheduleDTO(s *schedule.Schedule) *scheduleDTO {
	dto := &scheduleDTO{
		ID:              s.ID,
		Frequency:       s.Frequency,
		Active:          s.Active,
		Status:          s.Status,
		NextRun:         s.NextRun.UTC().Format(time.RFC3339),
		ExecutionCount:  s.ExecutionCount,
		LastExecutionID: s.LastExecutionID,
		Category:        s.Category,
		SubNiche:        s.SubNiche,
		Geography:       s.Geography,
		Email:           s.Email,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.PausedAt != nil {
		v := s.PausedAt.UTC().Format(time.RFC3339)
		dto.PausedAt = &v
	}
	if s.LastRun != nil {
		v := s.LastRun.UTC().Format(time.RFC3339)
		dto.LastRun = &v
	}
	return dto
}

type createScheduleRequest struct {
	Frequency string `json:"frequency"`
	Category  string `json:"marketCategory"`
	SubNiche  string `json:"subNiche"`
	Geography string `json:"geography"`
	Email     string `json:"email"`
	Notes     string `json:"notes"`
}

func (s *Server) handleScheduleCreate(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	var req createScheduleRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Category == "" || req.SubNiche == "" {
		writeError(w, http.StatusBadRequest, "Validation failed", "marketCategory and subNiche are required")
		return
	}
	if !schedule.IsValidFrequency(req.Frequency) {
		writeError(w, http.StatusBadRequest, "Validation failed", "frequency must be one of daily, weekly, biweekly, monthly")
		return
	}

	now := time.Now().UTC()
	nextRun, err := schedule.NextRun(now, req.Frequency)
	if err != nil {
		handleError(w, err)
		return
	}

	sched := &schedule.Schedule{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Frequency: req.Frequency,
		Active:    true,
		Status:    schedule.StatusActive,
		NextRun:   nextRun,
		Category:  req.Category,
		SubNiche:  req.SubNiche,
		Geography: req.Geography,
		Email:     req.Email,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.scheduleStore.CreateSchedule(r.Context(), sched); err != nil {
		handleError(w, err)
		return
	}
	s.schedules.Invalidate(claims.UserID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"schedule":  toScheduleDTO(sched),
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleScheduleList(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	scheds, err := s.schedules.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	dtos := make([]*scheduleDTO, 0, len(scheds))
	for _, sched := range scheds {
		dtos = append(dtos, toScheduleDTO(sched))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"schedules": dtos,
		"timestamp": nowStamp(),
	})
}

// handleSchedulesDue lists active schedules whose next run is at or before
// now. Polled by the automation engine.
func (s *Server) handleSchedulesDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.scheduleStore.ListDue(r.Context(), time.Now())
	if err != nil {
		handleError(w, err)
		return
	}

	dtos := make([]*scheduleDTO, 0, len(due))
	for _, sched := range due {
		dtos = append(dtos, toScheduleDTO(sched))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"schedules": dtos,
		"count":     len(dtos),
		"timestamp": nowStamp(),
	})
}

// ownedSchedule loads a schedule and enforces ownership. A deleted or
// missing schedule is 404; someone else's schedule is 403, deliberately
// distinct so owners learn their id is gone while strangers learn nothing
// more than "not yours".
func (s *Server) ownedSchedule(r *http.Request, id string) (*schedule.Schedule, error) {
	claims := auth.UserFromContext(r.Context())

	sched, err := s.scheduleStore.GetSchedule(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sched.Status == schedule.StatusDeleted {
		return nil, errors.Wrapf(errors.ErrNotFound, "schedule %s", id)
	}
	if sched.UserID != claims.UserID {
		return nil, errors.Wrapf(errors.ErrForbidden, "schedule %s is not yours", id)
	}
	return sched, nil
}

func (s *Server) handleSchedulePause(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, "paused", s.scheduleStore.Pause)
}

func (s *Server) handleScheduleResume(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, "active", s.scheduleStore.Resume)
}

func (s *Server) transitionSchedule(w http.ResponseWriter, r *http.Request, resulting string, op func(ctx context.Context, id string, now time.Time) error) {
	id := r.PathValue("id")

	sched, err := s.ownedSchedule(r, id)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := op(r.Context(), sched.ID, time.Now()); err != nil {
		handleError(w, err)
		return
	}
	s.schedules.Invalidate(sched.UserID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"scheduleId": sched.ID,
		"status":     resulting,
		"message":    "Schedule " + resulting,
		"timestamp":  nowStamp(),
	})
}

func (s *Server) handleScheduleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sched, err := s.ownedSchedule(r, id)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := s.scheduleStore.Delete(r.Context(), sched.ID, time.Now()); err != nil {
		handleError(w, err)
		return
	}
	s.schedules.Invalidate(sched.UserID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"scheduleId": sched.ID,
		"status":     "deleted",
		"message":    "Schedule deleted. Execution history is retained.",
		"timestamp":  nowStamp(),
	})
}

type updateRunRequest struct {
	ExecutionID string `json:"executionId"`
}

// handleScheduleUpdateRun acknowledges that the engine just ran a schedule:
// advances next_run by the stored frequency and bumps the counter.
func (s *Server) handleScheduleUpdateRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateRunRequest
	if r.ContentLength != 0 && !readJSON(w, r, &req) {
		return
	}

	ranAt := time.Now().UTC()
	if err := s.scheduleStore.UpdateAfterRun(r.Context(), id, req.ExecutionID, ranAt); err != nil {
		handleError(w, err)
		return
	}

	sched, err := s.scheduleStore.GetSchedule(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	s.schedules.Invalidate(sched.UserID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"scheduleId":     sched.ID,
		"lastRun":        sched.LastRun.UTC().Format(time.RFC3339),
		"nextRun":        sched.NextRun.UTC().Format(time.RFC3339),
		"executionCount": sched.ExecutionCount,
		"message":        "Schedule run recorded",
		"timestamp":      nowStamp(),
	})
}
