package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quantitva/market-intel/auth"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/report"
	"github.com/quantitva/market-intel/schedule"
	"github.com/quantitva/market-intel/webhook"
)

type researchRequest struct {
	MarketCategory string `json:"marketCategory"`
	SubNiche       string `json:"subNiche"`
	Geography      string `json:"geography"`
	Email          string `json:"email"`
	Notes          string `json:"notes"`
	ResearchType   string `json:"researchType"` // on-demand | recurring
	Frequency      string `json:"frequency"`    // required for recurring
}

func (req *researchRequest) validate() string {
	if req.MarketCategory == "" {
		return "marketCategory is required"
	}
	if req.SubNiche == "" {
		return "subNiche is required"
	}
	if req.Email == "" {
		return "email is required"
	}
	if !webhook.IsValidType(req.ResearchType) {
		return "researchType must be on-demand or recurring"
	}
	if req.ResearchType == webhook.TypeRecurring && !schedule.IsValidFrequency(req.Frequency) {
		return "frequency must be one of daily, weekly, biweekly, monthly"
	}
	return ""
}

// handleResearch relays a research request to the active webhook of the
// requested type. A recurring request additionally creates the schedule,
// but only after the engine accepted the initial run; a failed relay
// leaves nothing behind.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	var req researchRequest
	if !readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "Validation failed", msg)
		return
	}

	hooks, err := s.webhookStore.ListActiveByType(r.Context(), req.ResearchType)
	if err != nil {
		handleError(w, err)
		return
	}
	if len(hooks) == 0 {
		writeError(w, http.StatusBadRequest, "No active webhook",
			"configure an active "+req.ResearchType+" webhook first")
		return
	}
	hook := hooks[0]

	engineReport, err := s.relay.Send(r.Context(), hook, &webhook.Request{
		MarketCategory: req.MarketCategory,
		SubNiche:       req.SubNiche,
		Geography:      req.Geography,
		Email:          req.Email,
		Notes:          req.Notes,
		Frequency:      req.Frequency,
	})
	if err != nil {
		writeRelayError(w, err)
		return
	}

	sections, err := report.ParseSections(engineReport.WebReport)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := map[string]any{
		"success":     true,
		"webReport":   engineReport.WebReport,
		"emailReport": engineReport.EmailReport,
		"sections":    sections,
		"timestamp":   nowStamp(),
	}

	if req.ResearchType == webhook.TypeRecurring {
		sched, err := s.createScheduleFromResearch(r, claims.UserID, &req)
		if err != nil {
			handleError(w, err)
			return
		}
		resp["schedule"] = toScheduleDTO(sched)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createScheduleFromResearch(r *http.Request, userID string, req *researchRequest) (*schedule.Schedule, error) {
	now := time.Now().UTC()
	nextRun, err := schedule.NextRun(now, req.Frequency)
	if err != nil {
		return nil, err
	}

	sched := &schedule.Schedule{
		ID:        uuid.NewString(),
		UserID:    userID,
		Frequency: req.Frequency,
		Active:    true,
		Status:    schedule.StatusActive,
		NextRun:   nextRun,
		Category:  req.MarketCategory,
		SubNiche:  req.SubNiche,
		Geography: req.Geography,
		Email:     req.Email,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.scheduleStore.CreateSchedule(r.Context(), sched); err != nil {
		return nil, err
	}
	s.schedules.Invalidate(userID)
	return sched, nil
}

// writeRelayError maps relay failures to 502 with the failure kind, so the
// dashboard can tell a dead endpoint from a rejecting one.
func writeRelayError(w http.ResponseWriter, err error) {
	var relayErr *webhook.RelayError
	if !errors.As(err, &relayErr) {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusBadGateway, map[string]any{
		"success":   false,
		"error":     "Webhook relay failed",
		"kind":      relayErr.Kind,
		"details":   relayErr.Error(),
		"timestamp": nowStamp(),
	})
}
