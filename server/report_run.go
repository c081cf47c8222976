package server

import (
	"net/http"

	"github.com/quantitva/market-intel/report"
	"github.com/quantitva/market-intel/schedule"
)

// reportRunResponse acknowledges an ingested execution. is_first_run is the
// corrected value; the engine treats it as authoritative for its next run.
type reportRunResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"execution_id"`
	ScheduleID  string `json:"schedule_id"`
	IsFirstRun  bool   `json:"is_first_run"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
}

// handleReportRun accepts execution data from the automation engine.
func (s *Server) handleReportRun(w http.ResponseWriter, r *http.Request) {
	var req schedule.ReportRunRequest
	if !readJSON(w, r, &req) {
		return
	}

	if fieldErrs := req.Validate(); fieldErrs != nil {
		writeValidationError(w, fieldErrs)
		return
	}

	result, err := s.ingestor.Process(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	s.reports.Invalidate(result.ExecutionID)

	writeJSON(w, http.StatusOK, reportRunResponse{
		Success:     true,
		ExecutionID: result.ExecutionID,
		ScheduleID:  result.ScheduleID,
		IsFirstRun:  result.IsFirstRun,
		Message:     result.Message,
		Timestamp:   nowStamp(),
	})
}

type reportsResponse struct {
	Success         bool                  `json:"success"`
	ScheduleID      string                `json:"schedule_id"`
	TotalExecutions int                   `json:"total_executions"`
	Executions      []*schedule.Execution `json:"executions"`
	Sections        *report.Sections      `json:"sections,omitempty"`
	Timestamp       string                `json:"timestamp"`
}

// handleReports returns a schedule's execution history, newest first, with
// the most recent report parsed into dashboard sections.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	scheduleID := r.PathValue("schedule_id")

	execs, err := s.executionStore.ListExecutions(r.Context(), scheduleID)
	if err != nil {
		handleError(w, err)
		return
	}

	meta, err := s.metadataStore.GetMetadata(r.Context(), scheduleID)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := reportsResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Executions: execs,
		Timestamp:  nowStamp(),
	}
	if meta != nil {
		resp.TotalExecutions = meta.TotalExecutions
	}
	if execs == nil {
		resp.Executions = []*schedule.Execution{}
	}

	if len(execs) > 0 && execs[0].FinalReport != "" {
		sections, err := s.reports.Sections(execs[0].ExecutionID, execs[0].FinalReport)
		if err != nil {
			handleError(w, err)
			return
		}
		resp.Sections = sections
	}

	writeJSON(w, http.StatusOK, resp)
}
