package server

import (
	"net/http"
)

// setupRoutes configures all HTTP handlers
func (s *Server) setupRoutes() {
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return s.corsMiddleware(s.authMW.RequireAuth(h, writeUnauthorized))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.corsMiddleware(s.authMW.RequireAdmin(h, writeUnauthorized, writeForbidden))
	}
	open := s.corsMiddleware

	// Engine-facing surface: the automation engine holds no account, so
	// ingestion, report retrieval, due polling, and run acknowledgement
	// are open endpoints.
	s.mux.HandleFunc("POST /api/report-run", open(s.handleReportRun))
	s.mux.HandleFunc("GET /api/reports/{schedule_id}", open(s.handleReports))
	s.mux.HandleFunc("GET /api/schedules/due", open(s.handleSchedulesDue))
	s.mux.HandleFunc("POST /api/schedules/{id}/update-run", open(s.handleScheduleUpdateRun))

	// Dashboard surface
	s.mux.HandleFunc("POST /api/schedules", authed(s.handleScheduleCreate))
	s.mux.HandleFunc("GET /api/schedules", authed(s.handleScheduleList))
	s.mux.HandleFunc("POST /api/schedules/{id}/pause", authed(s.handleSchedulePause))
	s.mux.HandleFunc("POST /api/schedules/{id}/resume", authed(s.handleScheduleResume))
	s.mux.HandleFunc("DELETE /api/schedules/{id}", authed(s.handleScheduleDelete))
	s.mux.HandleFunc("POST /api/research", authed(s.handleResearch))

	s.mux.HandleFunc("GET /api/webhooks", authed(s.handleWebhookList))
	s.mux.HandleFunc("POST /api/webhooks", admin(s.handleWebhookCreate))
	s.mux.HandleFunc("PUT /api/webhooks/{id}", admin(s.handleWebhookUpdate))
	s.mux.HandleFunc("DELETE /api/webhooks/{id}", admin(s.handleWebhookDelete))

	// Auth surface
	s.mux.HandleFunc("POST /api/auth/signup", open(s.handleSignUp))
	s.mux.HandleFunc("POST /api/auth/signin", open(s.handleSignIn))
	s.mux.HandleFunc("GET /api/auth/session", authed(s.handleSession))
	s.mux.HandleFunc("POST /api/auth/update-user", authed(s.handleUpdateUser))
	s.mux.HandleFunc("POST /api/auth/reset-password", open(s.handleResetPassword))
	s.mux.HandleFunc("POST /api/auth/signout", authed(s.handleSignOut))

	s.mux.HandleFunc("GET /health", open(s.handleHealth))
	s.mux.HandleFunc("OPTIONS /", open(func(w http.ResponseWriter, r *http.Request) {}))
}

// corsMiddleware adds CORS headers using configured allowed origins
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": nowStamp(),
	})
}
