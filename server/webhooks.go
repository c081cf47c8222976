package server

import (
	"net/http"

	"github.com/quantitva/market-intel/webhook"
)

type webhookRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

func (req *webhookRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.URL == "" {
		return "url is required"
	}
	if !webhook.IsValidType(req.Type) {
		return "type must be on-demand or recurring"
	}
	return ""
}

func (s *Server) handleWebhookList(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.webhookStore.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if hooks == nil {
		hooks = []*webhook.Config{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"webhooks":  hooks,
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleWebhookCreate(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if !readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "Validation failed", msg)
		return
	}

	cfg := &webhook.Config{
		Name:        req.Name,
		URL:         req.URL,
		Type:        req.Type,
		Description: req.Description,
		Active:      req.Active,
	}
	if err := s.webhookStore.Create(r.Context(), cfg); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"webhook":   cfg,
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleWebhookUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req webhookRequest
	if !readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "Validation failed", msg)
		return
	}

	cfg, err := s.webhookStore.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	cfg.Name = req.Name
	cfg.URL = req.URL
	cfg.Type = req.Type
	cfg.Description = req.Description
	cfg.Active = req.Active

	if err := s.webhookStore.Update(r.Context(), cfg); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"webhook":   cfg,
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleWebhookDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.webhookStore.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"webhookId": id,
		"message":   "Webhook removed",
		"timestamp": nowStamp(),
	})
}
