package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/logger"
	"github.com/quantitva/market-intel/schedule"
)

// errorResponse is the stable error envelope every endpoint shares.
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorw("Failed to encode JSON response", "error", err)
	}
}

// writeError writes the error envelope
func writeError(w http.ResponseWriter, status int, message, details string) {
	logger.Warnw("Request failed", "status", status, "error", message, "details", details)
	writeJSON(w, status, errorResponse{
		Success:   false,
		Error:     message,
		Details:   details,
		Timestamp: nowStamp(),
	})
}

// writeValidationError reports every offending field in one response.
func writeValidationError(w http.ResponseWriter, fieldErrs []schedule.FieldError) {
	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = fe.Field + ": " + fe.Message
	}
	writeError(w, http.StatusBadRequest, "Validation failed", strings.Join(parts, "; "))
}

// writeUnauthorized and writeForbidden exist so auth middleware can emit
// the shared envelope without importing this package.
func writeUnauthorized(w http.ResponseWriter, details string) {
	writeError(w, http.StatusUnauthorized, "Unauthorized", details)
}

func writeForbidden(w http.ResponseWriter, details string) {
	writeError(w, http.StatusForbidden, "Forbidden", details)
}

// handleError maps domain errors onto HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, errors.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, errors.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, errors.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, errors.ErrValidation), errors.Is(err, errors.ErrInvalidFrequency):
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
	default:
		logger.Errorw("Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// readJSON reads and decodes a JSON request body
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "Request body must be valid JSON")
		return false
	}
	return true
}
