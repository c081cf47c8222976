package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMutationsRequireAdmin(t *testing.T) {
	srv, _ := newTestServer(t)
	userToken, _ := signUpUser(t, srv, "user@example.com")

	payload := map[string]any{
		"name":   "Handler",
		"url":    "https://engine.example.com/hook",
		"type":   "on-demand",
		"active": true,
	}

	status, body := doJSON(t, srv, http.MethodPost, "/api/webhooks", userToken, payload)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["success"])

	status, _ = doJSON(t, srv, http.MethodPut, "/api/webhooks/some-id", userToken, payload)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, srv, http.MethodDelete, "/api/webhooks/some-id", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Reading is open to any authenticated user.
	status, _ = doJSON(t, srv, http.MethodGet, "/api/webhooks", userToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// But not to anonymous callers.
	status, _ = doJSON(t, srv, http.MethodGet, "/api/webhooks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWebhookCRUD(t *testing.T) {
	srv, db := newTestServer(t)
	_, adminID := signUpUser(t, srv, "admin@example.com")
	promoteToAdmin(t, db, adminID)

	// Re-sign-in so the token carries the admin role claim.
	status, body := doJSON(t, srv, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "admin@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status)
	adminToken := body["token"].(string)

	status, body = doJSON(t, srv, http.MethodPost, "/api/webhooks", adminToken, map[string]any{
		"name":        "Recurring Handler",
		"url":         "https://engine.example.com/recurring",
		"type":        "recurring",
		"description": "scheduled research",
		"active":      true,
	})
	require.Equal(t, http.StatusCreated, status)
	hookID := body["webhook"].(map[string]any)["id"].(string)

	status, body = doJSON(t, srv, http.MethodPut, "/api/webhooks/"+hookID, adminToken, map[string]any{
		"name":   "Renamed Handler",
		"url":    "https://engine.example.com/recurring-v2",
		"type":   "recurring",
		"active": false,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed Handler", body["webhook"].(map[string]any)["name"])
	assert.Equal(t, false, body["webhook"].(map[string]any)["active"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/webhooks", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["webhooks"].([]any), 1)

	status, _ = doJSON(t, srv, http.MethodDelete, "/api/webhooks/"+hookID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, srv, http.MethodDelete, "/api/webhooks/"+hookID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWebhookCreateValidation(t *testing.T) {
	srv, db := newTestServer(t)
	_, adminID := signUpUser(t, srv, "admin@example.com")
	promoteToAdmin(t, db, adminID)
	status, body := doJSON(t, srv, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "admin@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status)
	adminToken := body["token"].(string)

	status, body = doJSON(t, srv, http.MethodPost, "/api/webhooks", adminToken, map[string]any{
		"name": "Missing URL",
		"type": "scheduled",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["error"])
}
