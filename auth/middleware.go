package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// UserContextKey is the context key for the authenticated user claims
const UserContextKey contextKey = "auth_user"

// Middleware provides HTTP authentication middleware
type Middleware struct {
	service *Service
	logger  *zap.SugaredLogger

	// Activity update debouncing
	activityMu     sync.Mutex
	lastActivity   map[string]time.Time
	activityWindow time.Duration
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(service *Service, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{
		service:        service,
		logger:         logger,
		lastActivity:   make(map[string]time.Time),
		activityWindow: 5 * time.Minute,
	}
}

// RequireAuth requires a valid access token backed by a live session.
// unauthorizedFn writes the 401 response so the server package controls
// the error envelope.
func (m *Middleware) RequireAuth(next http.HandlerFunc, unauthorizedFn func(http.ResponseWriter, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			unauthorizedFn(w, "missing token")
			return
		}

		claims, err := m.service.jwt.ValidateToken(token)
		if err != nil {
			m.logger.Debugw("Token validation failed", "error", err)
			unauthorizedFn(w, "invalid token")
			return
		}

		session, err := m.service.store.GetSession(r.Context(), claims.SessionID)
		if err != nil {
			m.logger.Warnw("Failed to get session", "session_id", claims.SessionID, "error", err)
			unauthorizedFn(w, "session error")
			return
		}
		if session == nil {
			unauthorizedFn(w, "session not found")
			return
		}
		if session.RevokedAt != nil {
			unauthorizedFn(w, "session revoked")
			return
		}
		if time.Now().After(session.ExpiresAt) {
			unauthorizedFn(w, "session expired")
			return
		}

		m.touchSession(claims.SessionID)

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin wraps RequireAuth and additionally requires the admin role.
// forbiddenFn writes the 403 response.
func (m *Middleware) RequireAdmin(next http.HandlerFunc, unauthorizedFn func(http.ResponseWriter, string), forbiddenFn func(http.ResponseWriter, string)) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := UserFromContext(r.Context())
		if claims == nil || claims.Role != RoleAdmin {
			forbiddenFn(w, "admin access required")
			return
		}
		next(w, r)
	}, unauthorizedFn)
}

// touchSession updates session activity with debouncing
func (m *Middleware) touchSession(sessionID string) {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()

	lastUpdate, ok := m.lastActivity[sessionID]
	if ok && time.Since(lastUpdate) < m.activityWindow {
		return
	}
	m.lastActivity[sessionID] = time.Now()

	// Update in background to not block the request
	go func() {
		if err := m.service.store.UpdateSessionActivity(context.Background(), sessionID); err != nil {
			m.logger.Warnw("Failed to update session activity", "session_id", sessionID, "error", err)
		}
	}()
}

// extractToken extracts the access token from the Authorization header
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return auth
}

// UserFromContext extracts authenticated user claims from request context
func UserFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(UserContextKey).(*Claims)
	return claims
}

// IsAuthenticated checks if the request has valid authentication
func IsAuthenticated(ctx context.Context) bool {
	return UserFromContext(ctx) != nil
}
