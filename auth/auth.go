// Package auth provides password-based authentication for the market-intel
// dashboard: users and sessions in SQL, bcrypt password hashes, and
// JWT-based access tokens.
package auth

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/quantitva/market-intel/config"
	"github.com/quantitva/market-intel/errors"
)

// Roles. Admin unlocks webhook mutation endpoints; everything else is
// per-user data access.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered dashboard user
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	passwordHash string
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session represents an active login session
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Claims carried inside access tokens
type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// AuthResponse is returned after successful sign-in or sign-up
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds until the token expires
	User      *User  `json:"user"`
}

// Service handles authentication operations
type Service struct {
	store         *Store
	jwt           *JWTManager
	sessionExpiry time.Duration
	logger        *zap.SugaredLogger
}

// NewService creates an auth service from config.
func NewService(db *sql.DB, cfg config.AuthConfig, logger *zap.SugaredLogger) (*Service, error) {
	jwt, err := NewJWTManager(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize JWT manager")
	}

	sessionExpiry, err := time.ParseDuration(cfg.SessionExpiry)
	if err != nil {
		sessionExpiry = 30 * 24 * time.Hour
	}

	return &Service{
		store:         NewStore(db),
		jwt:           jwt,
		sessionExpiry: sessionExpiry,
		logger:        logger,
	}, nil
}

// Store returns the underlying user/session store.
func (s *Service) Store() *Store {
	return s.store
}

// JWT returns the token manager.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// SessionExpiry returns the configured server-side session lifetime.
func (s *Service) SessionExpiry() time.Duration {
	return s.sessionExpiry
}
