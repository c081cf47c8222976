package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantitva/market-intel/errors"
)

// Store handles persistence of users, sessions, and reset tokens
type Store struct {
	db *sql.DB
}

// NewStore creates a new auth store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a new user. A duplicate email returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
		passwordHash: passwordHash,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, passwordHash, nullable(user.Name), user.Role,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(errors.ErrConflict, "email %s already registered", email)
		}
		return nil, errors.Wrap(err, "failed to create user")
	}
	return user, nil
}

// GetUserByEmail finds a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

// GetUserByID finds a user by internal id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*User, error) {
	user := &User{}
	var name sql.NullString
	var createdAt, updatedAt string
	var lastLogin sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at, updated_at, last_login_at
		 FROM users `+where, arg,
	).Scan(&user.ID, &user.Email, &user.passwordHash, &name, &user.Role,
		&createdAt, &updatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(errors.ErrNotFound, "user not found")
		}
		return nil, errors.Wrap(err, "failed to get user")
	}

	user.Name = name.String
	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrap(err, "invalid created_at")
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrap(err, "invalid updated_at")
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return nil, errors.Wrap(err, "invalid last_login_at")
		}
		user.LastLoginAt = &t
	}
	return user, nil
}

// PasswordHash returns the stored hash for credential checks.
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// TouchLastLogin stamps the user's last login time.
func (s *Store) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return errors.Wrap(err, "failed to update last login")
	}
	return nil
}

// UpdateUser rewrites a user's name and email.
func (s *Store) UpdateUser(ctx context.Context, userID, email, name string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, updated_at = ? WHERE id = ?`,
		email, nullable(name), time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errors.ErrConflict, "email %s already registered", email)
		}
		return errors.Wrap(err, "failed to update user")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if affected == 0 {
		return errors.Wrap(errors.ErrNotFound, "user not found")
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return errors.Wrap(err, "failed to update password")
	}
	return nil
}

// CreateSession creates a new session for a user.
func (s *Store) CreateSession(ctx context.Context, userID string, expiresAt time.Time) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID,
		now.Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return session, nil
}

// GetSession retrieves a session by id. Returns (nil, nil) if absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	session := &Session{}
	var createdAt, expiresAt string
	var lastActive, revoked sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, last_active_at, revoked_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.UserID, &createdAt, &expiresAt, &lastActive, &revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get session")
	}

	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrap(err, "invalid created_at")
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, errors.Wrap(err, "invalid expires_at")
	}
	if lastActive.Valid {
		t, err := time.Parse(time.RFC3339, lastActive.String)
		if err != nil {
			return nil, errors.Wrap(err, "invalid last_active_at")
		}
		session.LastActiveAt = &t
	}
	if revoked.Valid {
		t, err := time.Parse(time.RFC3339, revoked.String)
		if err != nil {
			return nil, errors.Wrap(err, "invalid revoked_at")
		}
		session.RevokedAt = &t
	}
	return session, nil
}

// UpdateSessionActivity updates the last active time for a session
func (s *Store) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_active_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), sessionID)
	if err != nil {
		return errors.Wrap(err, "failed to update session activity")
	}
	return nil
}

// RevokeSession marks a session as revoked
func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), sessionID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke session")
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup expired sessions")
	}
	return result.RowsAffected()
}

// CreatePasswordReset issues a single-use reset token.
func (s *Store) CreatePasswordReset(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token, err := generateResetToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		token, userID, now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339))
	if err != nil {
		return "", errors.Wrap(err, "failed to create password reset")
	}
	return token, nil
}

// ConsumePasswordReset validates a reset token and marks it used, returning
// the user id it was issued for. Expired, unknown, and already-used tokens
// all return ErrUnauthorized.
func (s *Store) ConsumePasswordReset(ctx context.Context, token string) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM password_resets
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?`,
		token, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrap(errors.ErrUnauthorized, "invalid or expired reset token")
		}
		return "", errors.Wrap(err, "failed to look up reset token")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE token = ?`, now, token)
	if err != nil {
		return "", errors.Wrap(err, "failed to consume reset token")
	}
	return userID, nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate reset token")
	}
	return hex.EncodeToString(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation detects sqlite unique constraint failures without
// importing the driver's error types everywhere.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
