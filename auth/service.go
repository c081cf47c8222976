package auth

import (
	"context"
	"strings"
	"time"

	"github.com/quantitva/market-intel/errors"
)

// ResetTokenTTL bounds how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

// SignUp registers a user and opens their first session.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.Wrap(errors.ErrValidation, "email is required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, email, hash, name)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("user registered", "user_id", user.ID, "email", user.Email)
	return s.openSession(ctx, user)
}

// SignIn checks credentials and opens a session. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash(), password); err != nil {
		return nil, err
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warnw("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	return s.openSession(ctx, user)
}

// SignOut revokes the session behind the given claims.
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	return s.store.RevokeSession(ctx, claims.SessionID)
}

// CurrentUser loads the user behind validated claims.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*User, error) {
	return s.store.GetUserByID(ctx, claims.UserID)
}

// UpdateUser changes the caller's profile fields. Email changes take
// effect on the next issued token; outstanding tokens keep the old claim.
func (s *Service) UpdateUser(ctx context.Context, claims *Claims, email, name string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.Wrap(errors.ErrValidation, "email is required")
	}
	if err := s.store.UpdateUser(ctx, claims.UserID, email, name); err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, claims.UserID)
}

// RequestPasswordReset issues a reset token for the account, if it exists.
// The token is returned to the caller's email pipeline, never to the HTTP
// client; unknown emails report success to avoid account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return s.store.CreatePasswordReset(ctx, user.ID, ResetTokenTTL)
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	userID, err := s.store.ConsumePasswordReset(ctx, token)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Infow("password reset", "user_id", userID)
	return nil
}

func (s *Service) openSession(ctx context.Context, user *User) (*AuthResponse, error) {
	session, err := s.store.CreateSession(ctx, user.ID, time.Now().Add(s.sessionExpiry))
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(&Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}

	return &AuthResponse{
		Token:     token,
		ExpiresIn: int(s.jwt.TokenExpiry().Seconds()),
		User:      user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
