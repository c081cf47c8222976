package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/quantitva/market-intel/errors"
)

// MinPasswordLength is enforced at sign-up and password reset.
const MinPasswordLength = 8

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", errors.Wrapf(errors.ErrValidation, "password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash.
// A mismatch returns ErrUnauthorized; callers never learn which of email
// or password was wrong.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errors.Wrap(errors.ErrUnauthorized, "invalid credentials")
	}
	return nil
}
