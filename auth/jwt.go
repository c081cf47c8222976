package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quantitva/market-intel/config"
	"github.com/quantitva/market-intel/errors"
)

// JWTClaims extends standard JWT claims with market-intel fields
type JWTClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// JWTManager handles access token creation and validation
type JWTManager struct {
	secret      []byte
	tokenExpiry time.Duration
}

// NewJWTManager creates a token manager from config. An empty secret is
// auto-generated, which invalidates outstanding tokens on restart.
func NewJWTManager(cfg config.AuthConfig) (*JWTManager, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := generateSecureSecret(32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate JWT secret")
		}
		secret = generated
	}

	tokenExpiry, err := time.ParseDuration(cfg.TokenExpiry)
	if err != nil {
		tokenExpiry = 15 * time.Minute
	}

	return &JWTManager{
		secret:      []byte(secret),
		tokenExpiry: tokenExpiry,
	}, nil
}

// GenerateToken creates a new access token for the given claims
func (m *JWTManager) GenerateToken(claims *Claims) (string, error) {
	now := time.Now()
	jwtClaims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "market-intel",
		},
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates an access token, returning the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return &Claims{
			UserID:    claims.UserID,
			Email:     claims.Email,
			Role:      claims.Role,
			SessionID: claims.SessionID,
		}, nil
	}

	return nil, errors.New("invalid token claims")
}

// TokenExpiry returns the configured access token lifetime
func (m *JWTManager) TokenExpiry() time.Duration {
	return m.tokenExpiry
}

// generateSecureSecret generates a cryptographically secure random hex string
func generateSecureSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}
	return hex.EncodeToString(b), nil
}
