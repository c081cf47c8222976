// Package config loads and represents the market-intel service configuration.
package config

// Config represents the core market-intel configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig configures sessions and token signing
type AuthConfig struct {
	// JWTSecret signs access tokens. Empty = auto-generated at startup
	// (sessions do not survive restarts in that case).
	JWTSecret string `mapstructure:"jwt_secret"`

	// TokenExpiry is the access token lifetime (Go duration string)
	TokenExpiry string `mapstructure:"token_expiry"`

	// SessionExpiry is the server-side session lifetime (Go duration string)
	SessionExpiry string `mapstructure:"session_expiry"`
}

// RelayConfig configures outbound webhook relay behavior
type RelayConfig struct {
	// TimeoutSeconds bounds each outbound webhook call
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// RequestsPerSecond rate-limits outbound relay calls across the process
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Burst is the relay rate limiter burst size
	Burst int `mapstructure:"burst"`

	// AllowPrivateHosts disables the private-IP guard on relay targets.
	// Intended for local automation engines and tests only.
	AllowPrivateHosts bool `mapstructure:"allow_private_hosts"`
}

// DefaultServerPort is used when no port is configured
const DefaultServerPort = 8080
