package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/quantitva/market-intel/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the market-intel configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// Environment variable binding: MARKETINTEL_SERVER_PORT, etc.
	v.SetEnvPrefix("MARKETINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	v.SetConfigName("market-intel")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/market-intel")
	_ = v.ReadInConfig()

	viperInstance = v
	return viperInstance
}

// SetDefaults applies default values to a Viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "market-intel.db")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.token_expiry", "15m")
	v.SetDefault("auth.session_expiry", "720h")
	v.SetDefault("relay.timeout_seconds", 60)
	v.SetDefault("relay.requests_per_second", 2.0)
	v.SetDefault("relay.burst", 4)
	v.SetDefault("relay.allow_private_hosts", false)
}
