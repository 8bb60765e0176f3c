package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration for the wallet core
type Config struct {
	// Wallet backend configuration
	APIBaseURL     string
	RequestTimeout time.Duration

	// Rate provider configuration
	RateAPIURL          string
	RateRefreshInterval time.Duration

	// How often the watch daemon re-syncs wallet state from the backend
	WalletRefreshInterval time.Duration

	// Network the address validator is scoped to (mainnet or testnet).
	// This is an explicit input and never inferred from addresses.
	Network string

	// Keystore configuration
	KeystorePath string

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:   getEnv("API_BASE_URL", ""),
		RateAPIURL:   getEnv("RATE_API_URL", "https://api.coingecko.com/api/v3"),
		Network:      getEnv("NETWORK", "mainnet"),
		KeystorePath: getEnv("KEYSTORE_PATH", defaultKeystorePath()),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		MetricsPort:  getEnv("METRICS_PORT", "9100"),
	}

	var err error
	cfg.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg.RateRefreshInterval, err = parseDurationEnv("RATE_REFRESH_INTERVAL", 60*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_REFRESH_INTERVAL: %w", err)
	}

	cfg.WalletRefreshInterval, err = parseDurationEnv("WALLET_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid WALLET_REFRESH_INTERVAL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	if c.Network != "mainnet" && c.Network != "testnet" {
		return fmt.Errorf("invalid NETWORK: %s (must be mainnet or testnet)", c.Network)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.RateRefreshInterval < time.Second {
		return fmt.Errorf("RATE_REFRESH_INTERVAL must be at least 1s")
	}

	if c.WalletRefreshInterval < time.Second {
		return fmt.Errorf("WALLET_REFRESH_INTERVAL must be at least 1s")
	}

	if c.KeystorePath == "" {
		return fmt.Errorf("KEYSTORE_PATH is required")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// defaultKeystorePath places the token store under the user's home
// directory, falling back to the working directory when home is unknown.
func defaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bumpcore-keystore.db"
	}
	return filepath.Join(home, ".bumpcore", "keystore.db")
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv parses a duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}
