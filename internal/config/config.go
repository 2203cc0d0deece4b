// Package config provides the configuration surface for the authorizer.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Environment variable names recognized by Load.
const (
	EnvRegion      = "AUTHGATE_REGION"
	EnvUserPoolID  = "AUTHGATE_USER_POOL_ID"
	EnvAudience    = "AUTHGATE_AUDIENCE"
	EnvAdminGroup  = "AUTHGATE_ADMIN_GROUP"
	EnvListenAddr  = "AUTHGATE_LISTEN_ADDR"
	EnvLogLevel    = "AUTHGATE_LOG_LEVEL"
	EnvLogFormat   = "AUTHGATE_LOG_FORMAT"
	EnvFetchTimout = "AUTHGATE_KEY_FETCH_TIMEOUT"
)

// Config holds the authorizer configuration.
type Config struct {
	// Identity holds identity provider settings.
	Identity IdentityConfig `yaml:"identity"`

	// Server holds HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log"`
}

// IdentityConfig holds settings for the trusted identity provider.
type IdentityConfig struct {
	// Region is the identity provider region.
	Region string `yaml:"region"`

	// UserPoolID identifies the trusted user pool within the provider.
	UserPoolID string `yaml:"userPoolId"`

	// Audience is the client ID tokens must be issued for.
	Audience string `yaml:"audience"`

	// AdminGroup is the group membership that grants blanket allow.
	AdminGroup string `yaml:"adminGroup"`

	// KeyFetchTimeout bounds the key set fetch. Defaults to 10s.
	KeyFetchTimeout time.Duration `yaml:"keyFetchTimeout,omitempty"`

	// ClockSkew is the allowed clock skew for expiry checks. Defaults to 1m.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the address the server listens on.
	ListenAddr string `yaml:"listenAddr"`

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration `yaml:"readTimeout,omitempty"`

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with default values for optional fields.
func Default() *Config {
	return &Config{
		Identity: IdentityConfig{
			KeyFetchTimeout: 10 * time.Second,
			ClockSkew:       time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:   ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from environment variables, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := Default()

	cfg.Identity.Region = os.Getenv(EnvRegion)
	cfg.Identity.UserPoolID = os.Getenv(EnvUserPoolID)
	cfg.Identity.Audience = os.Getenv(EnvAudience)
	cfg.Identity.AdminGroup = os.Getenv(EnvAdminGroup)

	if addr := os.Getenv(EnvListenAddr); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		cfg.Log.Format = format
	}
	if raw := os.Getenv(EnvFetchTimout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvFetchTimout, err)
		}
		cfg.Identity.KeyFetchTimeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Identity.Region == "" {
		return errors.New("identity region is required")
	}
	if c.Identity.UserPoolID == "" {
		return errors.New("identity user pool ID is required")
	}
	if c.Identity.Audience == "" {
		return errors.New("identity audience is required")
	}
	if c.Identity.AdminGroup == "" {
		return errors.New("identity admin group is required")
	}
	if c.Identity.KeyFetchTimeout <= 0 {
		return errors.New("key fetch timeout must be positive")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server listen address is required")
	}
	return nil
}

// Issuer returns the issuer URL for the configured user pool.
func (c *IdentityConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// KeySetURL returns the well-known key set endpoint for the issuer.
func (c *IdentityConfig) KeySetURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}
