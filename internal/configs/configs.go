/*
Package configs loads the token server's configuration.

Values come from the process environment, optionally seeded from the nearest .env
file. The signing key id and secret are mandatory in every environment; a missing one
is a startup error and the server never begins serving.
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// ErrConfiguration is wrapped by every error LoadConfig returns.
var ErrConfiguration = errors.New("configuration error")

const (
	minPort = 1024
	maxPort = 65535
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment    string
	Port           int
	ServiceName    string
	ServiceVersion string
	LogLevel       string

	// Signing Settings
	APIKey             string
	APISecret          string
	APISecretKeeperURI string
	TokenTTL           time.Duration

	// RoomServiceURL is echoed to clients as the realtime endpoint to connect to.
	RoomServiceURL string

	// Security Settings
	AllowedOrigins       []string
	TokenRateLimitPerSec float64
	TokenRateLimitBurst  int
	PowDifficulty        int

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP. Enable it
	// only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Metrics Settings
	MetricsEnabled   bool
	MetricsPort      int
	MetricsNamespace string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads .env (when present) and the environment into an AppConfig and
// validates it.
func LoadConfig() (*AppConfig, error) {
	loadDotEnv()

	cfg := &AppConfig{
		Environment:    env.GetString("ENVIRONMENT", "development"),
		Port:           env.GetInt("TOKEN_SERVER_PORT", 8001),
		ServiceName:    env.GetString("SERVICE_NAME", "Room Token Server"),
		ServiceVersion: env.GetString("SERVICE_VERSION", "1.0.0"),
		LogLevel:       env.GetString("LOG_LEVEL", ""),

		APIKey:             strings.TrimSpace(env.GetString("API_KEY", "")),
		APISecret:          strings.TrimSpace(env.GetString("API_SECRET", "")),
		APISecretKeeperURI: env.GetString("API_SECRET_KEEPER_URI", ""),
		TokenTTL:           env.GetDuration("TOKEN_EXPIRY_HOURS", 24, time.Hour),

		RoomServiceURL: env.GetString("ROOM_SERVICE_URL", ""),

		TokenRateLimitPerSec: env.GetFloat64("RATE_LIMIT_TOKEN_REQUESTS_PER_SEC", 1.0),
		TokenRateLimitBurst:  env.GetInt("RATE_LIMIT_TOKEN_BURST", 10),
		PowDifficulty:        env.GetInt("POW_DIFFICULTY", 0),
		TrustProxyHeaders:    env.GetBool("TRUST_PROXY_HEADERS", false),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", false),
		MetricsPort:      env.GetInt("METRICS_PORT", 9091),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "roomtoken"),
	}

	cfg.AllowedOrigins = ParseOrigins(env.GetString("CORS_ORIGINS", ""))
	if len(cfg.AllowedOrigins) == 0 && cfg.IsDevelopment() {
		cfg.AllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("%w: API_KEY and API_SECRET must be set", ErrConfiguration)
	}

	if c.Port < minPort || c.Port > maxPort {
		return fmt.Errorf("%w: port number %d is outside the allowed range (%d-%d)", ErrConfiguration, c.Port, minPort, maxPort)
	}

	if c.MetricsEnabled {
		if c.MetricsPort < minPort || c.MetricsPort > maxPort {
			return fmt.Errorf("%w: metrics port number %d is outside the allowed range (%d-%d)", ErrConfiguration, c.MetricsPort, minPort, maxPort)
		}
		if c.MetricsPort == c.Port {
			return fmt.Errorf("%w: METRICS_PORT must differ from TOKEN_SERVER_PORT", ErrConfiguration)
		}
	}

	if c.TokenTTL < time.Hour {
		return fmt.Errorf("%w: TOKEN_EXPIRY_HOURS must be at least 1", ErrConfiguration)
	}

	if c.TokenRateLimitPerSec <= 0 || c.TokenRateLimitBurst <= 0 {
		return fmt.Errorf("%w: token rate limit must be positive", ErrConfiguration)
	}

	if c.PowDifficulty < 0 || c.PowDifficulty > 8 {
		return fmt.Errorf("%w: POW_DIFFICULTY must be between 0 and 8", ErrConfiguration)
	}

	return nil
}

// ParseOrigins splits a comma-separated origin list, dropping blanks.
func ParseOrigins(s string) []string {
	var origins []string
	for _, origin := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// loadDotEnv loads the first .env found walking up from the working directory.
// Variables already present in the environment win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
