package authclient

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config defines the Manager's tunables. Zero values are filled with
// defaults by [New]; a Config passed through [Builder.WithConfig] is
// validated as-is by Build.
type Config struct {
	API      APIConfig
	Poll     PollConfig
	Snapshot SnapshotConfig
	Events   EventConfig
	Metrics  MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote authentication API.
type APIConfig struct {
	// BaseURL is the scheme://host[:port] of the API, without the
	// /api/auth prefix. Required.
	BaseURL string

	// RequestTimeout bounds each remote call. A timeout is a transient
	// failure, never an implicit logout.
	RequestTimeout time.Duration
}

/*
====================================
POLL CONFIG
====================================
*/

// PollConfig controls the two background protocols. Both pollers run only
// while a user is present and are cancelled together on logout,
// invalidation, and Close.
type PollConfig struct {
	// VerifyInterval is the cadence of the session liveness check.
	VerifyInterval time.Duration

	// RefreshInterval is the cadence of the silent credential refresh.
	// It is deliberately shorter than the server's token lifetime so the
	// credential rotates before expiry.
	RefreshInterval time.Duration

	// ClampToTokenExpiry shortens the effective refresh delay when the
	// held bearer token expires sooner than RefreshInterval.
	ClampToTokenExpiry bool

	// MinRefreshInterval floors the clamped refresh delay.
	MinRefreshInterval time.Duration
}

// SnapshotConfig controls the persisted restart cache.
type SnapshotConfig struct {
	// Key is the fixed storage key. Empty means snapshot.DefaultKey.
	Key string
}

// EventConfig controls the session event dispatcher.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration [New] starts from: 30s request
// timeout, 60s liveness cadence, 14m30s refresh cadence with expiry
// clamping, events and metrics disabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			RequestTimeout: 30 * time.Second,
		},
		Poll: PollConfig{
			VerifyInterval:     60 * time.Second,
			RefreshInterval:    14*time.Minute + 30*time.Second,
			ClampToTokenExpiry: true,
			MinRefreshInterval: 30 * time.Second,
		},
		Events: EventConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API.BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API.BaseURL %q is not a valid http(s) URL", c.API.BaseURL)
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("API.RequestTimeout must be positive")
	}
	if c.Poll.VerifyInterval <= 0 {
		return errors.New("Poll.VerifyInterval must be positive")
	}
	if c.Poll.RefreshInterval <= 0 {
		return errors.New("Poll.RefreshInterval must be positive")
	}
	if c.Poll.ClampToTokenExpiry && c.Poll.MinRefreshInterval <= 0 {
		return errors.New("Poll.MinRefreshInterval must be positive when clamping is enabled")
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events.BufferSize must be positive when events are enabled")
	}
	return nil
}

/*
====================================
ENV CONFIG
====================================
*/

// ConfigFromEnv loads a Config from environment variables, reading an
// optional .env file first. Unset variables keep their defaults.
//
//	AUTHCLIENT_API_BASE_URL      APIConfig.BaseURL
//	AUTHCLIENT_REQUEST_TIMEOUT   APIConfig.RequestTimeout (Go duration)
//	AUTHCLIENT_VERIFY_INTERVAL   PollConfig.VerifyInterval (Go duration)
//	AUTHCLIENT_REFRESH_INTERVAL  PollConfig.RefreshInterval (Go duration)
//	AUTHCLIENT_SNAPSHOT_KEY      SnapshotConfig.Key
func ConfigFromEnv() Config {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.API.BaseURL = getEnv("AUTHCLIENT_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.RequestTimeout = getEnvDuration("AUTHCLIENT_REQUEST_TIMEOUT", cfg.API.RequestTimeout)
	cfg.Poll.VerifyInterval = getEnvDuration("AUTHCLIENT_VERIFY_INTERVAL", cfg.Poll.VerifyInterval)
	cfg.Poll.RefreshInterval = getEnvDuration("AUTHCLIENT_REFRESH_INTERVAL", cfg.Poll.RefreshInterval)
	cfg.Snapshot.Key = getEnv("AUTHCLIENT_SNAPSHOT_KEY", cfg.Snapshot.Key)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
