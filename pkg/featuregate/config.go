package featuregate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAccessTTL      = 5 * time.Minute
	defaultStatsTTL       = 2 * time.Minute
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
)

// TokenSource supplies the authentication token sent as the x-auth-token
// header. Token storage is a black box to this package; it is read, never
// written or refreshed here.
type TokenSource interface {
	// Token returns the current auth token. An empty token (or an error)
	// fails the fetch before any network call is attempted.
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed token string.
type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Clock abstracts time for deterministic TTL behavior in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Config holds Service configuration.
type Config struct {
	// BaseURL is the API base URL, e.g. "https://api.portalparaiso.app" (required).
	BaseURL string

	// Tokens supplies the auth token for every request (required).
	Tokens TokenSource

	// HTTPClient is an optional HTTP client. If nil, a default client is
	// used; per-attempt deadlines come from RequestTimeout either way.
	HTTPClient *http.Client

	// AccessTTL is how long a feature-access snapshot stays fresh (default: 5 minutes).
	AccessTTL time.Duration

	// StatsTTL is how long a usage-stats snapshot stays fresh (default: 2 minutes).
	StatsTTL time.Duration

	// RetryAttempts is the total number of attempts per fetch (default: 3).
	RetryAttempts int

	// RetryBaseDelay scales the linear backoff between attempts: the wait
	// after attempt n is n*RetryBaseDelay (default: 500ms).
	RetryBaseDelay time.Duration

	// RequestTimeout bounds each individual HTTP attempt so a hung request
	// cannot stall the refresh path (default: 10 seconds).
	RequestTimeout time.Duration

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger

	// Metrics tracks fetch and gating operations (default: NoopMetrics).
	Metrics Metrics

	// Clock supplies the current time for TTL checks (default: SystemClock).
	Clock Clock

	// Snapshots optionally persists the latest snapshots so a restarted
	// process warm-starts with stale-but-available data. Store failures are
	// logged and never fatal.
	Snapshots SnapshotStore
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}
	if c.Tokens == nil {
		return fmt.Errorf("%w: Tokens is required", ErrInvalidConfig)
	}
	return nil
}

// withDefaults returns a copy of the config with optional fields defaulted.
func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = defaultStatsTTL
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = &NoopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = &NoopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	return c
}
