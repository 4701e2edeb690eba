package featuregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	pathFeatureAccess = "/user/feature-access"
	pathUsageStats    = "/user/usage-stats"

	headerAuthToken = "x-auth-token"
)

// envelope is the standard API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// apiClient performs the authenticated GETs against the feature-access API.
// Each call runs the full retry loop; only the final error is surfaced.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource

	attempts  int
	baseDelay time.Duration
	timeout   time.Duration

	logger  Logger
	metrics Metrics
}

func newAPIClient(cfg Config) *apiClient {
	return &apiClient{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		tokens:     cfg.Tokens,
		attempts:   cfg.RetryAttempts,
		baseDelay:  cfg.RetryBaseDelay,
		timeout:    cfg.RequestTimeout,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// FetchFeatureAccess retrieves the quota snapshot. Missing per-feature keys
// are filled from the fallback table so the returned snapshot always covers
// every known feature.
func (c *apiClient) FetchFeatureAccess(ctx context.Context) (*FeatureAccess, error) {
	var snap FeatureAccess
	if err := c.getJSON(ctx, "feature_access", pathFeatureAccess, &snap); err != nil {
		return nil, err
	}
	applyQuotaDefaults(&snap)
	return &snap, nil
}

// FetchUsageStats retrieves the cumulative usage counters. Missing numeric
// fields decode to zero and missing timestamps to nil.
func (c *apiClient) FetchUsageStats(ctx context.Context) (*UsageStats, error) {
	var stats UsageStats
	if err := c.getJSON(ctx, "usage_stats", pathUsageStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// getJSON performs an authenticated GET with the retry policy: up to
// c.attempts total attempts, waiting attempt*baseDelay between them.
// A missing token is a precondition failure and is never retried.
func (c *apiClient) getJSON(ctx context.Context, kind, path string, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}
	if token == "" {
		return ErrTokenMissing
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			c.metrics.RecordRetry(kind, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.baseDelay):
			}
		}

		if err := c.doOnce(ctx, token, path, out); err != nil {
			lastErr = err
			c.logger.Debug("fetch attempt failed",
				Field{Key: "kind", Value: kind},
				Field{Key: "attempt", Value: attempt},
				Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		return nil
	}
	return lastErr
}

// doOnce performs a single attempt under its own deadline.
func (c *apiClient) doOnce(ctx context.Context, token, path string, out interface{}) error {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAuthToken, token)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Message: extractErrorMessage(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !env.Success || len(env.Data) == 0 {
		if msg := firstNonEmpty(env.Error, env.Message); msg != "" {
			return fmt.Errorf("%w: %s", ErrInvalidResponse, msg)
		}
		return ErrInvalidResponse
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// extractErrorMessage pulls a human-readable message out of an error body,
// preferring the envelope's error field, then its message, then nothing
// (the APIError falls back to the status code).
func extractErrorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return firstNonEmpty(env.Error, env.Message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
