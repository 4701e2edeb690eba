// Package http provides HTTP middleware that gates requests on cached
// feature-access state. The gate is check-only: it never consumes quota, it
// reads the fail-closed predicates. Forcing a refresh after a completed
// reading stays the caller's responsibility.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// FeatureExtractor extracts the feature name from an HTTP request.
// Return empty string if no feature can be determined.
type FeatureExtractor func(r *http.Request) string

// Config holds middleware configuration.
type Config struct {
	// Service is the feature-access service instance (required).
	Service *featuregate.Service

	// GetFeature extracts the feature name from the request (required).
	GetFeature FeatureExtractor

	// DeniedStatusCode is returned when the feature is not available on the
	// current package. Default: 402 Payment Required.
	DeniedStatusCode int

	// LimitStatusCode is returned when the daily limit is reached.
	// Default: 429 Too Many Requests.
	LimitStatusCode int

	// OnDenied is called when the feature is not available on the current
	// package. If nil, a JSON error with DeniedStatusCode is written.
	OnDenied func(w http.ResponseWriter, r *http.Request, p featuregate.Permission)

	// OnLimitReached is called when the daily limit is reached.
	// If nil, a JSON error with LimitStatusCode is written.
	OnLimitReached func(w http.ResponseWriter, r *http.Request, p featuregate.Permission)

	// OnError is called when no feature name can be extracted.
	// If nil, returns 400 Bad Request.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware creates an HTTP middleware that gates requests on feature
// access. A stale snapshot triggers a TTL-governed refetch; while quota state
// is unknown the gate denies, it never fails open.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.Service == nil {
		panic("featuregate/http: Config.Service is required")
	}
	if cfg.GetFeature == nil {
		panic("featuregate/http: Config.GetFeature is required")
	}
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = http.StatusPaymentRequired
	}
	if cfg.LimitStatusCode == 0 {
		cfg.LimitStatusCode = http.StatusTooManyRequests
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			feature := cfg.GetFeature(r)
			if feature == "" {
				if cfg.OnError != nil {
					cfg.OnError(w, r, featuregate.ErrInvalidFeature)
				} else {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "feature not specified"})
				}
				return
			}

			// Best effort: a failed refresh leaves the previous snapshot in
			// place and the predicates fail closed on an empty cache.
			_ = cfg.Service.FetchFeatureAccess(r.Context(), false)

			p := cfg.Service.Permission(feature)
			if !p.Allowed {
				if cfg.OnDenied != nil {
					cfg.OnDenied(w, r, p)
				} else {
					writeJSON(w, cfg.DeniedStatusCode, map[string]interface{}{
						"error":   "feature not available",
						"feature": string(p.Feature),
					})
				}
				return
			}
			if p.ReachedLimit {
				if cfg.OnLimitReached != nil {
					cfg.OnLimitReached(w, r, p)
				} else {
					writeJSON(w, cfg.LimitStatusCode, map[string]interface{}{
						"error":       "daily limit reached",
						"feature":     string(p.Feature),
						"daily_limit": p.DailyLimit,
						"used_today":  p.UsedToday,
					})
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc creates the same gate for http.HandlerFunc chains.
func HandlerFunc(cfg Config) func(http.HandlerFunc) http.HandlerFunc {
	middleware := Middleware(cfg)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			middleware(next).ServeHTTP(w, r)
		}
	}
}

// Common extractors for convenience

// FixedFeature returns a FeatureExtractor that always returns a fixed feature.
func FixedFeature(feature string) FeatureExtractor {
	return func(*http.Request) string {
		return feature
	}
}

// FromHeader returns a FeatureExtractor that reads a header.
func FromHeader(headerName string) FeatureExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromQuery returns a FeatureExtractor that reads a query parameter.
func FromQuery(param string) FeatureExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

// FromPathValue returns a FeatureExtractor that reads a path wildcard
// registered with the Go 1.22 ServeMux patterns.
func FromPathValue(name string) FeatureExtractor {
	return func(r *http.Request) string {
		return r.PathValue(name)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
