// Package echo provides Echo middleware that gates requests on cached
// feature-access state. Check-only: the gate never consumes quota.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// FeatureExtractor extracts the feature name from an Echo context.
// Return empty string if no feature can be determined.
type FeatureExtractor func(c echo.Context) string

// Config holds middleware configuration.
type Config struct {
	// Service is the feature-access service instance (required).
	Service *featuregate.Service

	// GetFeature extracts the feature name from the context (required).
	GetFeature FeatureExtractor

	// DeniedStatusCode is returned when the feature is not available on the
	// current package. Default: 402 Payment Required.
	DeniedStatusCode int

	// LimitStatusCode is returned when the daily limit is reached.
	// Default: 429 Too Many Requests.
	LimitStatusCode int

	// OnDenied is called when the feature is not available.
	// If nil, responds with a JSON error and DeniedStatusCode.
	OnDenied func(c echo.Context, p featuregate.Permission) error

	// OnLimitReached is called when the daily limit is reached.
	// If nil, responds with a JSON error and LimitStatusCode.
	OnLimitReached func(c echo.Context, p featuregate.Permission) error
}

// Middleware creates an Echo middleware that gates requests on feature access.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Service == nil {
		panic("featuregate/echo: Config.Service is required")
	}
	if cfg.GetFeature == nil {
		panic("featuregate/echo: Config.GetFeature is required")
	}
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = http.StatusPaymentRequired
	}
	if cfg.LimitStatusCode == 0 {
		cfg.LimitStatusCode = http.StatusTooManyRequests
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			feature := cfg.GetFeature(c)
			if feature == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "feature not specified"})
			}

			_ = cfg.Service.FetchFeatureAccess(c.Request().Context(), false)

			p := cfg.Service.Permission(feature)
			if !p.Allowed {
				if cfg.OnDenied != nil {
					return cfg.OnDenied(c, p)
				}
				return c.JSON(cfg.DeniedStatusCode, map[string]interface{}{
					"error":   "feature not available",
					"feature": string(p.Feature),
				})
			}
			if p.ReachedLimit {
				if cfg.OnLimitReached != nil {
					return cfg.OnLimitReached(c, p)
				}
				return c.JSON(cfg.LimitStatusCode, map[string]interface{}{
					"error":       "daily limit reached",
					"feature":     string(p.Feature),
					"daily_limit": p.DailyLimit,
					"used_today":  p.UsedToday,
				})
			}

			return next(c)
		}
	}
}

// FromParam returns a FeatureExtractor that reads a route parameter.
func FromParam(name string) FeatureExtractor {
	return func(c echo.Context) string {
		return c.Param(name)
	}
}

// FromHeader returns a FeatureExtractor that reads a header.
func FromHeader(headerName string) FeatureExtractor {
	return func(c echo.Context) string {
		return c.Request().Header.Get(headerName)
	}
}

// FixedFeature returns a FeatureExtractor that always returns a fixed feature.
func FixedFeature(feature string) FeatureExtractor {
	return func(echo.Context) string {
		return feature
	}
}
