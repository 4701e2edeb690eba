// Package gin provides Gin middleware that gates requests on cached
// feature-access state. Check-only: the gate never consumes quota.
package gin

import (
	"net/http"

	gongin "github.com/gin-gonic/gin"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// FeatureExtractor extracts the feature name from a Gin context.
// Return empty string if no feature can be determined.
type FeatureExtractor func(c *gongin.Context) string

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
	// If nil, aborts with a JSON error and DeniedStatusCode.
	OnDenied func(c *gongin.Context, p featuregate.Permission)

	// OnLimitReached is called when the daily limit is reached.
	// If nil, aborts with a JSON error and LimitStatusCode.
	OnLimitReached func(c *gongin.Context, p featuregate.Permission)
}

// Middleware creates a Gin middleware that gates requests on feature access.
func Middleware(cfg Config) gongin.HandlerFunc {
	if cfg.Service == nil {
		panic("featuregate/gin: Config.Service is required")
	}
	if cfg.GetFeature == nil {
		panic("featuregate/gin: Config.GetFeature is required")
	}
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = http.StatusPaymentRequired
	}
	if cfg.LimitStatusCode == 0 {
		cfg.LimitStatusCode = http.StatusTooManyRequests
	}

	return func(c *gongin.Context) {
		feature := cfg.GetFeature(c)
		if feature == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gongin.H{"error": "feature not specified"})
			return
		}

		_ = cfg.Service.FetchFeatureAccess(c.Request.Context(), false)

		p := cfg.Service.Permission(feature)
		if !p.Allowed {
			if cfg.OnDenied != nil {
				cfg.OnDenied(c, p)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(cfg.DeniedStatusCode, gongin.H{
				"error":   "feature not available",
				"feature": string(p.Feature),
			})
			return
		}
		if p.ReachedLimit {
			if cfg.OnLimitReached != nil {
				cfg.OnLimitReached(c, p)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(cfg.LimitStatusCode, gongin.H{
				"error":       "daily limit reached",
				"feature":     string(p.Feature),
				"daily_limit": p.DailyLimit,
				"used_today":  p.UsedToday,
			})
			return
		}

		c.Next()
	}
}

// FromParam returns a FeatureExtractor that reads a route parameter.
func FromParam(name string) FeatureExtractor {
	return func(c *gongin.Context) string {
		return c.Param(name)
	}
}

// FromHeader returns a FeatureExtractor that reads a header.
func FromHeader(headerName string) FeatureExtractor {
	return func(c *gongin.Context) string {
		return c.GetHeader(headerName)
	}
}

// FixedFeature returns a FeatureExtractor that always returns a fixed feature.
func FixedFeature(feature string) FeatureExtractor {
	return func(*gongin.Context) string {
		return feature
	}
}
