// Package fiber provides Fiber middleware that gates requests on cached
// feature-access state. Check-only: the gate never consumes quota.
package fiber

import (
	"github.com/gofiber/fiber/v2"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// FeatureExtractor extracts the feature name from a Fiber context.
// Return empty string if no feature can be determined.
type FeatureExtractor func(c *fiber.Ctx) string

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
	OnDenied func(c *fiber.Ctx, p featuregate.Permission) error

	// OnLimitReached is called when the daily limit is reached.
	// If nil, responds with a JSON error and LimitStatusCode.
	OnLimitReached func(c *fiber.Ctx, p featuregate.Permission) error
}

// Middleware creates a Fiber middleware that gates requests on feature access.
func Middleware(cfg Config) fiber.Handler {
	if cfg.Service == nil {
		panic("featuregate/fiber: Config.Service is required")
	}
	if cfg.GetFeature == nil {
		panic("featuregate/fiber: Config.GetFeature is required")
	}
	if cfg.DeniedStatusCode == 0 {
		cfg.DeniedStatusCode = fiber.StatusPaymentRequired
	}
	if cfg.LimitStatusCode == 0 {
		cfg.LimitStatusCode = fiber.StatusTooManyRequests
	}

	return func(c *fiber.Ctx) error {
		feature := cfg.GetFeature(c)
		if feature == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "feature not specified"})
		}

		_ = cfg.Service.FetchFeatureAccess(c.UserContext(), false)

		p := cfg.Service.Permission(feature)
		if !p.Allowed {
			if cfg.OnDenied != nil {
				return cfg.OnDenied(c, p)
			}
			return c.Status(cfg.DeniedStatusCode).JSON(fiber.Map{
				"error":   "feature not available",
				"feature": string(p.Feature),
			})
		}
		if p.ReachedLimit {
			if cfg.OnLimitReached != nil {
				return cfg.OnLimitReached(c, p)
			}
			return c.Status(cfg.LimitStatusCode).JSON(fiber.Map{
				"error":       "daily limit reached",
				"feature":     string(p.Feature),
				"daily_limit": p.DailyLimit,
				"used_today":  p.UsedToday,
			})
		}

		return c.Next()
	}
}

// FromParam returns a FeatureExtractor that reads a route parameter.
func FromParam(name string) FeatureExtractor {
	return func(c *fiber.Ctx) string {
		return c.Params(name)
	}
}

// FromHeader returns a FeatureExtractor that reads a header.
func FromHeader(headerName string) FeatureExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

// FixedFeature returns a FeatureExtractor that always returns a fixed feature.
func FixedFeature(feature string) FeatureExtractor {
	return func(*fiber.Ctx) string {
		return feature
	}
}
