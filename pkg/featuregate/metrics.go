package featuregate

import "time"

// Metrics defines the interface for tracking fetch and gating operations.
type Metrics interface {
	// RecordFetch records an upstream fetch for a snapshot kind
	// ("feature_access" or "usage_stats") with its duration and outcome.
	RecordFetch(kind string, duration time.Duration, err error)

	// RecordCacheHit records a TTL cache hit for a snapshot kind.
	RecordCacheHit(kind string)

	// RecordCacheMiss records a TTL cache miss for a snapshot kind.
	RecordCacheMiss(kind string)

	// RecordRetry records a retried attempt (attempt > 1) for a snapshot kind.
	RecordRetry(kind string, attempt int)

	// RecordPermissionCheck records a permission evaluation for a feature.
	RecordPermissionCheck(feature string, allowed bool)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordFetch(kind string, duration time.Duration, err error) {}
func (n *NoopMetrics) RecordCacheHit(kind string)                                 {}
func (n *NoopMetrics) RecordCacheMiss(kind string)                                {}
func (n *NoopMetrics) RecordRetry(kind string, attempt int)                       {}
func (n *NoopMetrics) RecordPermissionCheck(feature string, allowed bool)         {}
