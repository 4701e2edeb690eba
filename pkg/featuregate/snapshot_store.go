package featuregate

import (
	"context"
	"time"
)

// SnapshotStore persists the most recent snapshots so a new process can
// warm-start with the data a previous one fetched. The cached fetch time is
// persisted alongside each snapshot; the Service still applies its TTLs, so a
// stale stored snapshot triggers a refetch on first access while remaining
// available for fail-soft reads in the meantime.
//
// Implementations live under storage/ (memory, redis). A nil snapshot with a
// nil error means "nothing stored".
type SnapshotStore interface {
	// LoadAccess returns the stored feature-access snapshot and its fetch time.
	LoadAccess(ctx context.Context) (*FeatureAccess, time.Time, error)

	// SaveAccess stores a feature-access snapshot with its fetch time.
	SaveAccess(ctx context.Context, snap *FeatureAccess, fetchedAt time.Time) error

	// LoadStats returns the stored usage-stats snapshot and its fetch time.
	LoadStats(ctx context.Context) (*UsageStats, time.Time, error)

	// SaveStats stores a usage-stats snapshot with its fetch time.
	SaveStats(ctx context.Context, stats *UsageStats, fetchedAt time.Time) error
}
