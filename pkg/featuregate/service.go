// Package featuregate is a client for the Portal Paraíso feature-access API.
// It caches the server-computed quota snapshot and usage counters with
// independent TTLs, coalesces concurrent fetches into a single request, and
// exposes fail-closed permission predicates for gating paid features.
package featuregate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	kindFeatureAccess = "feature_access"
	kindUsageStats    = "usage_stats"
)

// Service owns the cached quota and usage snapshots. It is safe for
// concurrent use: the snapshots are written only by the fetch path and read
// by any number of callers. Construct one per authenticated user and share it
// across the consuming surfaces.
type Service struct {
	client    *apiClient
	logger    Logger
	metrics   Metrics
	clock     Clock
	snapshots SnapshotStore

	accessTTL time.Duration
	statsTTL  time.Duration

	// flight coalesces concurrent fetches for the same snapshot kind into
	// one upstream request; every waiter receives the same result.
	flight singleflight.Group

	mu              sync.RWMutex
	access          *FeatureAccess
	accessFetchedAt time.Time
	accessErr       string
	fetchingAccess  bool

	stats          *UsageStats
	statsFetchedAt time.Time
	statsErr       string
	fetchingStats  bool
}

// NewService creates a Service from the given configuration. If a snapshot
// store is configured, previously persisted snapshots are loaded so the
// service starts with stale-but-available data instead of nothing.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Service{
		client:    newAPIClient(cfg),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		snapshots: cfg.Snapshots,
		accessTTL: cfg.AccessTTL,
		statsTTL:  cfg.StatsTTL,
	}
	s.warmStart()
	return s, nil
}

// warmStart restores persisted snapshots. Failures are logged, never fatal.
func (s *Service) warmStart() {
	if s.snapshots == nil {
		return
	}
	ctx := context.Background()

	if snap, fetchedAt, err := s.snapshots.LoadAccess(ctx); err != nil {
		s.logger.Warn("failed to load stored feature access", Field{Key: "error", Value: err.Error()})
	} else if snap != nil {
		applyQuotaDefaults(snap)
		s.mu.Lock()
		s.access = snap
		s.accessFetchedAt = fetchedAt
		s.mu.Unlock()
	}

	if stats, fetchedAt, err := s.snapshots.LoadStats(ctx); err != nil {
		s.logger.Warn("failed to load stored usage stats", Field{Key: "error", Value: err.Error()})
	} else if stats != nil {
		s.mu.Lock()
		s.stats = stats
		s.statsFetchedAt = fetchedAt
		s.mu.Unlock()
	}
}

// FetchFeatureAccess ensures a fresh feature-access snapshot. Without force,
// a snapshot younger than the access TTL is a cache hit and no network call
// is made. Concurrent callers share a single in-flight request. On failure
// the previous snapshot is kept unchanged and the error is both returned and
// recorded in LastAccessError.
func (s *Service) FetchFeatureAccess(ctx context.Context, force bool) error {
	if !force && s.accessFresh() {
		s.metrics.RecordCacheHit(kindFeatureAccess)
		return nil
	}
	s.metrics.RecordCacheMiss(kindFeatureAccess)

	_, err, _ := s.flight.Do(kindFeatureAccess, func() (interface{}, error) {
		return nil, s.fetchAccess(ctx)
	})
	return err
}

// RefreshFeatureAccess forces a feature-access fetch regardless of TTL.
// Call it after a reading completes or a purchase succeeds so the next
// permission check reflects updated counters.
func (s *Service) RefreshFeatureAccess(ctx context.Context) error {
	return s.FetchFeatureAccess(ctx, true)
}

// FetchUsageStats ensures a fresh usage-stats snapshot, with the same
// contract as FetchFeatureAccess but an independent snapshot and TTL.
func (s *Service) FetchUsageStats(ctx context.Context, force bool) error {
	if !force && s.statsFresh() {
		s.metrics.RecordCacheHit(kindUsageStats)
		return nil
	}
	s.metrics.RecordCacheMiss(kindUsageStats)

	_, err, _ := s.flight.Do(kindUsageStats, func() (interface{}, error) {
		return nil, s.fetchStats(ctx)
	})
	return err
}

// RefreshUsageStats forces a usage-stats fetch regardless of TTL.
func (s *Service) RefreshUsageStats(ctx context.Context) error {
	return s.FetchUsageStats(ctx, true)
}

func (s *Service) accessFresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != nil && s.clock.Now().Sub(s.accessFetchedAt) < s.accessTTL
}

func (s *Service) statsFresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats != nil && s.clock.Now().Sub(s.statsFetchedAt) < s.statsTTL
}

func (s *Service) fetchAccess(ctx context.Context) error {
	s.mu.Lock()
	s.fetchingAccess = true
	s.accessErr = ""
	s.mu.Unlock()

	start := time.Now()
	snap, err := s.client.FetchFeatureAccess(ctx)
	s.metrics.RecordFetch(kindFeatureAccess, time.Since(start), err)

	if err != nil {
		s.mu.Lock()
		s.fetchingAccess = false
		s.accessErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("feature access fetch failed", Field{Key: "error", Value: err.Error()})
		return err
	}

	fetchedAt := s.clock.Now()
	s.mu.Lock()
	s.access = snap
	s.accessFetchedAt = fetchedAt
	s.fetchingAccess = false
	s.mu.Unlock()

	s.persistAccess(ctx, snap, fetchedAt)
	s.logger.Debug("feature access refreshed", Field{Key: "tier", Value: snap.Package.Tier})
	return nil
}

func (s *Service) fetchStats(ctx context.Context) error {
	s.mu.Lock()
	s.fetchingStats = true
	s.statsErr = ""
	s.mu.Unlock()

	start := time.Now()
	stats, err := s.client.FetchUsageStats(ctx)
	s.metrics.RecordFetch(kindUsageStats, time.Since(start), err)

	if err != nil {
		s.mu.Lock()
		s.fetchingStats = false
		s.statsErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("usage stats fetch failed", Field{Key: "error", Value: err.Error()})
		return err
	}

	fetchedAt := s.clock.Now()
	s.mu.Lock()
	s.stats = stats
	s.statsFetchedAt = fetchedAt
	s.fetchingStats = false
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.SaveStats(ctx, stats, fetchedAt); err != nil {
			s.logger.Warn("failed to store usage stats", Field{Key: "error", Value: err.Error()})
		}
	}
	return nil
}

func (s *Service) persistAccess(ctx context.Context, snap *FeatureAccess, fetchedAt time.Time) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveAccess(ctx, snap, fetchedAt); err != nil {
		s.logger.Warn("failed to store feature access", Field{Key: "error", Value: err.Error()})
	}
}

// FeatureAccess returns a copy of the cached snapshot, or nil if none exists.
func (s *Service) FeatureAccess() *FeatureAccess {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access.clone()
}

// UsageStats returns a copy of the cached usage counters, or nil.
func (s *Service) UsageStats() *UsageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.clone()
}

// Fetching reports whether a fetch for either snapshot is in flight.
func (s *Service) Fetching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchingAccess || s.fetchingStats
}

// LastAccessError returns the error message from the most recent failed
// feature-access fetch, or "" if the last fetch succeeded.
func (s *Service) LastAccessError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessErr
}

// LastStatsError returns the error message from the most recent failed
// usage-stats fetch, or "" if the last fetch succeeded.
func (s *Service) LastStatsError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsErr
}

// Permission predicates. All of them are pure reads over the cached snapshot
// and fail closed: no snapshot means not allowed, limit reached, zero left.

// CanAccess reports whether a feature is available at all on the current
// package: its quota exists and is either unlimited or has a positive limit.
func (s *Service) CanAccess(f Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.access.Quota(f)
	if !ok {
		return false
	}
	return q.Unlimited || q.DailyLimit > 0
}

// HasReachedDailyLimit reports whether the feature is blocked for the rest of
// the day. Unlimited quotas never reach the limit.
func (s *Service) HasReachedDailyLimit(f Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.access.Quota(f)
	if !ok {
		return true
	}
	if q.Unlimited {
		return false
	}
	return q.Remaining <= 0
}

// RemainingUsage returns how many uses are left today: 0 when no data is
// available, UnlimitedRemaining for unlimited quotas, and never less than 0
// even if the server reported a negative remaining.
func (s *Service) RemainingUsage(f Feature) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.access.Quota(f)
	if !ok {
		return 0
	}
	if q.Unlimited {
		return UnlimitedRemaining
	}
	if q.Remaining < 0 {
		return 0
	}
	return q.Remaining
}

// IsUnlimited reports whether the feature's quota is unlimited.
func (s *Service) IsUnlimited(f Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.access.Quota(f)
	return ok && q.Unlimited
}

// Quota returns the raw quota sub-object for a feature, if present.
func (s *Service) Quota(f Feature) (FeatureQuota, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access.Quota(f)
}

// CardLimits returns the tarot card-count bounds, or nil when absent.
func (s *Service) CardLimits() *CardLimits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.access.Quota(FeatureTarot)
	if !ok {
		return nil
	}
	return &CardLimits{PerReading: q.CardsPerReading, Min: q.CardsMin, Max: q.CardsMax}
}

// PackageInfo returns the subscription package metadata, or nil when absent.
func (s *Service) PackageInfo() *PackageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil {
		return nil
	}
	cp := s.access.clone().Package
	return &cp
}

// Features returns the capability flags, or nil when absent.
func (s *Service) Features() *FeatureFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil {
		return nil
	}
	flags := s.access.Features
	return &flags
}

// Experience returns the cosmetic tier flags, or nil when absent.
func (s *Service) Experience() *Experience {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil {
		return nil
	}
	exp := s.access.Experience
	return &exp
}

// Timer returns the opaque countdown payload, or nil when absent.
func (s *Service) Timer() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil || s.access.Timer == nil {
		return nil
	}
	return append([]byte(nil), s.access.Timer...)
}

// ShowTimer reports whether any feature wants a countdown displayed.
func (s *Service) ShowTimer() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != nil && s.access.ShowTimer
}

// NextReset returns the server's advisory reset timestamp, or "".
func (s *Service) NextReset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil {
		return ""
	}
	return s.access.NextReset
}
