package featuregate

import (
	"context"
	"encoding/json"
)

// Permission is the flat, screen-ready view of one feature's standing,
// combining cache state and derived predicates. Feature-specific fields
// (card limits, depth, shells) are zero-valued for non-matching features;
// callers must not assume presence.
type Permission struct {
	Feature Feature

	// Allowed is true when the feature exists on the current package and is
	// either unlimited or has a positive daily limit.
	Allowed bool

	// ReachedLimit is true when the feature is blocked for the rest of the
	// day (or when no quota data is available at all).
	ReachedLimit bool

	Remaining  int
	DailyLimit int
	Unlimited  bool
	UsedToday  int

	// Loading reflects the service-wide in-flight flag; a fetch triggered by
	// one feature's consumer marks every Permission as loading.
	Loading bool

	Package    *PackageInfo
	Features   *FeatureFlags
	Experience *Experience
	Timer      json.RawMessage
	ShowTimer  bool

	// Tarot only.
	CardsPerReading int
	CardsMin        int
	CardsMax        int
	CardLimits      *CardLimits

	// Astrology only.
	Depth string

	// Búzios only.
	ShellsPerReading int

	svc *Service
}

// Refresh forces a feature-access fetch so the next projection reflects
// updated counters.
func (p Permission) Refresh(ctx context.Context) error {
	if p.svc == nil {
		return ErrInvalidFeature
	}
	return p.svc.RefreshFeatureAccess(ctx)
}

// Permission projects the cached snapshot for one feature. The name may be
// any recognized feature, including the legacy "horoscope" alias for
// astrology. An unrecognized name is logged and yields a fully fail-closed
// Permission rather than an error or panic.
func (s *Service) Permission(name string) Permission {
	f, ok := NormalizeFeature(name)
	if !ok {
		s.logger.Warn("permission check for unknown feature", Field{Key: "feature", Value: name})
		s.metrics.RecordPermissionCheck(name, false)
		return Permission{
			Feature:      Feature(name),
			Allowed:      false,
			ReachedLimit: true,
			Loading:      s.Fetching(),
			svc:          s,
		}
	}

	s.mu.RLock()
	snap := s.access
	loading := s.fetchingAccess || s.fetchingStats
	q, hasQuota := snap.Quota(f)
	s.mu.RUnlock()

	p := Permission{
		Feature:      f,
		Allowed:      hasQuota && (q.Unlimited || q.DailyLimit > 0),
		ReachedLimit: !hasQuota || (!q.Unlimited && q.Remaining <= 0),
		Unlimited:    hasQuota && q.Unlimited,
		Loading:      loading,
		svc:          s,
	}
	if hasQuota {
		p.DailyLimit = q.DailyLimit
		p.UsedToday = q.UsedToday
		p.ShowTimer = q.ShowTimer
		switch {
		case q.Unlimited:
			p.Remaining = UnlimitedRemaining
		case q.Remaining > 0:
			p.Remaining = q.Remaining
		}
	}

	if snap != nil {
		cp := snap.clone()
		p.Package = &cp.Package
		p.Features = &cp.Features
		p.Experience = &cp.Experience
		p.Timer = cp.Timer
	}

	switch f {
	case FeatureTarot:
		if hasQuota {
			p.CardsPerReading = q.CardsPerReading
			p.CardsMin = q.CardsMin
			p.CardsMax = q.CardsMax
			p.CardLimits = &CardLimits{PerReading: q.CardsPerReading, Min: q.CardsMin, Max: q.CardsMax}
		}
	case FeatureAstrology:
		p.Depth = q.Depth
	case FeatureBuzios:
		p.ShellsPerReading = q.ShellsPerReading
	}

	s.metrics.RecordPermissionCheck(string(f), p.Allowed)
	return p
}
