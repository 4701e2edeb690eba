package featuregate

import (
	"encoding/json"
	"strings"
	"time"
)

// Feature identifies a gated product feature.
type Feature string

const (
	// FeatureTarot is the tarot card reading feature.
	FeatureTarot Feature = "tarot"
	// FeatureAstrology is the astrology chart feature.
	FeatureAstrology Feature = "astrology"
	// FeatureBuzios is the cowrie-shell (búzios) reading feature.
	FeatureBuzios Feature = "buzios"
	// FeatureChat is the oracle chat feature.
	FeatureChat Feature = "chat"

	// featureHoroscope is a legacy alias kept for older clients; it resolves
	// to FeatureAstrology at the API boundary.
	featureHoroscope = "horoscope"
)

// UnlimitedRemaining is the sentinel returned by RemainingUsage when a
// feature's quota is unlimited.
const UnlimitedRemaining = 9999

// AllFeatures returns the closed set of gated features.
func AllFeatures() []Feature {
	return []Feature{FeatureTarot, FeatureAstrology, FeatureBuzios, FeatureChat}
}

// NormalizeFeature maps a feature name (including the legacy "horoscope"
// alias) to its canonical Feature. Returns false for unknown names.
func NormalizeFeature(name string) (Feature, bool) {
	switch Feature(strings.ToLower(strings.TrimSpace(name))) {
	case FeatureTarot:
		return FeatureTarot, true
	case FeatureAstrology, featureHoroscope:
		return FeatureAstrology, true
	case FeatureBuzios:
		return FeatureBuzios, true
	case FeatureChat:
		return FeatureChat, true
	default:
		return "", false
	}
}

// PackageInfo describes the subscription package driving the quotas.
// Informational only; never mutated client-side.
type PackageInfo struct {
	// Name maps locale codes to the localized package name
	Name map[string]string `json:"name"`

	// Type is the package type (e.g. "free", "subscription")
	Type string `json:"type"`

	// Tier is the package tier label (e.g. "explorer", "mystic")
	Tier string `json:"tier"`
}

// FeatureQuota is the server-computed daily quota for a single feature.
type FeatureQuota struct {
	// DailyLimit is the number of uses allowed per day (>= 0)
	DailyLimit int `json:"daily_limit"`

	// UsedToday is the number of uses consumed today (>= 0)
	UsedToday int `json:"used_today"`

	// Remaining is the server-computed remaining count. It may arrive
	// negative; helpers clamp it, the raw value is preserved as received.
	Remaining int `json:"remaining"`

	// Unlimited disables daily-limit counting entirely. When true, the
	// numeric fields are not authoritative for gating.
	Unlimited bool `json:"unlimited"`

	// ShowTimer indicates whether a reset countdown should be displayed
	// for this feature.
	ShowTimer bool `json:"show_timer"`

	// Tarot only.
	CardsPerReading int `json:"cards_per_reading,omitempty"`
	CardsMin        int `json:"cards_min,omitempty"`
	CardsMax        int `json:"cards_max,omitempty"`

	// Búzios only.
	ShellsPerReading int `json:"shells_per_reading,omitempty"`

	// Astrology only: tier-dependent reading depth label.
	Depth string `json:"depth,omitempty"`
}

// CardLimits groups the tarot card-count bounds.
type CardLimits struct {
	PerReading int `json:"per_reading"`
	Min        int `json:"min"`
	Max        int `json:"max"`
}

// FeatureFlags holds capability flags unrelated to per-feature counting.
type FeatureFlags struct {
	SaveReadings   bool `json:"save_readings"`
	AudioNarration bool `json:"audio_narration"`
	ShowAds        bool `json:"show_ads"`
	HistoryDays    int  `json:"history_days"`
}

// Experience holds cosmetic tier-gated flags, passed through untouched.
type Experience struct {
	AdFree          bool `json:"ad_free"`
	VIPBadge        bool `json:"vip_badge"`
	PrioritySupport bool `json:"priority_support"`
}

// FeatureAccess is a point-in-time snapshot of what the current user may do
// today. Snapshots are replaced wholesale on every successful fetch; there is
// no partial merge.
type FeatureAccess struct {
	Package  PackageInfo              `json:"package"`
	Readings map[Feature]FeatureQuota `json:"readings"`
	Features FeatureFlags             `json:"features"`

	Experience Experience `json:"experience"`

	// NextReset is the server's advisory reset timestamp (ISO 8601).
	// The client never computes resets itself.
	NextReset string `json:"next_reset"`

	// Timer is an opaque countdown payload forwarded to consumers.
	Timer json.RawMessage `json:"timer,omitempty"`

	// ShowTimer indicates whether any feature wants a countdown displayed.
	ShowTimer bool `json:"show_timer"`
}

// Quota returns the quota for a feature and whether it is present.
func (a *FeatureAccess) Quota(f Feature) (FeatureQuota, bool) {
	if a == nil || a.Readings == nil {
		return FeatureQuota{}, false
	}
	q, ok := a.Readings[f]
	return q, ok
}

// clone returns a deep copy so callers can never mutate the cached snapshot.
func (a *FeatureAccess) clone() *FeatureAccess {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Readings != nil {
		cp.Readings = make(map[Feature]FeatureQuota, len(a.Readings))
		for f, q := range a.Readings {
			cp.Readings[f] = q
		}
	}
	if a.Package.Name != nil {
		cp.Package.Name = make(map[string]string, len(a.Package.Name))
		for k, v := range a.Package.Name {
			cp.Package.Name[k] = v
		}
	}
	if a.Timer != nil {
		cp.Timer = append(json.RawMessage(nil), a.Timer...)
	}
	return &cp
}

// UsageStats holds cumulative usage counters, fetched for history and
// analytics display. Independent lifecycle and TTL from FeatureAccess;
// never consulted for gating.
type UsageStats struct {
	TarotReadings     int `json:"tarot_readings"`
	BuziosReadings    int `json:"buzios_readings"`
	AstrologyReadings int `json:"astrology_readings"`
	ChatQuestions     int `json:"chat_questions"`
	GamesPlayed       int `json:"games_played"`

	LastTarotReading     *time.Time `json:"last_tarot_reading"`
	LastBuziosReading    *time.Time `json:"last_buzios_reading"`
	LastAstrologyReading *time.Time `json:"last_astrology_reading"`
	LastChatQuestion     *time.Time `json:"last_chat_question"`
}

func (s *UsageStats) clone() *UsageStats {
	if s == nil {
		return nil
	}
	cp := *s
	cp.LastTarotReading = cloneTime(s.LastTarotReading)
	cp.LastBuziosReading = cloneTime(s.LastBuziosReading)
	cp.LastAstrologyReading = cloneTime(s.LastAstrologyReading)
	cp.LastChatQuestion = cloneTime(s.LastChatQuestion)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// defaultQuotas is the declarative fallback table applied when the server
// response omits a feature key. Astrology defaults to disabled.
var defaultQuotas = map[Feature]FeatureQuota{
	FeatureTarot:     {DailyLimit: 1, UsedToday: 0, Remaining: 1, Unlimited: false, ShowTimer: true},
	FeatureBuzios:    {DailyLimit: 1, UsedToday: 0, Remaining: 1, Unlimited: false, ShowTimer: true},
	FeatureAstrology: {DailyLimit: 0, UsedToday: 0, Remaining: 0, Unlimited: false, ShowTimer: false},
	FeatureChat:      {DailyLimit: 5, UsedToday: 0, Remaining: 5, Unlimited: false, ShowTimer: true},
}

// DefaultQuota returns the built-in fallback quota used when the server
// response omits a feature. Returns false for unknown features.
func DefaultQuota(f Feature) (FeatureQuota, bool) {
	q, ok := defaultQuotas[f]
	return q, ok
}

// applyQuotaDefaults fills in missing per-feature quota entries from the
// fallback table so every known feature is always present in a snapshot.
func applyQuotaDefaults(a *FeatureAccess) {
	if a.Readings == nil {
		a.Readings = make(map[Feature]FeatureQuota, len(defaultQuotas))
	}
	for _, f := range AllFeatures() {
		if _, ok := a.Readings[f]; !ok {
			a.Readings[f] = defaultQuotas[f]
		}
	}
}
