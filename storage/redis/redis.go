// Package redis provides a Redis implementation of the
// featuregate.SnapshotStore interface, so cached quota snapshots survive
// process restarts and can be shared between instances serving the same user.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

const (
	defaultKeyPrefix = "featuregate:"
	accessSuffix     = ":feature-access"
	statsSuffix      = ":usage-stats"
)

// Config holds Redis store configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "featuregate:").
	KeyPrefix string

	// Key identifies whose snapshots these are, typically the user ID (required).
	Key string

	// TTL caps how long a persisted snapshot is kept. Zero means no
	// expiration; the Service's own TTLs still govern freshness.
	TTL time.Duration
}

// Store implements featuregate.SnapshotStore using Redis.
type Store struct {
	client redis.UniversalClient
	config Config
}

// storedSnapshot wraps a snapshot with its fetch time for persistence.
type storedSnapshot struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// New creates a new Redis snapshot store. The client can be *redis.Client,
// *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	return &Store{client: client, config: config}, nil
}

func (s *Store) LoadAccess(ctx context.Context) (*featuregate.FeatureAccess, time.Time, error) {
	var snap featuregate.FeatureAccess
	fetchedAt, found, err := s.load(ctx, s.accessKey(), &snap)
	if err != nil || !found {
		return nil, time.Time{}, err
	}
	return &snap, fetchedAt, nil
}

func (s *Store) SaveAccess(ctx context.Context, snap *featuregate.FeatureAccess, fetchedAt time.Time) error {
	return s.save(ctx, s.accessKey(), snap, fetchedAt)
}

func (s *Store) LoadStats(ctx context.Context) (*featuregate.UsageStats, time.Time, error) {
	var stats featuregate.UsageStats
	fetchedAt, found, err := s.load(ctx, s.statsKey(), &stats)
	if err != nil || !found {
		return nil, time.Time{}, err
	}
	return &stats, fetchedAt, nil
}

func (s *Store) SaveStats(ctx context.Context, stats *featuregate.UsageStats, fetchedAt time.Time) error {
	return s.save(ctx, s.statsKey(), stats, fetchedAt)
}

func (s *Store) load(ctx context.Context, key string, out interface{}) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var stored storedSnapshot
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := json.Unmarshal(stored.Data, out); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return stored.FetchedAt, true, nil
}

func (s *Store) save(ctx context.Context, key string, value interface{}, fetchedAt time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	stored, err := json.Marshal(storedSnapshot{FetchedAt: fetchedAt, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key, stored, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (s *Store) accessKey() string {
	return s.config.KeyPrefix + s.config.Key + accessSuffix
}

func (s *Store) statsKey() string {
	return s.config.KeyPrefix + s.config.Key + statsSuffix
}
