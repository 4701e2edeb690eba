// Package memory provides an in-process implementation of the
// featuregate.SnapshotStore interface. Useful for tests and for wiring a
// service without external persistence.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// Store implements featuregate.SnapshotStore in memory.
type Store struct {
	mu sync.RWMutex

	access          *featuregate.FeatureAccess
	accessFetchedAt time.Time

	stats          *featuregate.UsageStats
	statsFetchedAt time.Time
}

// New creates a new in-memory snapshot store.
func New() *Store {
	return &Store{}
}

func (s *Store) LoadAccess(_ context.Context) (*featuregate.FeatureAccess, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == nil {
		return nil, time.Time{}, nil
	}
	cp := *s.access
	return &cp, s.accessFetchedAt, nil
}

func (s *Store) SaveAccess(_ context.Context, snap *featuregate.FeatureAccess, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.access = &cp
	s.accessFetchedAt = fetchedAt
	return nil
}

func (s *Store) LoadStats(_ context.Context) (*featuregate.UsageStats, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return nil, time.Time{}, nil
	}
	cp := *s.stats
	return &cp, s.statsFetchedAt, nil
}

func (s *Store) SaveStats(_ context.Context, stats *featuregate.UsageStats, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *stats
	s.stats = &cp
	s.statsFetchedAt = fetchedAt
	return nil
}
