package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/partcast/partcast/pkg/types"
)

// Entry is a projection response together with the time it was stored.
type Entry struct {
	Projection *types.ProjectionResponse
	StoredAt   time.Time
}

// Store is a thread-safe in-memory store of recent projections, keyed by
// projection ID. Entries older than the TTL are hidden from List and removed
// by Evict; when the store is full the oldest entry is dropped on Put.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*Entry
	ttl      time.Duration
	capacity int
	now      func() time.Time // injectable for deterministic tests
	onEvict  func(*types.ProjectionResponse)
}

// New creates a Store with the given TTL and capacity.
func New(ttl time.Duration, capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		data:     make(map[string]*Entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// OnEvict registers fn to be called, outside the lock, with every projection
// removed by Evict or dropped for capacity. It must be set before the store is
// shared.
func (s *Store) OnEvict(fn func(*types.ProjectionResponse)) {
	s.onEvict = fn
}

// Put stores resp under resp.ID. Callers must not modify resp afterwards.
func (s *Store) Put(resp *types.ProjectionResponse) {
	var dropped *types.ProjectionResponse

	s.mu.Lock()
	if _, exists := s.data[resp.ID]; !exists && len(s.data) >= s.capacity {
		dropped = s.dropOldestLocked()
	}
	s.data[resp.ID] = &Entry{
		Projection: resp,
		StoredAt:   s.now(),
	}
	s.mu.Unlock()

	if dropped != nil && s.onEvict != nil {
		s.onEvict(dropped)
	}
}

// Get returns the live entry for id. Expired entries are reported as missing.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !e.StoredAt.After(s.now().Add(-s.ttl)) {
		return nil, false
	}
	return e, true
}

// List returns all live entries, newest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.StoredAt.After(cutoff) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].Projection.ID < out[j].Projection.ID
		}
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	return out
}

// Count returns the total number of entries currently held, including expired ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured retention.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Evict removes entries stored at or before now minus TTL and returns how
// many were removed.
func (s *Store) Evict(now time.Time) int {
	var removed []*types.ProjectionResponse

	s.mu.Lock()
	cutoff := now.Add(-s.ttl)
	for id, e := range s.data {
		if !e.StoredAt.After(cutoff) {
			delete(s.data, id)
			removed = append(removed, e.Projection)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, p := range removed {
			s.onEvict(p)
		}
	}
	return len(removed)
}

// Run evicts expired entries every TTL/2 (minimum 1 second) until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired projections", "count", n)
			}
		}
	}
}

func (s *Store) dropOldestLocked() *types.ProjectionResponse {
	var oldestID string
	var oldest time.Time
	for id, e := range s.data {
		if oldestID == "" || e.StoredAt.Before(oldest) {
			oldestID, oldest = id, e.StoredAt
		}
	}
	if oldestID == "" {
		return nil
	}
	p := s.data[oldestID].Projection
	delete(s.data, oldestID)
	return p
}
