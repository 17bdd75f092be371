// Package tracker counts usage statistics per external collaborator.
package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per collaborator (catalog, routing).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*CollaboratorStats
}

// CollaboratorStats holds metrics for a specific collaborator.
// Fields are accessed atomically.
type CollaboratorStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64
	APIEmpty    int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*CollaboratorStats),
	}
}

// getStats returns the stats object for a collaborator, creating it if needed.
func (t *Tracker) getStats(name string) *CollaboratorStats {
	t.mu.RLock()
	s, ok := t.stats[name]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[name]; ok {
		return s
	}
	s = &CollaboratorStats{}
	t.stats[name] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(name string) {
	atomic.AddInt64(&t.getStats(name).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(name string) {
	atomic.AddInt64(&t.getStats(name).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(name string) {
	atomic.AddInt64(&t.getStats(name).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(name string) {
	atomic.AddInt64(&t.getStats(name).APIFailures, 1)
}

// TrackAPIEmpty increments the zero-result counter (e.g. no route
// found, empty candidate set).
func (t *Tracker) TrackAPIEmpty(name string) {
	atomic.AddInt64(&t.getStats(name).APIEmpty, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]CollaboratorStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]CollaboratorStats)
	for k, v := range t.stats {
		result[k] = CollaboratorStats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			APIEmpty:    atomic.LoadInt64(&v.APIEmpty),
		}
	}
	return result
}
