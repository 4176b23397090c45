package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// DefaultSize is the default number of memoised lookups.
const DefaultSize = 1024

// Loader fetches a record on a cache miss. A nil record means "absent" and
// is memoised like any other result; errors are not.
type Loader func(ctx context.Context) (*record.Record, error)

// Manager memoises point lookups for the lifetime of one process.
type Manager struct {
	lru   *lru.Cache[string, *record.Record]
	group singleflight.Group
}

// NewManager creates a lookup memo holding up to size entries.
func NewManager(size int) (*Manager, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.NewWithEvict[string, *record.Record](size, func(string, *record.Record) {
		CacheEvictions.Inc()
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Manager{lru: c}, nil
}

// Get returns a memoised lookup. The second result reports a hit; a hit may
// carry a nil record for a lookup that resolved to absent.
func (m *Manager) Get(key CacheKey) (*record.Record, bool) {
	rec, ok := m.lru.Get(key.String())
	if ok {
		CacheHits.Inc()
	}
	return rec, ok
}

// Set memoises a lookup result.
func (m *Manager) Set(key CacheKey, rec *record.Record) {
	m.lru.Add(key.String(), rec)
	CacheEntries.Set(float64(m.lru.Len()))
}

// GetOrLoad returns the memoised result for key, calling load on a miss.
// Concurrent callers for the same key share one load.
func (m *Manager) GetOrLoad(ctx context.Context, key CacheKey, load Loader) (*record.Record, error) {
	if rec, ok := m.Get(key); ok {
		return rec, nil
	}

	k := key.String()
	v, err, _ := m.group.Do(k, func() (interface{}, error) {
		// another caller may have filled the entry while we queued
		if rec, ok := m.lru.Get(k); ok {
			return rec, nil
		}
		CacheMisses.Inc()
		rec, err := load(ctx)
		if err != nil {
			CacheErrors.Inc()
			return nil, err
		}
		m.Set(key, rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*record.Record)
	return rec, nil
}

// Len returns the number of memoised lookups.
func (m *Manager) Len() int {
	return m.lru.Len()
}

// Purge drops every memoised lookup.
func (m *Manager) Purge() {
	m.lru.Purge()
	CacheEntries.Set(0)
}
