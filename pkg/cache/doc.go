// Package cache memoises NetBox point lookups for one process.
//
// Resolving a foreign key (a rack's site, a device's type) is a one-record
// lookup. Listing views hit the same references over and over, so the
// Manager keeps results in a bounded LRU and collapses concurrent lookups of
// the same key into one request. Nothing is persisted between invocations.
//
// # Basic Usage
//
//	manager, err := cache.NewManager(1024)
//	if err != nil {
//		return err
//	}
//
//	key := cache.CacheKey{Endpoint: "dcim/device-types/", ID: "5"}
//	rec, err := manager.GetOrLoad(ctx, key, func(ctx context.Context) (*record.Record, error) {
//		return fetchDeviceType(ctx, "5")
//	})
//
// A nil record with a nil error is a memoised "absent" result.
//
// # Metrics
//
//   - netbox_lookup_cache_hits_total
//   - netbox_lookup_cache_misses_total
//   - netbox_lookup_cache_evictions_total
//   - netbox_lookup_cache_entries
//   - netbox_lookup_cache_errors_total
package cache
