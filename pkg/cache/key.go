package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies one memoised NetBox lookup.
type CacheKey struct {
	// Endpoint is the collection path (e.g., "dcim/device-types/")
	Endpoint string

	// ID is the referenced record id, empty for filter lookups
	ID string

	// QueryParams are the lookup filters (e.g., {"name": "edge-01"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: netbox:endpoint:id=5:query1=val1:query1=val2
//
// Example:
//
//	netbox:dcim/device-types:id=5
func (k CacheKey) String() string {
	parts := []string{"netbox"}

	endpoint := strings.Trim(k.Endpoint, "/")
	endpoint = strings.TrimPrefix(endpoint, "api/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if k.ID != "" {
		parts = append(parts, "id="+k.ID)
	}

	// Add query params (sorted for determinism). Each value gets its own
	// escaped segment so "a,b" and ["a" "b"] stay distinct.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			for _, v := range values {
				parts = append(parts, fmt.Sprintf("%s=%s", url.QueryEscape(key), url.QueryEscape(v)))
			}
		}
	}

	return strings.Join(parts, ":")
}
