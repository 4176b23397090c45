// Package pagination drains paginated NetBox collections.
//
// NetBox answers list requests with a page envelope:
//
//	{"count": 125, "next": "https://nb/api/dcim/sites/?limit=50&offset=50", "previous": null, "results": [...]}
//
// The continuation reference in "next" depends on page N, so one collection
// is always drained sequentially. Concurrency across collections belongs to
// the aggregate package.
//
// Example usage:
//
//	drainer := pagination.NewDrainer(netboxClient, pagination.DefaultConfig())
//	res, err := drainer.Drain(ctx, pagination.NewRef("dcim/sites/", "status", "active"), 0)
//
// The drainer:
//   - Sends limit=min(page size, cap) unless the caller set a limit
//   - Replays the original query with the continuation's parameters merged in
//   - Returns exactly cap records when the collection is larger
//   - Fails the whole drain with a *PageFetchError if any page fails
//   - Guards against servers that repeat continuation references
package pagination
