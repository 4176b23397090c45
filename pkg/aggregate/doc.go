// Package aggregate answers cross-collection questions on top of drained
// collections: per-candidate counts (one filtered drain per candidate, run
// concurrently under a bound), foreign-key resolution and client-side
// tallies.
//
// Failures stay local to the branch that produced them. A failed branch
// reports the Unknown count with its error, and CountResult.Degraded lists
// every such branch so reports can tell "zero" apart from "lookup failed".
// Authentication failures and cancellation abort the whole aggregation.
package aggregate
