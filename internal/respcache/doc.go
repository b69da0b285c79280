// Package respcache is a bounded, time-boxed store for successful deck API
// responses, keyed by request signature (path plus encoded query).
//
// Entries expire after a fixed TTL and the store is capped at a maximum
// entry count with least-recently-used eviction. Lookups hand out copies,
// so a caller holding a response is never affected by later eviction or
// invalidation. Commands invalidate by key prefix.
package respcache
