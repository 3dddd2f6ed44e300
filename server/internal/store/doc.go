// Package store keeps recently computed projections in memory so the API and
// the WebSocket feed can list them. It is a short-lived cache with TTL
// eviction and a capacity cap, not a history: nothing survives a restart.
package store
