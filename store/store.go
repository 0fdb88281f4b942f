// Package store defines the byte-store abstraction the engine caches into.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no metadata,
// no re-encoding, no mutation). A store failure MUST surface as a non-nil
// error and never be reported as a miss: callers rely on the distinction to
// enter degraded mode instead of stampeding upstream during a store outage.
//
// The keyspaces "res:<ns>:" and "art:<kind>:" are owned by the engine.
// External code must not write values under these prefixes; foreign writes
// may be treated as corruption by strict envelope validation and deleted.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs, safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// An IO/remote failure returns (nil, false, err) - never a silent miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
