package qingque

import (
	"errors"
	"fmt"
)

// Terminal error taxonomy. Every Resolve/Build caller receives either a
// payload or exactly one of these (possibly wrapped); waiters coalesced onto
// the same fetch receive the identical error value.
var (
	// ErrUpstreamTimeout: the fetch deadline elapsed before the data source answered.
	ErrUpstreamTimeout = errors.New("qingque: upstream timeout")

	// ErrUpstreamNotFound: the data source answered but the resource does not
	// exist. Semantic, never retried.
	ErrUpstreamNotFound = errors.New("qingque: upstream resource not found")

	// ErrUpstreamUnavailable: transient upstream failure with retries exhausted,
	// or a fast-fail from an open circuit breaker.
	ErrUpstreamUnavailable = errors.New("qingque: upstream unavailable")

	// ErrStoreUnavailable: the cache store failed an operation. Distinct from a
	// miss; a read failure puts the engine in degraded mode for that request.
	ErrStoreUnavailable = errors.New("qingque: cache store unavailable")

	// ErrBuildFailed: a derived-artifact render failed.
	ErrBuildFailed = errors.New("qingque: derived artifact build failed")
)

// StoreError carries the failing store operation and key alongside the
// underlying cause. errors.Is(err, ErrStoreUnavailable) holds for every
// StoreError.
type StoreError struct {
	Op  string // "get", "set" or "del"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
