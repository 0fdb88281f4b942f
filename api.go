package qingque

import (
	"context"

	c "github.com/naoTimesdev/qingque-api/codec"
	st "github.com/naoTimesdev/qingque-api/store"
)

// Result is one successful upstream fetch: the decoded value plus a version
// tag (ETag or content hash). An empty Version is replaced by a hash of the
// encoded payload before the entry is stored.
type Result[V any] struct {
	Value   V
	Version string
}

// Fetcher performs the outbound call to the data source for one key.
// Implementations must be stateless and safe for concurrent use across keys;
// the engine guarantees at most one in-flight call per key. The ctx carries
// the per-class fetch deadline.
type Fetcher[V any] interface {
	Fetch(ctx context.Context, key Key) (Result[V], error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc[V any] func(ctx context.Context, key Key) (Result[V], error)

func (f FetcherFunc[V]) Fetch(ctx context.Context, key Key) (Result[V], error) {
	return f(ctx, key)
}

// Resolver is the coalescing entry point consumed by the HTTP layer.
// Values handed to waiters of the same fetch may share memory; treat them as
// read-only.
type Resolver[V any] interface {
	// Resolve returns the resource for key, serving from cache when fresh and
	// coalescing concurrent fetches of the same key into one upstream call.
	Resolve(ctx context.Context, key Key) (V, error)

	// ResolveVersion is Resolve plus the served entry's version tag. The
	// derived-artifact Builder pins artifacts to this version.
	ResolveVersion(ctx context.Context, key Key) (V, string, error)

	// Invalidate drops the cached entry for key. Derived artifacts are not
	// touched; they self-invalidate on the next Build via version mismatch.
	Invalidate(ctx context.Context, key Key) error

	Enabled() bool
	Close(ctx context.Context) error
}

// Options tune the engine. Namespace, Store, Codec and Fetcher are required;
// everything else has defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions, e.g. "prod", "staging"
	Store     st.Store
	Codec     c.Codec[V]
	Fetcher   Fetcher[V]

	// Per-resource-class freshness; classes not listed use Defaults.
	Classes  map[string]ClassConfig
	Defaults ClassConfig // zero value => DefaultClassConfig

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// BackgroundContext supplies the base context for background refreshes.
	// nil => context.Background. Must return a fresh context per call.
	BackgroundContext func() context.Context

	// Disabled bypasses the store entirely: every Resolve goes upstream,
	// still coalesced per key.
	Disabled bool
}

// New builds a Resolver from opts.
func New[V any](opts Options[V]) (Resolver[V], error) {
	return newEngine[V](opts)
}
