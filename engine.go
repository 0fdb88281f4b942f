package qingque

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/naoTimesdev/qingque-api/codec"
	"github.com/naoTimesdev/qingque-api/internal/util"
	"github.com/naoTimesdev/qingque-api/internal/wire"
	st "github.com/naoTimesdev/qingque-api/store"
)

// writeBackTimeout bounds the store write after a successful fetch so a slow
// store cannot pin the fetch goroutine.
const writeBackTimeout = 3 * time.Second

type engine[V any] struct {
	ns      string
	store   st.Store
	codec   c.Codec[V]
	fetcher Fetcher[V]

	classes  map[string]ClassConfig
	defaults ClassConfig

	log     Logger
	hooks   Hooks
	bgctx   func() context.Context
	enabled bool

	flight *flightGroup
	now    func() time.Time
}

func newEngine[V any](opts Options[V]) (*engine[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("qingque: namespace is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("qingque: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("qingque: codec is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("qingque: fetcher is required")
	}

	e := &engine[V]{
		ns:      opts.Namespace,
		store:   opts.Store,
		codec:   opts.Codec,
		fetcher: opts.Fetcher,
		classes: opts.Classes,
		enabled: !opts.Disabled,
		flight:  newFlightGroup(),
		now:     time.Now,
	}

	// defaults
	e.log = coalesce[Logger](opts.Logger, NopLogger{})
	e.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	e.defaults = opts.Defaults
	if e.defaults == (ClassConfig{}) {
		e.defaults = DefaultClassConfig
	}
	if opts.BackgroundContext != nil {
		e.bgctx = opts.BackgroundContext
	} else {
		e.bgctx = context.Background
	}

	if err := validateClass("defaults", e.defaults); err != nil {
		return nil, err
	}
	for name, cfg := range e.classes {
		if err := validateClass(name, cfg); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func validateClass(name string, cfg ClassConfig) error {
	if cfg.SoftTTL <= 0 || cfg.HardTTL < cfg.SoftTTL {
		return fmt.Errorf("qingque: class %q: need 0 < SoftTTL <= HardTTL (soft=%v hard=%v)",
			name, cfg.SoftTTL, cfg.HardTTL)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("qingque: class %q: FetchTimeout must be positive", name)
	}
	return nil
}

func (e *engine[V]) classConfig(class string) ClassConfig {
	if cfg, ok := e.classes[class]; ok {
		return cfg
	}
	return e.defaults
}

func (e *engine[V]) Enabled() bool { return e.enabled }

func (e *engine[V]) Close(ctx context.Context) error {
	if e.store != nil {
		return e.store.Close(ctx)
	}
	return nil
}

func (e *engine[V]) Resolve(ctx context.Context, key Key) (V, error) {
	v, _, err := e.ResolveVersion(ctx, key)
	return v, err
}

func (e *engine[V]) ResolveVersion(ctx context.Context, key Key) (V, string, error) {
	cfg := e.classConfig(key.Class)
	sk := e.entryKey(key)

	if !e.enabled {
		return e.awaitFetch(ctx, key, sk, cfg, false)
	}

	raw, ok, gerr := e.store.Get(ctx, sk)
	if gerr != nil {
		// Degraded mode: distinguish outage from miss. Fetch upstream but do
		// not write back, so a store outage is never masked as success.
		e.hooks.StoreDegraded("get", gerr)
		e.log.Warn("store read failed; fetching degraded", Fields{"key": sk, "err": gerr})
		return e.awaitFetch(ctx, key, sk, cfg, false)
	}

	if ok {
		ent, derr := wire.DecodeEntry(raw)
		if derr != nil {
			_ = e.store.Del(ctx, sk) // self-heal corrupt
			e.hooks.SelfHeal(sk, "corrupt")
		} else {
			switch Classify(ent.FetchedAt, e.now(), cfg) {
			case Fresh:
				if v, ok := e.decodeEntry(ctx, sk, ent); ok {
					return v, ent.Version, nil
				}
			case StaleSoft:
				if v, ok := e.decodeEntry(ctx, sk, ent); ok {
					e.triggerRefresh(key, sk, cfg)
					e.hooks.StaleServed(sk, e.now().Sub(ent.FetchedAt))
					return v, ent.Version, nil
				}
			case Expired:
				// hard-expired: block below for a synchronous refresh
			}
		}
	}

	return e.awaitFetch(ctx, key, sk, cfg, true)
}

// decodeEntry decodes a wire entry payload, self-healing undecodable bytes.
func (e *engine[V]) decodeEntry(ctx context.Context, sk string, ent wire.Entry) (V, bool) {
	v, err := e.codec.Decode(ent.Payload)
	if err != nil {
		var zero V
		_ = e.store.Del(ctx, sk)
		e.hooks.SelfHeal(sk, "value_decode")
		return zero, false
	}
	return v, true
}

// awaitFetch joins (or starts) the in-flight fetch for key and blocks until it
// resolves or ctx is done. writeBack=false keeps degraded reads from masking a
// store outage; the flag belongs to whoever starts the coalescing window.
func (e *engine[V]) awaitFetch(ctx context.Context, key Key, sk string, cfg ClassConfig, writeBack bool) (V, string, error) {
	var zero V
	cl, started := e.flight.begin(sk)
	if started {
		go e.runFetch(context.WithoutCancel(ctx), key, sk, cfg, writeBack, cl)
	}

	res, err := await(ctx, cl)
	if err != nil {
		return zero, "", err
	}
	v, derr := e.codec.Decode(res.payload)
	if derr != nil {
		return zero, "", fmt.Errorf("qingque: decode fetched payload: %w", derr)
	}
	return v, res.version, nil
}

// triggerRefresh starts a background refresh unless one is already in flight.
// It never blocks the stale read it accompanies; a later foreground miss for
// the same key coalesces onto the refresh.
func (e *engine[V]) triggerRefresh(key Key, sk string, cfg ClassConfig) {
	cl, started := e.flight.begin(sk)
	if !started {
		return
	}
	e.hooks.RefreshQueued(sk)
	go e.runFetch(e.bgctx(), key, sk, cfg, true, cl)
}

// runFetch owns one coalescing window: it performs the upstream call under the
// class fetch deadline, writes the result back (best effort), and fans the
// outcome out to every waiter. The base context is caller-independent, so an
// abandoning client never cancels the fetch for the remaining waiters.
func (e *engine[V]) runFetch(base context.Context, key Key, sk string, cfg ClassConfig, writeBack bool, cl *call) {
	ctx, cancel := context.WithTimeout(base, cfg.FetchTimeout)
	defer cancel()

	res, err := e.fetcher.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUpstreamTimeout) {
			err = fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		e.hooks.FetchFailed(sk, err)
		e.log.Warn("upstream fetch failed", Fields{"key": sk, "err": err})
		// The prior cache entry (if any) is left untouched: stale-while-error
		// stays servable on the next call.
		e.flight.finish(sk, cl, flightResult{}, err)
		return
	}

	payload, eerr := e.codec.Encode(res.Value)
	if eerr != nil {
		eerr = fmt.Errorf("qingque: encode fetched value: %w", eerr)
		e.hooks.FetchFailed(sk, eerr)
		e.flight.finish(sk, cl, flightResult{}, eerr)
		return
	}
	version := res.Version
	if version == "" {
		version = util.ShortHash(payload)
	}

	if writeBack && e.enabled {
		env := wire.EncodeEntry(e.now(), version, payload)
		wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
		// Store TTL is the hard bound; freshness math handles the soft one.
		if ok, serr := e.store.Set(wctx, sk, env, int64(len(env)), cfg.HardTTL); serr != nil {
			e.hooks.WriteBackFailed(sk, serr)
			e.log.Warn("write-back failed; returning fetched payload", Fields{"key": sk, "err": serr})
		} else if !ok {
			e.log.Debug("write-back rejected by store (pressure)", Fields{"key": sk})
		}
		wcancel()
	}

	e.flight.finish(sk, cl, flightResult{payload: payload, version: version}, nil)
}

func (e *engine[V]) Invalidate(ctx context.Context, key Key) error {
	sk := e.entryKey(key)
	if err := e.store.Del(ctx, sk); err != nil {
		return &StoreError{Op: "del", Key: sk, Err: err}
	}
	e.log.Debug("invalidated entry", Fields{"key": sk})
	return nil
}
