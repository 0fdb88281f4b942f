package qingque

import (
	"context"
	"fmt"
	"time"

	"github.com/naoTimesdev/qingque-api/internal/wire"
	st "github.com/naoTimesdev/qingque-api/store"
)

// RenderFunc produces a derived artifact (e.g. an encoded player-card image)
// from a resolved source value. It must be safe for concurrent use; the
// Builder guarantees at most one in-flight render per derived key.
type RenderFunc[V any] func(ctx context.Context, src V) ([]byte, error)

// BuilderOptions tune a derived-artifact Builder. Kind, Source, Store and
// Render are required.
type BuilderOptions[V any] struct {
	// Kind names the artifact family and namespaces its keys, e.g. "card".
	Kind string
	// Source resolves the primary resource the artifact derives from.
	Source Resolver[V]
	// Store holds rendered artifacts. May be the engine's store or a separate
	// one (e.g. images in BigCache while entries live in Redis).
	Store st.Store
	// Render computes the artifact bytes from the source value.
	Render RenderFunc[V]

	TTL           time.Duration // artifact store TTL; 0 => 15m
	RenderTimeout time.Duration // per-render deadline; 0 => 30s

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// Builder caches derived artifacts under (derivedKey, sourceVersion). An
// artifact is never served against a mismatched source version: when the
// source entry's version moves, the stored artifact is dropped and recomputed
// lazily on the next Build. Concurrent Builds of the same derived key coalesce
// into one render.
type Builder[V any] struct {
	kind   string
	src    Resolver[V]
	store  st.Store
	render RenderFunc[V]

	ttl           time.Duration
	renderTimeout time.Duration

	log    Logger
	hooks  Hooks
	flight *flightGroup
}

// NewBuilder builds a Builder from opts.
func NewBuilder[V any](opts BuilderOptions[V]) (*Builder[V], error) {
	if opts.Kind == "" {
		return nil, fmt.Errorf("qingque: builder kind is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("qingque: builder source is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("qingque: builder store is required")
	}
	if opts.Render == nil {
		return nil, fmt.Errorf("qingque: builder render func is required")
	}
	return &Builder[V]{
		kind:          opts.Kind,
		src:           opts.Source,
		store:         opts.Store,
		render:        opts.Render,
		ttl:           coalesce(opts.TTL, 15*time.Minute),
		renderTimeout: coalesce(opts.RenderTimeout, 30*time.Second),
		log:           coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:         coalesce[Hooks](opts.Hooks, NopHooks{}),
		flight:        newFlightGroup(),
	}, nil
}

// artifactKey returns the storage key for a derived artifact. variant
// distinguishes renditions of one source (character index, language).
func (b *Builder[V]) artifactKey(key Key, variant string) string {
	ak := "art:" + b.kind + ":" + key.Class + ":" + key.ID
	if variant != "" {
		ak += ":" + variant
	}
	return ak
}

// Build returns the derived artifact for key, resolving the source through
// the coalescing engine first. A cached artifact is served only when its
// recorded source version matches the source entry served right now.
func (b *Builder[V]) Build(ctx context.Context, key Key, variant string) ([]byte, error) {
	src, version, err := b.src.ResolveVersion(ctx, key)
	if err != nil {
		return nil, err
	}

	ak := b.artifactKey(key, variant)
	raw, ok, gerr := b.store.Get(ctx, ak)
	if gerr != nil {
		b.hooks.StoreDegraded("get", gerr)
		b.log.Warn("artifact read failed; rendering degraded", Fields{"key": ak, "err": gerr})
	}
	if gerr == nil && ok {
		art, derr := wire.DecodeArtifact(raw)
		switch {
		case derr != nil:
			_ = b.store.Del(ctx, ak) // self-heal corrupt
			b.hooks.SelfHeal(ak, "corrupt")
		case art.SourceVersion == version:
			return art.Payload, nil
		default:
			// source moved under the artifact; drop before recompute
			_ = b.store.Del(ctx, ak)
			b.hooks.SelfHeal(ak, "source_version")
		}
	}

	cl, started := b.flight.begin(ak)
	if started {
		go b.runRender(context.WithoutCancel(ctx), ak, src, version, gerr == nil, cl)
	}

	res, err := await(ctx, cl)
	if err != nil {
		return nil, err
	}
	if res.version == version {
		return res.payload, nil
	}
	// Coalesced onto a render for a different source version (the source
	// changed mid-window). Render inline against our own snapshot; the stored
	// artifact self-corrects on the next Build.
	out, rerr := b.render(ctx, src)
	if rerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailed, rerr)
	}
	return out, nil
}

// runRender owns one render window for a derived key: compute, best-effort
// store under the source version, fan out.
func (b *Builder[V]) runRender(base context.Context, ak string, src V, version string, writeBack bool, cl *call) {
	ctx, cancel := context.WithTimeout(base, b.renderTimeout)
	defer cancel()

	out, err := b.render(ctx, src)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrBuildFailed, err)
		b.hooks.FetchFailed(ak, err)
		b.flight.finish(ak, cl, flightResult{}, err)
		return
	}

	if writeBack {
		env := wire.EncodeArtifact(version, out)
		if ok, serr := b.store.Set(ctx, ak, env, int64(len(env)), b.ttl); serr != nil {
			b.hooks.WriteBackFailed(ak, serr)
			b.log.Warn("artifact write-back failed", Fields{"key": ak, "err": serr})
		} else if !ok {
			b.log.Debug("artifact write-back rejected by store (pressure)", Fields{"key": ak})
		}
	}

	b.flight.finish(ak, cl, flightResult{payload: out, version: version}, nil)
}
