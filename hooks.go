package qingque

import "time"

// Hooks are lightweight callbacks for high-signal engine events.
// Implementations MUST be cheap and non-blocking; the engine calls them on hot
// paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// A soft-stale entry was served while a refresh runs. age is time since fetch.
	StaleServed(storageKey string, age time.Duration)

	// A background refresh was queued for a soft-stale entry. Fired once per
	// coalescing window (re-triggers while a fetch is in flight are silent).
	RefreshQueued(storageKey string)

	// An upstream fetch resolved with an error; all current waiters got it.
	FetchFailed(storageKey string, err error)

	// A store read failed; the engine fetched upstream without writing back.
	// op is one of "get", "set", "del".
	StoreDegraded(op string, err error)

	// The write-back after a successful fetch failed; the caller still got the payload.
	WriteBackFailed(storageKey string, err error)

	// An entry was deleted by the engine on read.
	// reason is one of "corrupt", "value_decode", "source_version".
	SelfHeal(storageKey, reason string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) StaleServed(string, time.Duration) {}
func (NopHooks) RefreshQueued(string)              {}
func (NopHooks) FetchFailed(string, error)         {}
func (NopHooks) StoreDegraded(string, error)       {}
func (NopHooks) WriteBackFailed(string, error)     {}
func (NopHooks) SelfHeal(string, string)           {}
