// Package asynchook decouples slow hook sinks from the engine's hot paths:
// events are queued and replayed by workers; a full queue drops events rather
// than blocking a resolve.
package asynchook

import (
	"sync"
	"time"

	qingque "github.com/naoTimesdev/qingque-api"
)

type Hooks struct {
	inner qingque.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ qingque.Hooks = (*Hooks)(nil)

func New(inner qingque.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) StaleServed(k string, age time.Duration) {
	h.try(func() { h.inner.StaleServed(k, age) })
}
func (h *Hooks) RefreshQueued(k string)        { h.try(func() { h.inner.RefreshQueued(k) }) }
func (h *Hooks) FetchFailed(k string, e error) { h.try(func() { h.inner.FetchFailed(k, e) }) }
func (h *Hooks) StoreDegraded(op string, e error) {
	h.try(func() { h.inner.StoreDegraded(op, e) })
}
func (h *Hooks) WriteBackFailed(k string, e error) {
	h.try(func() { h.inner.WriteBackFailed(k, e) })
}
func (h *Hooks) SelfHeal(k, reason string) { h.try(func() { h.inner.SelfHeal(k, reason) }) }
