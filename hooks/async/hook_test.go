package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type countingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *countingHooks) record(ev string) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *countingHooks) StaleServed(string, time.Duration) { h.record("stale_served") }
func (h *countingHooks) RefreshQueued(string)              { h.record("refresh_queued") }
func (h *countingHooks) FetchFailed(string, error)         { h.record("fetch_failed") }
func (h *countingHooks) StoreDegraded(string, error)       { h.record("store_degraded") }
func (h *countingHooks) WriteBackFailed(string, error)     { h.record("write_back_failed") }
func (h *countingHooks) SelfHeal(string, string)           { h.record("self_heal") }

func (h *countingHooks) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func TestForwardsAllEvents(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 64)

	h.StaleServed("k", time.Second)
	h.RefreshQueued("k")
	h.FetchFailed("k", errors.New("x"))
	h.StoreDegraded("get", errors.New("x"))
	h.WriteBackFailed("k", errors.New("x"))
	h.SelfHeal("k", "corrupt")
	h.Close()

	got := inner.snapshot()
	if len(got) != 6 {
		t.Fatalf("forwarded %d events, want 6: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, ev := range got {
		seen[ev] = true
	}
	for _, ev := range []string{"stale_served", "refresh_queued", "fetch_failed", "store_degraded", "write_back_failed", "self_heal"} {
		if !seen[ev] {
			t.Fatalf("event %q not forwarded", ev)
		}
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingHooks{ch: block}
	h := New(inner, 1, 1)

	// First event occupies the worker, second fills the queue; the rest drop.
	for i := 0; i < 10; i++ {
		h.RefreshQueued("k")
	}

	done := make(chan struct{})
	go func() {
		h.RefreshQueued("k") // must return immediately even with a stuck worker
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("emit blocked on a full queue")
	}

	close(block)
	h.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	h := New(&countingHooks{}, 1, 8)
	h.Close()
	h.Close() // must not panic on double close
}

type blockingHooks struct{ ch chan struct{} }

func (h *blockingHooks) StaleServed(string, time.Duration) {}
func (h *blockingHooks) RefreshQueued(string)              { <-h.ch }
func (h *blockingHooks) FetchFailed(string, error)         {}
func (h *blockingHooks) StoreDegraded(string, error)       {}
func (h *blockingHooks) WriteBackFailed(string, error)     {}
func (h *blockingHooks) SelfHeal(string, string)           {}
