package qingque

import (
	"context"
	"sync"
)

// flightResult is the shared outcome of one upstream call: the encoded payload
// as written to the store, plus its version tag.
type flightResult struct {
	payload []byte
	version string
}

// call is one in-flight fetch. done is a one-shot broadcast: the owner fills
// res/err, then closes done; any number of waiters observe the close. The
// channel close gives the happens-before edge for res/err.
type call struct {
	done chan struct{}
	res  flightResult
	err  error
}

// flightGroup enforces at most one outstanding call per key. The mutex guards
// only map mutation; fetch work runs outside it, so unrelated keys never
// serialize on each other.
type flightGroup struct {
	mu       sync.Mutex
	inflight map[string]*call
}

func newFlightGroup() *flightGroup {
	return &flightGroup{inflight: make(map[string]*call)}
}

// begin attaches to the in-flight call for key, creating one if absent.
// started reports whether the caller owns the fetch and must finish it.
func (g *flightGroup) begin(key string) (c *call, started bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.inflight[key]; ok {
		return c, false
	}
	c = &call{done: make(chan struct{})}
	g.inflight[key] = c
	return c, true
}

// finish resolves the call and wakes every waiter with the identical outcome.
// The registry entry is removed first so the next fetch for key opens a new
// coalescing window.
func (g *flightGroup) finish(key string, c *call, res flightResult, err error) {
	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	c.res = res
	c.err = err
	close(c.done)
}

// pending reports whether a call for key is outstanding.
func (g *flightGroup) pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}

// await blocks until the call resolves or ctx is done. An abandoning caller
// simply stops observing; the fetch is not owned by any single caller and
// keeps running for the remaining waiters.
func await(ctx context.Context, c *call) (flightResult, error) {
	select {
	case <-c.done:
		return c.res, c.err
	case <-ctx.Done():
		return flightResult{}, ctx.Err()
	}
}
