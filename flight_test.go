package qingque

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFlightBeginAttach(t *testing.T) {
	g := newFlightGroup()

	c1, started := g.begin("k")
	if !started {
		t.Fatalf("first begin did not start the call")
	}
	c2, started := g.begin("k")
	if started || c2 != c1 {
		t.Fatalf("second begin did not attach to the in-flight call")
	}
	if !g.pending("k") {
		t.Fatalf("pending = false with a call in flight")
	}

	g.finish("k", c1, flightResult{payload: []byte("p"), version: "v"}, nil)
	if g.pending("k") {
		t.Fatalf("pending = true after finish")
	}

	// Next begin opens a new window.
	c3, started := g.begin("k")
	if !started || c3 == c1 {
		t.Fatalf("begin after finish did not open a new window")
	}
	g.finish("k", c3, flightResult{}, nil)
}

func TestFlightFanOut(t *testing.T) {
	g := newFlightGroup()
	c, _ := g.begin("k")

	const n = 10
	var wg sync.WaitGroup
	results := make([]flightResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = await(context.Background(), c)
		}(i)
	}

	want := flightResult{payload: []byte("out"), version: "v1"}
	g.finish("k", c, want, nil)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil || results[i].version != want.version || string(results[i].payload) != "out" {
			t.Fatalf("waiter %d: res=%+v err=%v", i, results[i], errs[i])
		}
	}
}

func TestFlightErrorFanOut(t *testing.T) {
	g := newFlightGroup()
	c, _ := g.begin("k")
	boom := errors.New("boom")

	done := make(chan error, 1)
	go func() {
		_, err := await(context.Background(), c)
		done <- err
	}()

	g.finish("k", c, flightResult{}, boom)
	if err := <-done; !errors.Is(err, boom) {
		t.Fatalf("await error = %v, want %v", err, boom)
	}
}

func TestAwaitRespectsContext(t *testing.T) {
	g := newFlightGroup()
	c, _ := g.begin("k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := await(ctx, c)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("await error = %v, want context.DeadlineExceeded", err)
	}
	// The call is still in flight for everyone else.
	if !g.pending("k") {
		t.Fatalf("abandoning a wait tore down the in-flight call")
	}
	g.finish("k", c, flightResult{}, nil)
}
