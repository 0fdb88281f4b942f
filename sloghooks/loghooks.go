// Package sloghooks logs engine hook events through log/slog, with sampling
// for the chatty ones.
//
// Usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StaleServedEvery: 10, // sample: ~every 10th stale serve
//	    SelfHealEvery:    1,  // log every self-heal
//	})
//	hooks := asynchook.New(raw, 1, 1000)
//	defer hooks.Close()
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	qingque "github.com/naoTimesdev/qingque-api"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleServedEvery uint64
	SelfHealEvery    uint64
	// Optional key redactor. Defaults to SHA-256 prefix (player UIDs are in keys).
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ qingque.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StaleServed(storageKey string, age time.Duration) {
	if h.l == nil || !sample(h.opts.StaleServedEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("qingque.stale_served",
		"key", h.redact(storageKey),
		"age", age)
}

func (h *Hooks) RefreshQueued(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("qingque.refresh_queued", "key", h.redact(storageKey))
}

func (h *Hooks) FetchFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("qingque.fetch_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) StoreDegraded(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("qingque.store_degraded",
		"op", op,
		"err", err)
}

func (h *Hooks) WriteBackFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("qingque.write_back_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("qingque.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}
