package qingque

import "time"

// Freshness classifies a cached entry against its resource-class TTLs.
type Freshness int

const (
	// Missing: no entry exists; fetch synchronously.
	Missing Freshness = iota
	// Fresh: age < SoftTTL; serve with no fetch.
	Fresh
	// StaleSoft: SoftTTL <= age < HardTTL; serve stale, refresh in background.
	StaleSoft
	// Expired: age >= HardTTL; block for a synchronous refresh.
	Expired
)

func (f Freshness) String() string {
	switch f {
	case Missing:
		return "missing"
	case Fresh:
		return "fresh"
	case StaleSoft:
		return "stale_soft"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// ClassConfig holds the per-resource-class freshness and fetch budget.
// MaxRetries is consumed by the fetcher (see upstream.Config), not by the
// engine; it lives here so one table configures the whole class.
type ClassConfig struct {
	SoftTTL      time.Duration
	HardTTL      time.Duration
	FetchTimeout time.Duration
	MaxRetries   int
}

// DefaultClassConfig mirrors the service defaults for game-data resources.
var DefaultClassConfig = ClassConfig{
	SoftTTL:      5 * time.Minute,
	HardTTL:      30 * time.Minute,
	FetchTimeout: 10 * time.Second,
	MaxRetries:   3,
}

// Classify is the pure freshness decision: given the entry's fetch time and
// the current time, it returns how the entry may be served. A zero fetchedAt
// means no entry exists.
func Classify(fetchedAt, now time.Time, cfg ClassConfig) Freshness {
	if fetchedAt.IsZero() {
		return Missing
	}
	age := now.Sub(fetchedAt)
	switch {
	case age < cfg.SoftTTL:
		return Fresh
	case age < cfg.HardTTL:
		return StaleSoft
	default:
		return Expired
	}
}
