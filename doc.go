// Package qingque implements the data-fetch caching and coalescing core of the
// Qingque companion API: it turns many concurrent requests for the same logical
// game resource (a player profile, a chronicle page, an asset) into at most one
// upstream call per key, keeps results in a shared byte store under explicit
// freshness rules, and serves derived artifacts (e.g. rendered player cards)
// without duplicating expensive work.
//
// Components:
//   - Engine: the singleflight coordinator. Resolve is the sole entry point for
//     the HTTP layer; concurrent resolves of one key share a single fetch.
//   - Freshness policy: per-resource-class soft/hard TTLs. Soft-stale entries
//     are served immediately while a background refresh runs; hard-expired
//     entries block until a fresh fetch completes.
//   - Fetcher: the outbound call to the data source (see package upstream for
//     the HTTP implementation with retries and an optional circuit breaker).
//   - store.Store: byte store with TTL (Redis, Ristretto, BigCache).
//   - Builder: derived artifacts cached under (derivedKey, sourceVersion) and
//     lazily recomputed when the source version moves.
//
// Keys:
//
//	res:<ns>:<class>:<id>           - cached source entries
//	art:<kind>:<class>:<id>[:<var>] - derived artifacts
//
// Resolve pattern:
//
//	eng, _ := qingque.New[Player](qingque.Options[Player]{
//	    Namespace: "prod",
//	    Store:     st,
//	    Codec:     codec.JSON[Player]{},
//	    Fetcher:   mihomoClient,
//	    Classes:   map[string]qingque.ClassConfig{"profile": {SoftTTL: time.Minute, HardTTL: 5 * time.Minute}},
//	})
//	p, err := eng.Resolve(ctx, qingque.Key{Class: "profile", ID: "800000123"})
package qingque
