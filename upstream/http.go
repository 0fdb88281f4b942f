// Package upstream implements the outbound HTTP fetcher for game-data
// sources. It is stateless per key: the engine guarantees one in-flight call
// per key, this package guarantees the call respects its deadline, retries
// transient failures with exponential backoff, and maps failures onto the
// engine's error taxonomy.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"

	qingque "github.com/naoTimesdev/qingque-api"
	c "github.com/naoTimesdev/qingque-api/codec"
	"github.com/naoTimesdev/qingque-api/internal/util"
)

// RouteFunc maps a logical key onto the upstream URL for its resource.
type RouteFunc func(key qingque.Key) (string, error)

// Config tunes a Client. Route and Codec are required.
type Config[V any] struct {
	// Route builds the request URL for a key.
	Route RouteFunc
	// Codec decodes the upstream response body into V.
	Codec c.Codec[V]

	HTTPClient     *http.Client   // nil => http.DefaultClient
	Header         http.Header    // static headers (User-Agent, auth cookies)
	MaxRetries     int            // transient retries after the first attempt; 0 => 3
	ClassRetries   map[string]int // per-class override of MaxRetries
	RetryBaseDelay time.Duration  // backoff base; 0 => 100ms
	RetryMaxDelay  time.Duration  // backoff cap; 0 => 2s
	MaxBodyBytes   int64          // response size cap; 0 => 8 MiB

	// Breaker, when non-nil, adds a circuit breaker around individual
	// attempts. An open breaker fails fast as upstream-unavailable without
	// touching the network.
	Breaker *gobreaker.Settings
}

type attempt struct {
	body []byte
	etag string
}

// Client fetches and decodes one resource class family over HTTP.
type Client[V any] struct {
	route        RouteFunc
	codec        c.Codec[V]
	hc           *http.Client
	header       http.Header
	maxRetries   int
	classRetries map[string]int
	baseDelay    time.Duration
	maxDelay     time.Duration
	maxBody      int64
	cb           *gobreaker.CircuitBreaker[attempt]
}

var _ qingque.Fetcher[struct{}] = (*Client[struct{}])(nil)

func New[V any](cfg Config[V]) (*Client[V], error) {
	if cfg.Route == nil {
		return nil, errors.New("upstream: route func is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("upstream: codec is required")
	}
	cl := &Client[V]{
		route:        cfg.Route,
		codec:        cfg.Codec,
		hc:           cfg.HTTPClient,
		header:       cfg.Header,
		maxRetries:   cfg.MaxRetries,
		classRetries: cfg.ClassRetries,
		baseDelay:    cfg.RetryBaseDelay,
		maxDelay:     cfg.RetryMaxDelay,
		maxBody:      cfg.MaxBodyBytes,
	}
	if cl.hc == nil {
		cl.hc = http.DefaultClient
	}
	if cl.maxRetries <= 0 {
		cl.maxRetries = 3
	}
	if cl.baseDelay <= 0 {
		cl.baseDelay = 100 * time.Millisecond
	}
	if cl.maxDelay <= 0 {
		cl.maxDelay = 2 * time.Second
	}
	if cl.maxBody <= 0 {
		cl.maxBody = 8 << 20
	}
	if cfg.Breaker != nil {
		cl.cb = gobreaker.NewCircuitBreaker[attempt](*cfg.Breaker)
	}
	return cl, nil
}

func (cl *Client[V]) retries(class string) int {
	if n, ok := cl.classRetries[class]; ok && n >= 0 {
		return n
	}
	return cl.maxRetries
}

// Fetch performs the upstream call for key under ctx's deadline, retrying
// transient failures. Semantic errors (not-found) propagate immediately.
func (cl *Client[V]) Fetch(ctx context.Context, key qingque.Key) (qingque.Result[V], error) {
	var zero qingque.Result[V]

	url, err := cl.route(key)
	if err != nil {
		return zero, fmt.Errorf("upstream: route %s: %w", key, err)
	}

	res, err := retry.NewWithData[attempt](
		retry.Context(ctx),
		retry.Attempts(uint(cl.retries(key.Class))+1),
		retry.Delay(cl.baseDelay),
		retry.MaxDelay(cl.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	).Do(func() (attempt, error) {
		return cl.guarded(ctx, url)
	})
	if err != nil {
		return zero, mapTerminal(err)
	}

	v, derr := cl.codec.Decode(res.body)
	if derr != nil {
		return zero, fmt.Errorf("upstream: decode %s: %w", key, derr)
	}
	version := res.etag
	if version == "" {
		version = util.ShortHash(res.body)
	}
	return qingque.Result[V]{Value: v, Version: version}, nil
}

// guarded is one HTTP round trip, breaker-guarded when configured.
func (cl *Client[V]) guarded(ctx context.Context, url string) (attempt, error) {
	if cl.cb == nil {
		return cl.doOnce(ctx, url)
	}
	res, err := cl.cb.Execute(func() (attempt, error) {
		return cl.doOnce(ctx, url)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// fast-fail without a network attempt; not transient from our side
		return attempt{}, fmt.Errorf("%w: circuit open", qingque.ErrUpstreamUnavailable)
	}
	return res, err
}

func (cl *Client[V]) doOnce(ctx context.Context, url string) (attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return attempt{}, err
	}
	for k, vals := range cl.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := cl.hc.Do(req)
	if err != nil {
		return attempt{}, err // transport error; retried
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return attempt{}, fmt.Errorf("%w: %s", qingque.ErrUpstreamNotFound, url)
	case resp.StatusCode >= 500:
		// drain so the connection can be reused across retries
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return attempt{}, &statusError{code: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return attempt{}, fmt.Errorf("%w: unexpected status %d", qingque.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cl.maxBody))
	if err != nil {
		return attempt{}, err
	}
	return attempt{body: body, etag: cleanETag(resp.Header.Get("ETag"))}, nil
}

// statusError marks a retryable upstream status (5xx).
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("upstream status %d", e.code) }

// isTransient: network errors and 5xx retry; anything already mapped onto the
// engine taxonomy (not-found, unavailable, circuit open) does not.
func isTransient(err error) bool {
	if errors.Is(err, qingque.ErrUpstreamNotFound) ||
		errors.Is(err, qingque.ErrUpstreamUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// mapTerminal converts the last attempt error into the engine taxonomy.
func mapTerminal(err error) error {
	switch {
	case errors.Is(err, qingque.ErrUpstreamNotFound),
		errors.Is(err, qingque.ErrUpstreamUnavailable),
		errors.Is(err, qingque.ErrUpstreamTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", qingque.ErrUpstreamTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", qingque.ErrUpstreamUnavailable, err)
	}
}

// cleanETag strips weak markers and quotes: `W/"abc"` -> `abc`.
func cleanETag(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
