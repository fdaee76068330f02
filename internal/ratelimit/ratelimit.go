// Package ratelimit provides the per-host token-bucket limiter the spec
// requires (§5): default 5 requests/second, with overrides for
// doem.org.br and adiarios.com.br at 3 rps. It mirrors the teacher's
// RateLimitedFetcher (internal/ingest/fetcher_http.go in the example
// pack) — a per-domain map guarded by sync.RWMutex with double-checked
// locking — but swaps the teacher's manual ticker for
// golang.org/x/time/rate.Limiter, the library the teacher already
// carried as an indirect dependency.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

const (
	defaultRPS        = 5.0
	defaultBurst      = 1
	starvationTimeout = 15 * time.Second
)

// hostOverrides holds the explicit per-host rates the spec names.
var hostOverrides = map[string]float64{
	"doem.org.br":     3,
	"adiarios.com.br": 3,
}

// Limiter is a registry of per-host token buckets. Zero value is not
// usable; construct with New.
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	overrides map[string]float64
	defaultRPS float64
}

// New constructs a Limiter using the spec's default rates. extraOverrides
// may add or replace per-host rates (e.g. from operational config).
func New(extraOverrides map[string]float64) *Limiter {
	merged := make(map[string]float64, len(hostOverrides)+len(extraOverrides))
	for host, rps := range hostOverrides {
		merged[host] = rps
	}
	for host, rps := range extraOverrides {
		merged[host] = rps
	}
	return &Limiter{
		buckets:    make(map[string]*rate.Limiter),
		overrides:  merged,
		defaultRPS: defaultRPS,
	}
}

// HostOf extracts the rate-limit key (bare hostname, no port) from a URL.
func HostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("ratelimit: parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("ratelimit: url %q has no host", rawURL)
	}
	return strings.ToLower(host), nil
}

func (l *Limiter) bucketFor(host string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[host]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[host]; ok {
		return b
	}

	rps := l.defaultRPS
	if override, ok := l.overrides[host]; ok {
		rps = override
	}
	b = rate.NewLimiter(rate.Limit(rps), defaultBurst)
	l.buckets[host] = b
	return b
}

// Wait blocks until a token is available for the host implied by rawURL,
// or returns a starvation error if none becomes available within
// starvationTimeout. Suspension here is one of the cooperative-suspension
// points the concurrency model (§5) names.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := HostOf(rawURL)
	if err != nil {
		return err
	}
	b := l.bucketFor(host)

	waitCtx, cancel := context.WithTimeout(ctx, starvationTimeout)
	defer cancel()

	if err := b.Wait(waitCtx); err != nil {
		return gazette.NewError("ratelimit.wait", gazette.ErrRateLimited, fmt.Errorf("starved waiting for %s: %w", host, err))
	}
	return nil
}

// RPSFor reports the configured rate for host, for diagnostics/tests.
func (l *Limiter) RPSFor(host string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if override, ok := l.overrides[strings.ToLower(host)]; ok {
		return override
	}
	return l.defaultRPS
}
