package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Source fetches the remote registry configuration record. The Postgres
// config repo implements this; tests supply fakes.
type Source interface {
	FetchConfig(ctx context.Context) (*Config, error)
}

// Cached is a previously fetched remote config plus its fetch time.
type Cached struct {
	Config    *Config
	FetchedAt time.Time
}

// ResolveConfig applies the layered precedence rule as a pure function:
// a live remote config wins and refreshes the cache; otherwise a cached copy
// is used while it is within ttl; otherwise the static seed. The returned
// Cached is the cache state after this resolution.
func ResolveConfig(remote *Config, cached *Cached, static *Config, now time.Time, ttl time.Duration) (*Config, *Cached) {
	if remote != nil {
		return remote, &Cached{Config: remote, FetchedAt: now}
	}
	if cached != nil && cached.Config != nil && now.Sub(cached.FetchedAt) <= ttl {
		return cached.Config, cached
	}
	return static, cached
}

// Loader resolves the runtime config on demand, going to the remote source
// at most once per TTL window and degrading to the hardcoded seed when the
// source is unreachable.
type Loader struct {
	source Source
	static *Config
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	cached *Cached
}

// NewLoader builds a loader over a remote source. A nil source is allowed and
// yields the static seed forever.
func NewLoader(source Source) *Loader {
	return &Loader{
		source: source,
		static: StaticConfig(),
		ttl:    ConfigTTL,
		now:    time.Now,
	}
}

// NewStaticLoader returns a loader with no remote source.
func NewStaticLoader() *Loader {
	return NewLoader(nil)
}

// WithClock swaps the clock, so tests can assert staleness without sleeping.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Current returns the effective config. Remote failures are logged at this
// boundary and never propagate: the resolver keeps working on the last good
// or static config.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cached != nil && now.Sub(l.cached.FetchedAt) <= l.ttl {
		return l.cached.Config
	}

	var remote *Config
	if l.source != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		fetched, err := l.source.FetchConfig(ctx)
		cancel()
		if err != nil {
			fmt.Printf("[RESOLVE] remote config fetch failed, degrading: %v\n", err)
		} else {
			remote = withDefaults(fetched)
		}
	}

	cfg, cached := ResolveConfig(remote, l.cached, l.static, now, l.ttl)
	l.cached = cached
	return cfg
}

// Invalidate drops the cached remote config so the next Current() refetches.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// withDefaults backfills rate and threshold on remote records that only carry
// the issuer tables.
func withDefaults(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	if cfg.TasaCambioUSD == 0 {
		cfg.TasaCambioUSD = FallbackTasaCambio
	}
	if cfg.UmbralMonedaLocal == 0 {
		cfg.UmbralMonedaLocal = DefaultUmbralMonedaLocal
	}
	return cfg
}
