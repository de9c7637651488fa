package registry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestResolveConfigPrecedence(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	static := StaticConfig()
	remote := &Config{TasaCambioUSD: 37.0, Issuers: static.Issuers}

	// Remote wins and refreshes the cache.
	cfg, cached := ResolveConfig(remote, nil, static, now, ConfigTTL)
	if cfg.TasaCambioUSD != 37.0 {
		t.Fatalf("expected remote config, got rate %v", cfg.TasaCambioUSD)
	}
	if cached == nil || !cached.FetchedAt.Equal(now) {
		t.Fatal("remote resolution should produce a fresh cache entry")
	}

	// Fresh cache is used when remote is absent.
	later := now.Add(5 * time.Minute)
	cfg, _ = ResolveConfig(nil, cached, static, later, ConfigTTL)
	if cfg.TasaCambioUSD != 37.0 {
		t.Errorf("expected cached config within TTL, got rate %v", cfg.TasaCambioUSD)
	}

	// Stale cache falls through to the static seed.
	muchLater := now.Add(ConfigTTL + time.Minute)
	cfg, _ = ResolveConfig(nil, cached, static, muchLater, ConfigTTL)
	if cfg.TasaCambioUSD != FallbackTasaCambio {
		t.Errorf("expected static fallback after TTL, got rate %v", cfg.TasaCambioUSD)
	}
}

type flakySource struct {
	cfg   *Config
	fails bool
	calls int
}

func (s *flakySource) FetchConfig(ctx context.Context) (*Config, error) {
	s.calls++
	if s.fails {
		return nil, fmt.Errorf("config record unavailable")
	}
	return s.cfg, nil
}

func TestLoaderDegradesToStatic(t *testing.T) {
	src := &flakySource{fails: true}
	loader := NewLoader(src)

	cfg := loader.Current()
	if cfg.TasaCambioUSD != FallbackTasaCambio {
		t.Errorf("expected static seed on source failure, got %v", cfg.TasaCambioUSD)
	}
	if len(cfg.Issuers) == 0 {
		t.Error("static seed should carry the issuer whitelist")
	}
}

func TestLoaderCachesWithinTTL(t *testing.T) {
	src := &flakySource{cfg: &Config{TasaCambioUSD: 36.9, Issuers: StaticConfig().Issuers}}
	clock := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	loader := NewLoader(src).WithClock(func() time.Time { return clock })

	if got := loader.Current().TasaCambioUSD; got != 36.9 {
		t.Fatalf("expected remote rate, got %v", got)
	}
	loader.Current()
	loader.Current()
	if src.calls != 1 {
		t.Errorf("expected a single remote fetch within TTL, got %d", src.calls)
	}

	// Advancing past the TTL triggers a refetch.
	clock = clock.Add(ConfigTTL + time.Second)
	loader.Current()
	if src.calls != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", src.calls)
	}
}

func TestLoaderInvalidateForcesRefetch(t *testing.T) {
	src := &flakySource{cfg: &Config{TasaCambioUSD: 36.9, Issuers: StaticConfig().Issuers}}
	loader := NewLoader(src)

	loader.Current()
	loader.Current()
	if src.calls != 1 {
		t.Fatalf("expected a single fetch within TTL, got %d", src.calls)
	}

	loader.Invalidate()
	loader.Current()
	if src.calls != 2 {
		t.Errorf("expected refetch after invalidation, got %d calls", src.calls)
	}
}

func TestLoaderBackfillsDefaults(t *testing.T) {
	src := &flakySource{cfg: &Config{Issuers: StaticConfig().Issuers}}
	loader := NewLoader(src)

	cfg := loader.Current()
	if cfg.TasaCambioUSD != FallbackTasaCambio {
		t.Errorf("rate default not applied: %v", cfg.TasaCambioUSD)
	}
	if cfg.UmbralMonedaLocal != DefaultUmbralMonedaLocal {
		t.Errorf("threshold default not applied: %v", cfg.UmbralMonedaLocal)
	}
}
