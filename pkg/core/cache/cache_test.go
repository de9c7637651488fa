package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := NewMemory()
	c.Set("metrics:banpro", 42, time.Minute)

	v, ok := c.Get("metrics:banpro")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(int) != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestExpiryWithFakeClock(t *testing.T) {
	clock := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory().WithClock(func() time.Time { return clock })

	c.Set("k", "v", 10*time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should be live before TTL")
	}

	clock = clock.Add(10*time.Minute + time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should be evicted after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	c := NewMemory()
	c.Set("k", 1, time.Hour)
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("invalidated entry must not be served")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := NewMemory()
	c.Set("metrics:banpro", 1, time.Hour)
	c.Set("metrics:banpro:history", 2, time.Hour)
	c.Set("metrics:lafise", 3, time.Hour)

	c.InvalidatePrefix("metrics:banpro")

	if _, ok := c.Get("metrics:banpro"); ok {
		t.Error("prefix invalidation missed exact key")
	}
	if _, ok := c.Get("metrics:banpro:history"); ok {
		t.Error("prefix invalidation missed nested key")
	}
	if _, ok := c.Get("metrics:lafise"); !ok {
		t.Error("unrelated issuer key must survive")
	}
}
