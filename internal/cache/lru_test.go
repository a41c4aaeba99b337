package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCapacityEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a is now most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("unexpected evictions %v", evicted)
	}
}

func TestLRUExpiryAndTouch(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.advance(50 * time.Second)
	if !c.Touch("a") {
		t.Fatalf("expected touch to succeed")
	}
	clk.advance(20 * time.Second)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("touched entry should be alive")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("untouched entry should have expired")
	}
	if c.Touch("b") {
		t.Fatalf("touch on missing entry should fail")
	}
}

func TestCleanExpiredAndDelete(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	evictions := 0
	c.OnEvict(func(string, string) { evictions++ })
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Delete("c")
	if evictions != 0 {
		t.Fatalf("delete must not count as eviction")
	}

	clk.advance(2 * time.Minute)
	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if c.Size() != 0 || evictions != 2 {
		t.Fatalf("size=%d evictions=%d", c.Size(), evictions)
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
