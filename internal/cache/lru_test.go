package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("a", "1")
	if got, ok := c.Get("a"); !ok || got != "1" {
		t.Fatalf("expected hit with 1, got %q ok=%v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newest entry should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheRecentUseSurvivesEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // moves a to the front
	c.Set("c", 3)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry should survive")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("expenses:1:p1:q", 1)
	c.Set("expenses:1:p2:q", 2)
	c.Set("expenses:2:p1:q", 3)
	c.Set("budgets:1:p1:q", 4)

	if removed := c.DeletePrefix("expenses:1:"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("expenses:1:p1:q"); ok {
		t.Fatal("prefixed entry should be gone")
	}
	if _, ok := c.Get("expenses:2:p1:q"); !ok {
		t.Fatal("other user's entry should survive")
	}
	if _, ok := c.Get("budgets:1:p1:q"); !ok {
		t.Fatal("other entity's entry should survive")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)
	// fresh has a new deadline relative to insertion
	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("expected 2 expired, got %d", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestManagerSweep(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	c.Set("a", 1)
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	if c.Size() != 0 {
		t.Fatalf("sweeper should have dropped the expired entry, size=%d", c.Size())
	}
}
