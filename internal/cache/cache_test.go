package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)

	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("missing key must not hit")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)

	if got, _ := c.Get("a"); got != 2 {
		t.Fatalf("Get(a) = %d, want 2", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a so b becomes the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should be present")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry must not hit")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry must not hit")
	}
	c.Delete("a") // deleting again is a no-op
}

func TestCacheNilableValues(t *testing.T) {
	// A stored nil pointer is a legitimate value (negative-result sentinel).
	c := New[*int](10, time.Minute)
	c.Set("a", nil)

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("nil value must still be a cache hit")
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
