package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("summary:this-month"); ok {
		t.Error("Get on empty cache returned a value")
	}

	c.Set("summary:this-month", "payload")
	got, ok := c.Get("summary:this-month")
	if !ok || got != "payload" {
		t.Errorf("Get = (%q, %v), want (payload, true)", got, ok)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a so b becomes eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned from Get")
	}
	if cleaned := c.CleanExpired(); cleaned != 0 {
		// Get already removed the expired entry
		t.Errorf("CleanExpired = %d, want 0", cleaned)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Errorf("CleanExpired = %d, want 2", cleaned)
	}
	if c.Size() != 0 {
		t.Errorf("Size after cleanup = %d, want 0", c.Size())
	}
}

func TestLRUCacheInvalidatePrefix(t *testing.T) {
	c := NewLRUCache[string](8, time.Minute)

	c.Set("forecast:2024-01:6", "a")
	c.Set("forecast:2024-02:6", "b")
	c.Set("summary:this-month", "c")

	if removed := c.InvalidatePrefix("forecast:"); removed != 2 {
		t.Errorf("InvalidatePrefix = %d, want 2", removed)
	}
	if _, ok := c.Get("forecast:2024-01:6"); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get("summary:this-month"); !ok {
		t.Error("entry outside prefix was removed")
	}
}

func TestLRUCacheClear(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size after Clear = %d, want 0", c.Size())
	}
	c.Set("c", 3)
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}
