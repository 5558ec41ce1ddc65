package idcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/notetrack/notetrack/internal/statestore"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	store, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := Load(store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestTTLBoundary(t *testing.T) {
	c, now := newTestCache(t)
	base := *now

	if err := c.Set("PROJ-1", "story", "1001", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Any query time strictly before expiry hits.
	*now = base.Add(time.Hour - time.Second)
	if _, _, ok := c.Get("PROJ-1"); !ok {
		t.Error("Get just before expiry missed")
	}

	// Query time at or past expiry misses and purges.
	*now = base.Add(time.Hour)
	if _, _, ok := c.Get("PROJ-1"); ok {
		t.Error("Get at expiry hit")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not purged, len = %d", c.Len())
	}
}

func TestLRUEvictsFirstInserted(t *testing.T) {
	c, _ := newTestCache(t)

	for i := 0; i < Capacity+1; i++ {
		key := fmt.Sprintf("K-%d", i)
		if err := c.Set(key, "task", fmt.Sprintf("%d", i), time.Hour); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	if _, _, ok := c.Get("K-0"); ok {
		t.Error("first-inserted key survived capacity+1 inserts")
	}
	for i := 1; i <= Capacity; i++ {
		if _, _, ok := c.Get(fmt.Sprintf("K-%d", i)); !ok {
			t.Errorf("key K-%d evicted, want present", i)
		}
	}
}

func TestGetProtectsFromEviction(t *testing.T) {
	c, _ := newTestCache(t)

	if err := c.Set("keep", "story", "7", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for i := 0; i < Capacity-1; i++ {
		if err := c.Set(fmt.Sprintf("F-%d", i), "task", "x", time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	// "keep" is now LRU; touching it moves it to MRU.
	if _, _, ok := c.Get("keep"); !ok {
		t.Fatal("keep missing before churn")
	}

	// capacity more inserts evict everything older than the touch.
	for i := 0; i < Capacity-1; i++ {
		if err := c.Set(fmt.Sprintf("G-%d", i), "task", "x", time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if _, _, ok := c.Get("keep"); !ok {
		t.Error("touched key evicted before becoming LRU again")
	}

	// One more insert after keep is LRU again evicts it.
	c.touch("keep")
	for i := 0; i < Capacity; i++ {
		if err := c.Set(fmt.Sprintf("H-%d", i), "task", "x", time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if _, _, ok := c.Get("keep"); ok {
		t.Error("key survived a full capacity of newer inserts")
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t)

	for i := 0; i < Capacity; i++ {
		if err := c.Set(fmt.Sprintf("K-%d", i), "task", "x", time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	// Overwriting an existing key at capacity must not evict anything.
	if err := c.Set("K-0", "task", "y", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if c.Len() != Capacity {
		t.Errorf("len = %d, want %d", c.Len(), Capacity)
	}
	if _, id, ok := c.Get("K-0"); !ok || id != "y" {
		t.Errorf("Get(K-0) = %q,%v, want y,true", id, ok)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := statestore.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	c := Load(store)
	if err := c.Set("PROJ-9", "bug", "42", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reloaded := Load(store)
	typeKey, entityID, ok := reloaded.Get("PROJ-9")
	if !ok {
		t.Fatal("entry lost across reload")
	}
	if typeKey != "bug" || entityID != "42" {
		t.Errorf("reloaded entry = %s/%s, want bug/42", typeKey, entityID)
	}
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t)

	_ = c.Set("a", "t", "1", time.Hour)
	_ = c.Set("b", "t", "2", time.Hour)

	c.Clear("a")
	if _, _, ok := c.Get("a"); ok {
		t.Error("cleared key still present")
	}
	if _, _, ok := c.Get("b"); !ok {
		t.Error("unrelated key cleared")
	}

	c.ClearAll()
	if c.Len() != 0 {
		t.Errorf("ClearAll left %d entries", c.Len())
	}
}
