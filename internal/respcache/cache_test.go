package respcache

import (
	"fmt"
	"testing"
	"time"
)

func TestLookupMissesUntilStored(t *testing.T) {
	cache := New(time.Second, 4)

	if _, ok := cache.Lookup("status"); ok {
		t.Fatal("lookup on empty cache must miss")
	}
	cache.Store("status", []byte(`{"power":true}`))
	body, ok := cache.Lookup("status")
	if !ok {
		t.Fatal("expected hit after store")
	}
	if string(body) != `{"power":true}` {
		t.Fatalf("body = %q", body)
	}
}

func TestLookupNeverReturnsExpiredEntry(t *testing.T) {
	current := time.Now()
	cache := New(time.Second, 4, WithClock(func() time.Time { return current }))

	cache.Store("status", []byte(`{}`))
	current = current.Add(999 * time.Millisecond)
	if _, ok := cache.Lookup("status"); !ok {
		t.Fatal("entry inside TTL must hit")
	}

	current = current.Add(time.Millisecond)
	if _, ok := cache.Lookup("status"); ok {
		t.Fatal("entry at TTL must miss")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry not removed, len = %d", cache.Len())
	}
}

func TestStoreRefreshesTimestamp(t *testing.T) {
	current := time.Now()
	cache := New(time.Second, 4, WithClock(func() time.Time { return current }))

	cache.Store("status", []byte(`{"v":1}`))
	current = current.Add(900 * time.Millisecond)
	cache.Store("status", []byte(`{"v":2}`))
	current = current.Add(900 * time.Millisecond)

	body, ok := cache.Lookup("status")
	if !ok {
		t.Fatal("restored entry must be live 900ms after the second store")
	}
	if string(body) != `{"v":2}` {
		t.Fatalf("body = %q", body)
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	cache := New(time.Minute, 3)

	cache.Store("a", []byte("1"))
	cache.Store("b", []byte("2"))
	cache.Store("c", []byte("3"))

	// Touch a so b becomes the coldest entry.
	if _, ok := cache.Lookup("a"); !ok {
		t.Fatal("a missing")
	}
	cache.Store("d", []byte("4"))

	if _, ok := cache.Lookup("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := cache.Lookup(key); !ok {
			t.Fatalf("%s should survive eviction", key)
		}
	}
	if cache.Len() != 3 {
		t.Fatalf("len = %d, want 3", cache.Len())
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	cache := New(time.Minute, 16)

	cache.Store("transports/0", []byte("{}"))
	cache.Store("transports/0/clips", []byte("{}"))
	cache.Store("transports/1", []byte("{}"))
	cache.Store("status", []byte("{}"))

	removed := cache.Invalidate("transports/0")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok := cache.Lookup("transports/1"); !ok {
		t.Fatal("transports/1 must survive")
	}
	if _, ok := cache.Lookup("status"); !ok {
		t.Fatal("status must survive")
	}

	removed = cache.Invalidate("status", "clips")
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}
}

func TestInvalidateWithoutPrefixesIsNoop(t *testing.T) {
	cache := New(time.Minute, 4)
	cache.Store("status", []byte("{}"))
	if removed := cache.Invalidate(); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if cache.Len() != 1 {
		t.Fatal("entry dropped by empty invalidate")
	}
}

func TestPurge(t *testing.T) {
	cache := New(time.Minute, 8)
	for i := 0; i < 5; i++ {
		cache.Store(fmt.Sprintf("transports/%d", i), []byte("{}"))
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Fatalf("len = %d after purge", cache.Len())
	}
	if _, ok := cache.Lookup("transports/0"); ok {
		t.Fatal("purged entry still live")
	}
}

func TestCallerCannotMutateCachedBody(t *testing.T) {
	cache := New(time.Minute, 4)

	original := []byte(`{"status":"play"}`)
	cache.Store("transports/0", original)
	original[2] = 'X'

	body, ok := cache.Lookup("transports/0")
	if !ok {
		t.Fatal("miss")
	}
	if string(body) != `{"status":"play"}` {
		t.Fatalf("stored body aliased caller slice: %q", body)
	}

	body[2] = 'Y'
	again, _ := cache.Lookup("transports/0")
	if string(again) != `{"status":"play"}` {
		t.Fatalf("returned body aliased cache storage: %q", again)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	if _, ok := cache.Lookup("status"); ok {
		t.Fatal("nil cache hit")
	}
	cache.Store("status", []byte("{}"))
	cache.Purge()
	if cache.Invalidate("status") != 0 {
		t.Fatal("nil cache invalidate")
	}
	if cache.Len() != 0 {
		t.Fatal("nil cache len")
	}
}
