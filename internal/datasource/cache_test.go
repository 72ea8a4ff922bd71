package datasource

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	cache := NewCache(t.TempDir(), time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected miss for absent key, got hit")
	}

	if err := cache.Set("klines", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, ok := cache.Get("klines")
	if !ok {
		t.Fatal("Expected hit after Set, got miss")
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("Expected cached payload, got %s", data)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCache(t.TempDir(), 20*time.Millisecond)

	if err := cache.Set("ticker", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := cache.Get("ticker"); !ok {
		t.Fatal("Expected hit before TTL, got miss")
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok := cache.Get("ticker"); ok {
		t.Error("Expected miss after TTL, got hit")
	}
}

func TestCacheGetOrFetch(t *testing.T) {
	cache := NewCache(t.TempDir(), time.Minute)

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	}

	for i := 0; i < 3; i++ {
		data, err := cache.GetOrFetch("coin", fetch)
		if err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if string(data) != "fresh" {
			t.Errorf("Expected fresh payload, got %s", data)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch call, got %d", calls)
	}
}

func TestCacheGetOrFetchError(t *testing.T) {
	cache := NewCache(t.TempDir(), time.Minute)

	wantErr := errors.New("upstream down")
	_, err := cache.GetOrFetch("bad", func() ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected fetch error passed through, got %v", err)
	}
	if _, ok := cache.Get("bad"); ok {
		t.Error("Expected no cache entry after fetch error, got hit")
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, 20*time.Millisecond)

	cache.Set("stale", []byte("x"))
	time.Sleep(30 * time.Millisecond)

	if err := cache.CleanupExpired(); err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries after cleanup, got %d", len(entries))
	}
}

func TestRequestKeyStable(t *testing.T) {
	a := RequestKey("https://api.example.com/v1", map[string]string{"symbol": "BTC", "interval": "1d"})
	b := RequestKey("https://api.example.com/v1", map[string]string{"interval": "1d", "symbol": "BTC"})
	if a != b {
		t.Errorf("Expected stable key regardless of param order, got %q vs %q", a, b)
	}

	bare := RequestKey("https://api.example.com/v1", nil)
	if bare != "https://api.example.com/v1" {
		t.Errorf("Expected bare URL key with no params, got %q", bare)
	}
}
