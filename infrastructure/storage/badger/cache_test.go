package badger_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/felixgeelhaar/tastate/domain/cache"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/badger"
)

func newTestCache(t *testing.T) *badger.Cache {
	t.Helper()
	c, err := badger.NewCache(badger.DefaultConfig(), badger.WithInMemory())
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := cache.Key("x <= 3", "witness")

	if err := c.Set(ctx, key, []byte(`{"exact":true}`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, found, err := c.Get(ctx, key)
	if err != nil || !found || string(value) != `{"exact":true}` {
		t.Fatalf("Get() = %s, %v, %v", value, found, err)
	}

	if _, found, _ := c.Get(ctx, "missing"); found {
		t.Error("Get() found a missing key")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCache_InvalidKey(t *testing.T) {
	c := newTestCache(t)
	if err := c.Set(context.Background(), "", []byte("v"), cache.SetOptions{}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set() error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_TTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), cache.SetOptions{TTL: time.Second}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "short"); !ok {
		t.Fatal("entry missing before expiry")
	}

	time.Sleep(2100 * time.Millisecond)
	if ok, _ := c.Exists(ctx, "short"); ok {
		t.Error("entry still present after its TTL")
	}
}

func TestCache_KeysDeleteClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"synthesis:a", "synthesis:b", "other:c"} {
		if err := c.Set(ctx, k, []byte("v"), cache.SetOptions{}); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	keys, err := c.Keys(ctx, "synthesis:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "synthesis:a" || keys[1] != "synthesis:b" {
		t.Errorf("Keys() = %v", keys)
	}

	if err := c.Delete(ctx, "synthesis:a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "synthesis:a"); ok {
		t.Error("deleted key still exists")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if keys, _ := c.Keys(ctx, ""); len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v", keys)
	}
}

func TestCache_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := badger.NewCache(badger.DefaultConfig(), badger.WithDir(dir), badger.WithGCInterval(0))
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if err := c.Set(ctx, "k", []byte("kept"), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := badger.NewCache(badger.DefaultConfig(), badger.WithDir(dir))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "k")
	if err != nil || !found || string(value) != "kept" {
		t.Errorf("Get() after reopen = %s, %v, %v", value, found, err)
	}
}

func TestCache_CancelledContext(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v", err)
	}
	if err := c.Clear(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Clear() error = %v", err)
	}
}
