package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/tastate/domain/cache"
)

func newTestCache(t *testing.T, prefix string) *Cache {
	t.Helper()
	cfg := FileConfig(t.TempDir() + "/cache.db")
	cfg.KeyPrefix = prefix
	c, err := NewCache(cfg)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	c := newTestCache(t, "")
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v1"), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v2"), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	val, found, err := c.Get(ctx, "k")
	if err != nil || !found || string(val) != "v2" {
		t.Fatalf("Get() = %q, %v, %v; want v2, true, nil", val, found, err)
	}

	_, found, err = c.Get(ctx, "missing")
	if err != nil || found {
		t.Errorf("Get(missing) = %v, %v; want false, nil", found, err)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCache_TTL(t *testing.T) {
	c := newTestCache(t, "")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "short", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "forever", []byte("v"), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if ok, _ := c.Exists(ctx, "short"); !ok {
		t.Fatal("Exists(short) = false before expiry")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.Exists(ctx, "short"); ok {
		t.Error("Exists(short) = true after expiry")
	}

	removed, err := c.Cleanup(ctx)
	if err != nil || removed != 1 {
		t.Errorf("Cleanup() = %d, %v; want 1, nil", removed, err)
	}
	if _, found, _ := c.Get(ctx, "forever"); !found {
		t.Error("entry without TTL expired")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := newTestCache(t, "a:")
	other, err := NewCacheFromDB(c.DB(), "b:")
	if err != nil {
		t.Fatalf("NewCacheFromDB() error = %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"1", "2"} {
		_ = c.Set(ctx, key, []byte("x"), cache.SetOptions{})
		_ = other.Set(ctx, key, []byte("y"), cache.SetOptions{})
	}

	if err := c.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "1"); ok {
		t.Error("Exists() after Delete = true")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "2"); ok {
		t.Error("Clear() kept an entry under its own prefix")
	}
	if ok, _ := other.Exists(ctx, "2"); !ok {
		t.Error("Clear() removed an entry under another prefix")
	}
}

func TestCache_Errors(t *testing.T) {
	c := newTestCache(t, "")

	if err := c.Set(context.Background(), "", []byte("v"), cache.SetOptions{}); err != cache.ErrInvalidKey {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get() with cancelled context should fail")
	}
}
