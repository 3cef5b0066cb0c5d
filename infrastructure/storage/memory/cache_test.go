package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/tastate/domain/cache"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestNewCache(t *testing.T) {
	t.Parallel()

	if got := memory.NewCache().Stats().MaxSize; got != 1024 {
		t.Errorf("default MaxSize = %d, want 1024", got)
	}
	if got := memory.NewCache(memory.WithMaxSize(8)).Stats().MaxSize; got != 8 {
		t.Errorf("MaxSize = %d, want 8", got)
	}
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := memory.NewCache()
	ctx := context.Background()
	key := cache.Key("x <= 3", "witness")

	if err := c.Set(ctx, key, []byte(`{"sequence":[]}`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := c.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if string(value) != `{"sequence":[]}` {
		t.Errorf("Get() value = %s", value)
	}

	// Mutating the returned slice must not affect the stored value.
	value[0] = 'X'
	again, _, _ := c.Get(ctx, key)
	if again[0] != '{' {
		t.Error("cached value was mutated through a returned slice")
	}

	if _, found, _ := c.Get(ctx, "missing"); found {
		t.Error("Get() found a missing key")
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCache_InvalidKey(t *testing.T) {
	t.Parallel()

	err := memory.NewCache().Set(context.Background(), "", []byte("v"), cache.SetOptions{})
	if !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set() error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := memory.NewCache(memory.WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("a"), cache.SetOptions{TTL: time.Minute})
	_ = c.Set(ctx, "forever", []byte("b"), cache.SetOptions{})

	clock.Advance(30 * time.Second)
	if ok, _ := c.Exists(ctx, "short"); !ok {
		t.Error("entry expired early")
	}

	clock.Advance(time.Minute)
	if ok, _ := c.Exists(ctx, "short"); ok {
		t.Error("expired entry still exists")
	}
	if removed := c.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	if _, found, _ := c.Get(ctx, "forever"); !found {
		t.Error("entry without TTL expired")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := memory.NewCache(memory.WithMaxSize(2))
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), cache.SetOptions{})
	_ = c.Set(ctx, "b", []byte("2"), cache.SetOptions{})
	_, _, _ = c.Get(ctx, "a") // b is now least recently used
	_ = c.Set(ctx, "c", []byte("3"), cache.SetOptions{})

	if ok, _ := c.Exists(ctx, "b"); ok {
		t.Error("least recently used entry was not evicted")
	}
	for _, k := range []string{"a", "c"} {
		if ok, _ := c.Exists(ctx, k); !ok {
			t.Errorf("entry %s was evicted", k)
		}
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "a", []byte("4"), cache.SetOptions{})
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	c := memory.NewCache()
	ctx := context.Background()
	_ = c.Set(ctx, "a", []byte("1"), cache.SetOptions{})
	_ = c.Set(ctx, "b", []byte("2"), cache.SetOptions{})

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "a"); ok {
		t.Error("deleted entry still exists")
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
}

func TestCache_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := memory.NewCache()
	if _, _, err := c.Get(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v", err)
	}
	if err := c.Set(ctx, "a", nil, cache.SetOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v", err)
	}
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := memory.NewCache(memory.WithMaxSize(16))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := cache.Key("zone", string(rune('a'+(i+j)%26)))
				_ = c.Set(ctx, key, []byte{byte(j)}, cache.SetOptions{})
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 16 {
		t.Errorf("Size() = %d exceeds max size", c.Size())
	}
}
