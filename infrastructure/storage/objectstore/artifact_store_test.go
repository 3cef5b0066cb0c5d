package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/artifact"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut string
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memBucket) Put(_ context.Context, key string, content io.Reader, contentType string) error {
	if b.failPut != "" && strings.HasSuffix(key, b.failPut) {
		return errors.New("upload refused")
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.types[key] = contentType
	return nil
}

func (b *memBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBucket) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func TestNewArtifactStore(t *testing.T) {
	t.Parallel()

	if _, err := NewArtifactStore(nil, ""); err == nil {
		t.Error("NewArtifactStore(nil) should fail")
	}
}

func TestArtifactStore_Lifecycle(t *testing.T) {
	t.Parallel()

	bucket := newMemBucket()
	store, err := NewArtifactStore(bucket, "/exports/")
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}
	ctx := context.Background()

	opts := artifact.DefaultStoreOptions().WithID("r1").WithContentType("application/yaml")
	ref, err := store.Store(ctx, strings.NewReader("clocks: [x]\n"), opts)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if _, ok := bucket.objects["exports/r1/content"]; !ok {
		t.Errorf("content key missing, have %v", bucket.objects)
	}
	if bucket.types["exports/r1/content"] != "application/yaml" {
		t.Errorf("content type = %q", bucket.types["exports/r1/content"])
	}

	if _, err := store.Store(ctx, strings.NewReader("again"), opts); !errors.Is(err, artifact.ErrArtifactExists) {
		t.Errorf("Store() duplicate error = %v, want ErrArtifactExists", err)
	}

	meta, err := store.Metadata(ctx, artifact.Ref{ID: "r1"})
	if err != nil || meta.Checksum != ref.Checksum || meta.Size != ref.Size {
		t.Errorf("Metadata() = %+v, %v", meta, err)
	}

	rc, err := store.Retrieve(ctx, ref)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "clocks: [x]\n" {
		t.Errorf("Retrieve() = %q", data)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(bucket.objects) != 0 {
		t.Errorf("Delete() left %d objects", len(bucket.objects))
	}
	if _, err := store.Retrieve(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Retrieve() after Delete error = %v", err)
	}
	if err := store.Delete(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Delete() twice error = %v", err)
	}
}

func TestArtifactStore_MetadataFailureCleansUp(t *testing.T) {
	t.Parallel()

	bucket := newMemBucket()
	bucket.failPut = "metadata.json"
	store, _ := NewArtifactStore(bucket, "")

	if _, err := store.Store(context.Background(), strings.NewReader("x"), artifact.DefaultStoreOptions()); err == nil {
		t.Fatal("Store() should fail when the metadata upload fails")
	}
	if len(bucket.objects) != 0 {
		t.Errorf("failed Store() left %d objects", len(bucket.objects))
	}
}

func TestArtifactStore_InvalidRef(t *testing.T) {
	t.Parallel()

	store, _ := NewArtifactStore(newMemBucket(), "")
	ctx := context.Background()

	if _, err := store.Exists(ctx, artifact.Ref{}); !errors.Is(err, artifact.ErrInvalidRef) {
		t.Errorf("Exists() error = %v, want ErrInvalidRef", err)
	}
	if _, err := store.Store(ctx, strings.NewReader("x"), artifact.StoreOptions{ID: "a/b"}); !errors.Is(err, artifact.ErrInvalidRef) {
		t.Errorf("Store(a/b) error = %v, want ErrInvalidRef", err)
	}
}
