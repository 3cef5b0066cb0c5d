package filesystem

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/artifact"
)

func TestArtifactStore_StoreAndRetrieve(t *testing.T) {
	t.Parallel()

	store, err := NewArtifactStore(filepath.Join(t.TempDir(), "models", "out"))
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}
	ctx := context.Background()

	opts := artifact.DefaultStoreOptions().
		WithID("train-gate-1").
		WithName("train-gate.yaml").
		WithContentType("application/yaml").
		WithMetadata("model", "train-gate")

	ref, err := store.Store(ctx, strings.NewReader("name: train-gate\n"), opts)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref.ID != "train-gate-1" || ref.Size != 17 || ref.Checksum == "" {
		t.Errorf("Store() ref = %+v", ref)
	}

	rc, err := store.Retrieve(ctx, ref)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "name: train-gate\n" {
		t.Errorf("Retrieve() = %q", data)
	}

	meta, err := store.Metadata(ctx, artifact.Ref{ID: ref.ID})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Name != "train-gate.yaml" || meta.Metadata["model"] != "train-gate" || meta.Checksum != ref.Checksum {
		t.Errorf("Metadata() = %+v", meta)
	}

	if _, err := store.Store(ctx, strings.NewReader("again"), opts); !errors.Is(err, artifact.ErrArtifactExists) {
		t.Errorf("Store() duplicate error = %v, want ErrArtifactExists", err)
	}
}

func TestArtifactStore_DeleteAndExists(t *testing.T) {
	t.Parallel()

	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}
	ctx := context.Background()

	ref, err := store.Store(ctx, strings.NewReader("x"), artifact.DefaultStoreOptions())
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, ref); !ok {
		t.Error("Exists() = false after Store")
	}
	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, ref); ok {
		t.Error("Exists() = true after Delete")
	}
	if err := store.Delete(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrArtifactNotFound", err)
	}
	if _, err := store.Retrieve(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestArtifactStore_InvalidRefs(t *testing.T) {
	t.Parallel()

	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := store.Retrieve(ctx, artifact.Ref{ID: id}); !errors.Is(err, artifact.ErrInvalidRef) {
			t.Errorf("Retrieve(%q) error = %v, want ErrInvalidRef", id, err)
		}
	}
	if _, err := store.Store(ctx, strings.NewReader("x"), artifact.StoreOptions{ID: "../escape"}); !errors.Is(err, artifact.ErrInvalidRef) {
		t.Errorf("Store(../escape) error = %v, want ErrInvalidRef", err)
	}
}
