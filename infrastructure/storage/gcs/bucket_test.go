package gcs

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/felixgeelhaar/tastate/infrastructure/storage/objectstore"
)

func TestNewBucket_RequiresName(t *testing.T) {
	t.Parallel()

	if _, err := NewBucket(context.Background(), Config{}); err == nil {
		t.Error("NewBucket() without a bucket name should fail")
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	if err := mapError(storage.ErrObjectNotExist); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Errorf("mapError(ErrObjectNotExist) = %v, want ErrObjectNotFound", err)
	}
	other := errors.New("permission denied")
	if err := mapError(other); err != other {
		t.Errorf("mapError() = %v, want the original error", err)
	}
}
