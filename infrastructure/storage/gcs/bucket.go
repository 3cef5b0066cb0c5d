// Package gcs provides a Google Cloud Storage bucket for the object
// artifact store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/felixgeelhaar/tastate/infrastructure/storage/objectstore"
)

// Config configures the GCS bucket.
type Config struct {
	// Bucket is the GCS bucket name.
	Bucket string

	// CredentialsFile is an optional service account JSON file. Application
	// default credentials are used when empty.
	CredentialsFile string

	// Endpoint overrides the storage endpoint (emulators).
	Endpoint string
}

// Bucket implements objectstore.Bucket on a GCS bucket.
type Bucket struct {
	client *storage.Client
	handle *storage.BucketHandle
}

// NewBucket creates a GCS client and binds it to the configured bucket.
func NewBucket(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: failed to create client: %w", err)
	}

	return &Bucket{client: client, handle: client.Bucket(cfg.Bucket)}, nil
}

// Put uploads an object.
func (b *Bucket) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	w := b.handle.Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: failed to finalize object: %w", err)
	}
	return nil
}

// Get opens an object for reading.
func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.handle.Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

// Delete removes an object. Missing objects are not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.handle.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Exists reports whether an object exists.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.handle.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

func mapError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Join(objectstore.ErrObjectNotFound, err)
	}
	return err
}

var _ objectstore.Bucket = (*Bucket)(nil)
