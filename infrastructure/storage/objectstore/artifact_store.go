// Package objectstore implements artifact.Store on top of a flat object
// bucket. The gcs, s3 and azblob packages provide the buckets.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/artifact"
)

// ErrObjectNotFound is returned by a Bucket when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Bucket is the subset of object storage the artifact store needs.
type Bucket interface {
	// Put writes an object, replacing any previous one.
	Put(ctx context.Context, key string, content io.Reader, contentType string) error

	// Get opens an object. Missing keys yield ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// ArtifactStore keeps each artifact as two objects, <prefix>/<id>/content
// and <prefix>/<id>/metadata.json.
type ArtifactStore struct {
	bucket Bucket
	prefix string
}

// NewArtifactStore creates an artifact store over bucket.
func NewArtifactStore(bucket Bucket, prefix string) (*ArtifactStore, error) {
	if bucket == nil {
		return nil, errors.New("objectstore: bucket is required")
	}
	return &ArtifactStore{bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Store uploads content and its metadata.
func (s *ArtifactStore) Store(ctx context.Context, content io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	id := opts.ResolveID()
	if strings.Contains(id, "/") {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}

	exists, err := s.bucket.Exists(ctx, s.key(id, "content"))
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	if exists {
		return artifact.Ref{}, artifact.ErrArtifactExists
	}

	var buf bytes.Buffer
	digest := artifact.NewDigest()
	if _, err := io.Copy(io.MultiWriter(&buf, digest), content); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to read content: %w", err)
	}

	contentKey := s.key(id, "content")
	if err := s.bucket.Put(ctx, contentKey, &buf, opts.ContentType); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to upload content: %w", err)
	}

	ref := opts.Ref(id, digest)
	meta, err := json.Marshal(ref)
	if err != nil {
		_ = s.bucket.Delete(ctx, contentKey)
		return artifact.Ref{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := s.bucket.Put(ctx, s.key(id, "metadata.json"), bytes.NewReader(meta), "application/json"); err != nil {
		_ = s.bucket.Delete(ctx, contentKey)
		return artifact.Ref{}, fmt.Errorf("failed to upload metadata: %w", err)
	}
	return ref, nil
}

// Retrieve opens the content of an artifact.
func (s *ArtifactStore) Retrieve(ctx context.Context, ref artifact.Ref) (io.ReadCloser, error) {
	if !ref.IsValid() {
		return nil, artifact.ErrInvalidRef
	}

	rc, err := s.bucket.Get(ctx, s.key(ref.ID, "content"))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, artifact.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	return rc, nil
}

// Delete removes an artifact. The metadata object is removed best effort.
func (s *ArtifactStore) Delete(ctx context.Context, ref artifact.Ref) error {
	if !ref.IsValid() {
		return artifact.ErrInvalidRef
	}

	contentKey := s.key(ref.ID, "content")
	exists, err := s.bucket.Exists(ctx, contentKey)
	if err != nil {
		return fmt.Errorf("failed to check artifact existence: %w", err)
	}
	if !exists {
		return artifact.ErrArtifactNotFound
	}

	if err := s.bucket.Delete(ctx, contentKey); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	_ = s.bucket.Delete(ctx, s.key(ref.ID, "metadata.json"))
	return nil
}

// Exists checks if an artifact exists.
func (s *ArtifactStore) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	if !ref.IsValid() {
		return false, artifact.ErrInvalidRef
	}
	return s.bucket.Exists(ctx, s.key(ref.ID, "content"))
}

// Metadata downloads the stored reference of an artifact.
func (s *ArtifactStore) Metadata(ctx context.Context, ref artifact.Ref) (artifact.Ref, error) {
	if !ref.IsValid() {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}

	rc, err := s.bucket.Get(ctx, s.key(ref.ID, "metadata.json"))
	if errors.Is(err, ErrObjectNotFound) {
		return artifact.Ref{}, artifact.ErrArtifactNotFound
	}
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to download metadata: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var stored artifact.Ref
	if err := json.NewDecoder(rc).Decode(&stored); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return stored, nil
}

func (s *ArtifactStore) key(id, name string) string {
	if s.prefix != "" {
		return s.prefix + "/" + id + "/" + name
	}
	return id + "/" + name
}

var _ artifact.Store = (*ArtifactStore)(nil)
