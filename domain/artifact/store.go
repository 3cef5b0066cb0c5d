package artifact

import (
	"context"
	"errors"
	"io"
	"maps"
	"time"
)

// Store keeps exported artifacts. Implementations live in
// infrastructure/storage (filesystem, gcs, s3).
type Store interface {
	// Store saves content and returns a stable reference. Storing under
	// an ID that already exists fails with ErrArtifactExists.
	Store(ctx context.Context, content io.Reader, opts StoreOptions) (Ref, error)

	// Retrieve opens the content of an artifact.
	Retrieve(ctx context.Context, ref Ref) (io.ReadCloser, error)

	Delete(ctx context.Context, ref Ref) error

	Exists(ctx context.Context, ref Ref) (bool, error)

	// Metadata returns the stored reference without the content.
	Metadata(ctx context.Context, ref Ref) (Ref, error)
}

// StoreOptions configures one Store call.
type StoreOptions struct {
	// ID is the artifact ID. A fresh one is generated when empty.
	ID          string
	Name        string
	ContentType string
	Metadata    map[string]string
	// ComputeChecksum records the SHA-256 of the content in the Ref.
	ComputeChecksum bool
}

// DefaultStoreOptions returns opaque binary content with a checksum.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		ContentType:     "application/octet-stream",
		ComputeChecksum: true,
	}
}

// WithID sets the artifact ID.
func (o StoreOptions) WithID(id string) StoreOptions {
	o.ID = id
	return o
}

// WithName sets the artifact name.
func (o StoreOptions) WithName(name string) StoreOptions {
	o.Name = name
	return o
}

// WithContentType sets the content type.
func (o StoreOptions) WithContentType(contentType string) StoreOptions {
	o.ContentType = contentType
	return o
}

// WithMetadata adds one metadata entry.
func (o StoreOptions) WithMetadata(key, value string) StoreOptions {
	m := make(map[string]string, len(o.Metadata)+1)
	maps.Copy(m, o.Metadata)
	m[key] = value
	o.Metadata = m
	return o
}

// ResolveID returns the configured ID or a fresh one.
func (o StoreOptions) ResolveID() string {
	if o.ID != "" {
		return o.ID
	}
	return NewID()
}

// Ref describes content stored under id, measured by d.
func (o StoreOptions) Ref(id string, d *Digest) Ref {
	ref := Ref{
		ID:          id,
		Name:        o.Name,
		ContentType: o.ContentType,
		Size:        d.Size(),
		CreatedAt:   time.Now(),
		Metadata:    maps.Clone(o.Metadata),
	}
	if o.ComputeChecksum {
		ref.Checksum = d.Checksum()
	}
	return ref
}

// Domain errors for artifact storage.
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrArtifactExists   = errors.New("artifact already exists")
	ErrInvalidRef       = errors.New("invalid artifact reference")
)
