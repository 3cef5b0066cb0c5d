// Package filesystem stores exported artifacts on the local filesystem.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/artifact"
)

const (
	contentFile  = "content"
	metadataFile = "metadata.json"
)

// ArtifactStore implements artifact.Store with one directory per artifact
// holding the content and a JSON metadata file.
type ArtifactStore struct {
	basePath string
}

// NewArtifactStore creates a store rooted at basePath, creating it if needed.
func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &ArtifactStore{basePath: basePath}, nil
}

// Store saves content and returns a stable reference. Storing under an ID
// that already exists fails with artifact.ErrArtifactExists.
func (s *ArtifactStore) Store(ctx context.Context, content io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Ref{}, err
	}

	id := opts.ResolveID()
	if !validID(id) {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}

	dir := s.artifactPath(id)
	if err := os.Mkdir(dir, 0750); err != nil {
		if os.IsExist(err) {
			return artifact.Ref{}, artifact.ErrArtifactExists
		}
		return artifact.Ref{}, fmt.Errorf("failed to create artifact path: %w", err)
	}

	ref, err := s.write(dir, id, content, opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return artifact.Ref{}, err
	}
	return ref, nil
}

func (s *ArtifactStore) write(dir, id string, content io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	file, err := os.Create(filepath.Join(dir, contentFile))
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to create content file: %w", err)
	}

	digest := artifact.NewDigest()
	if _, err := io.Copy(io.MultiWriter(file, digest), content); err != nil {
		_ = file.Close()
		return artifact.Ref{}, fmt.Errorf("failed to write content: %w", err)
	}
	if err := file.Close(); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to close content file: %w", err)
	}

	ref := opts.Ref(id, digest)
	meta, err := json.Marshal(ref)
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), meta, 0600); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to write metadata: %w", err)
	}
	return ref, nil
}

// Retrieve opens the content of an artifact.
func (s *ArtifactStore) Retrieve(_ context.Context, ref artifact.Ref) (io.ReadCloser, error) {
	if !ref.IsValid() || !validID(ref.ID) {
		return nil, artifact.ErrInvalidRef
	}

	file, err := os.Open(filepath.Join(s.artifactPath(ref.ID), contentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, artifact.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return file, nil
}

// Delete removes an artifact.
func (s *ArtifactStore) Delete(_ context.Context, ref artifact.Ref) error {
	if !ref.IsValid() || !validID(ref.ID) {
		return artifact.ErrInvalidRef
	}

	dir := s.artifactPath(ref.ID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return artifact.ErrArtifactNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// Exists checks if an artifact exists.
func (s *ArtifactStore) Exists(_ context.Context, ref artifact.Ref) (bool, error) {
	if !ref.IsValid() || !validID(ref.ID) {
		return false, artifact.ErrInvalidRef
	}

	_, err := os.Stat(filepath.Join(s.artifactPath(ref.ID), contentFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Metadata reads the stored reference of an artifact.
func (s *ArtifactStore) Metadata(_ context.Context, ref artifact.Ref) (artifact.Ref, error) {
	if !ref.IsValid() || !validID(ref.ID) {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}

	data, err := os.ReadFile(filepath.Join(s.artifactPath(ref.ID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return artifact.Ref{}, artifact.ErrArtifactNotFound
		}
		return artifact.Ref{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var stored artifact.Ref
	if err := json.Unmarshal(data, &stored); err != nil {
		return artifact.Ref{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return stored, nil
}

func (s *ArtifactStore) artifactPath(id string) string {
	return filepath.Join(s.basePath, id)
}

// validID rejects IDs that would escape the base directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

var _ artifact.Store = (*ArtifactStore)(nil)
