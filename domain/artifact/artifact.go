// Package artifact describes exported files, such as adapted models, and the
// stores that keep them.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"time"

	"github.com/google/uuid"
)

// Ref is a stable reference to a stored artifact, as returned by
// Store.Store and persisted next to the content.
type Ref struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Size        int64             `json:"size"`
	Checksum    string            `json:"checksum,omitempty"` // hex SHA-256
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewID returns a fresh artifact ID.
func NewID() string {
	return uuid.New().String()
}

// IsValid reports whether r names an artifact.
func (r Ref) IsValid() bool {
	return r.ID != ""
}

func (r Ref) String() string {
	if r.Name == "" {
		return r.ID
	}
	return r.Name + " (" + r.ID + ")"
}

// Digest is an io.Writer that counts and hashes what passes through it.
// Stores tee content into a Digest while writing it out.
type Digest struct {
	h hash.Hash
	n int64
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

func (d *Digest) Write(p []byte) (int, error) {
	d.n += int64(len(p))
	return d.h.Write(p)
}

// Size is the number of bytes written so far.
func (d *Digest) Size() int64 {
	return d.n
}

// Checksum is the hex SHA-256 of the bytes written so far.
func (d *Digest) Checksum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
