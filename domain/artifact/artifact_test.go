package artifact_test

import (
	"io"
	"strings"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/artifact"
)

func TestRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ref       artifact.Ref
		wantValid bool
		wantStr   string
	}{
		{name: "zero", ref: artifact.Ref{}, wantValid: false, wantStr: ""},
		{name: "id only", ref: artifact.Ref{ID: "abc"}, wantValid: true, wantStr: "abc"},
		{name: "named", ref: artifact.Ref{ID: "abc", Name: "train-gate.yaml"}, wantValid: true, wantStr: "train-gate.yaml (abc)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.ref.IsValid(); got != tt.wantValid {
				t.Errorf("IsValid() = %v, want %v", got, tt.wantValid)
			}
			if got := tt.ref.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	d := artifact.NewDigest()
	if _, err := io.Copy(d, strings.NewReader("abc")); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if d.Size() != 3 {
		t.Errorf("Size() = %d, want 3", d.Size())
	}
	const sha = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if d.Checksum() != sha {
		t.Errorf("Checksum() = %s", d.Checksum())
	}
}

func TestStoreOptions(t *testing.T) {
	t.Parallel()

	opts := artifact.DefaultStoreOptions()
	if opts.ContentType != "application/octet-stream" || !opts.ComputeChecksum {
		t.Errorf("DefaultStoreOptions() = %+v", opts)
	}

	a, b := opts.ResolveID(), opts.ResolveID()
	if a == "" || a == b {
		t.Errorf("ResolveID() without ID = %q, %q; want two fresh IDs", a, b)
	}

	base := opts.WithMetadata("model", "train")
	opts = base.WithID("report-1").WithName("m.yaml").WithContentType("application/yaml").WithMetadata("report", "1")
	if opts.ResolveID() != "report-1" {
		t.Errorf("ResolveID() = %q, want report-1", opts.ResolveID())
	}
	if opts.Name != "m.yaml" || opts.ContentType != "application/yaml" || opts.Metadata["report"] != "1" {
		t.Errorf("builder lost fields: %+v", opts)
	}
	if _, shared := base.Metadata["report"]; shared {
		t.Error("WithMetadata() modified the receiver's map")
	}
}

func TestStoreOptions_Ref(t *testing.T) {
	t.Parallel()

	d := artifact.NewDigest()
	_, _ = d.Write([]byte("model"))

	opts := artifact.DefaultStoreOptions().WithName("m.yaml").WithMetadata("model", "train")
	ref := opts.Ref("r1", d)
	if ref.ID != "r1" || ref.Name != "m.yaml" || ref.Size != 5 {
		t.Errorf("Ref() = %+v", ref)
	}
	if ref.Checksum != d.Checksum() || ref.CreatedAt.IsZero() {
		t.Errorf("Ref() checksum/time = %q, %v", ref.Checksum, ref.CreatedAt)
	}
	if ref.Metadata["model"] != "train" {
		t.Errorf("Metadata = %v", ref.Metadata)
	}

	opts.ComputeChecksum = false
	if got := opts.Ref("r2", d); got.Checksum != "" {
		t.Errorf("Checksum = %q without ComputeChecksum", got.Checksum)
	}
}
