package storage

import (
	"context"
	"io"
)

// BlobStore persists binary artifacts under hierarchical keys and reports the
// externally visible location of each stored blob. Delete exists for the
// compensation path when a metadata write fails after its blobs landed.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}
