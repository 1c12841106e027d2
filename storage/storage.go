// Package storage holds the prescription file stores. Validation of
// what may be uploaded (type, size) belongs to the prescription
// service; stores only persist bytes and hand back a reference.
package storage

import (
	"context"
	"io"
)

// FileStore persists an uploaded file and returns the reference under
// which it can be fetched later.
type FileStore interface {
	Save(ctx context.Context, r io.Reader, ext string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
