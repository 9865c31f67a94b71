// Package pfs abstracts the prefix directory described in section 6 of
// the design: a shared parallel filesystem holding the index file, the
// current symlink, and one subdirectory per dataset (each with a summary
// file and either plain files or container files). It generalizes
// gurre-ddb-pitr's dual checkpoint.FileStore/checkpoint.S3Store pattern
// into a directory-shaped interface so the same core (index, filemap,
// summary, container, filecopy) works whether the prefix lives on local
// disk or in S3.
package pfs

import (
	"context"
	"io"
	"path"
)

// Join joins prefix-relative path elements with a forward slash,
// regardless of backing store (local paths in this package are always
// slash-separated, matching how S3 keys are built).
func Join(elem ...string) string {
	return path.Join(elem...)
}

// ReadCloser is a read handle into a stored object or file.
type ReadCloser = io.ReadCloser

// RangeReader is implemented by backends that can open a byte range
// without reading the whole object, used by container.Reconstruct to
// seek within a container file.
type RangeReader interface {
	OpenRange(ctx context.Context, name string, offset, length uint64) (ReadCloser, error)
}

// Dir is the storage abstraction for one prefix directory.
type Dir interface {
	// Open opens name for sequential reading from the start.
	Open(ctx context.Context, name string) (ReadCloser, error)
	// Create opens name for truncating write, creating parent
	// directories as needed.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// Stat returns the size in bytes of name.
	Stat(ctx context.Context, name string) (uint64, error)
	// Symlink points the symbolic reference at name to target. Backends
	// without native symlinks (e.g. S3) emulate it with a pointer object.
	Symlink(ctx context.Context, target, name string) error
	// Readlink resolves the symbolic reference at name, returning ("",
	// nil) if it does not exist.
	Readlink(ctx context.Context, name string) (string, error)
	// Remove deletes name; removing a nonexistent name is not an error.
	Remove(ctx context.Context, name string) error
	// RemoveAll recursively deletes everything under name.
	RemoveAll(ctx context.Context, name string) error
}
