package pfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parallaxfs/ckptfetch/errkind"
)

// Local implements Dir over a POSIX directory tree — the default
// grounding for spec.md's "shared parallel filesystem", which is
// ordinarily Lustre/GPFS mounted as a normal directory.
type Local struct {
	Root string
}

// NewLocal creates a Local store rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) path(name string) string {
	return filepath.Join(l.Root, filepath.FromSlash(name))
}

// Open implements Dir.
func (l *Local) Open(ctx context.Context, name string) (ReadCloser, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", name, err, errkind.IO)
	}
	return f, nil
}

// OpenRange implements RangeReader.
func (l *Local) OpenRange(ctx context.Context, name string, offset, length uint64) (ReadCloser, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", name, err, errkind.IO)
	}
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek %s to %d: %v: %w", name, offset, err, errkind.IO)
	}
	return &limitedReadCloser{r: io.LimitReader(f, int64(length)), c: f}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

// Create implements Dir.
func (l *Local) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	full := l.path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir for %s: %v: %w", name, err, errkind.IO)
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create %s: %v: %w", name, err, errkind.IO)
	}
	return f, nil
}

// Stat implements Dir.
func (l *Local) Stat(ctx context.Context, name string) (uint64, error) {
	info, err := os.Stat(l.path(name))
	if err != nil {
		return 0, fmt.Errorf("stat %s: %v: %w", name, err, errkind.IO)
	}
	return uint64(info.Size()), nil
}

// Symlink implements Dir using a real POSIX symlink.
func (l *Local) Symlink(ctx context.Context, target, name string) error {
	full := l.path(name)
	_ = os.Remove(full)
	if err := os.Symlink(target, full); err != nil {
		return fmt.Errorf("symlink %s -> %s: %v: %w", name, target, err, errkind.IO)
	}
	return nil
}

// Readlink implements Dir.
func (l *Local) Readlink(ctx context.Context, name string) (string, error) {
	target, err := os.Readlink(l.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("readlink %s: %v: %w", name, err, errkind.IO)
	}
	return target, nil
}

// Remove implements Dir.
func (l *Local) Remove(ctx context.Context, name string) error {
	if err := os.Remove(l.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %v: %w", name, err, errkind.IO)
	}
	return nil
}

// RemoveAll implements Dir.
func (l *Local) RemoveAll(ctx context.Context, name string) error {
	if err := os.RemoveAll(l.path(name)); err != nil {
		return fmt.Errorf("remove all %s: %v: %w", name, err, errkind.IO)
	}
	return nil
}
