package pfs

import (
	"context"
	"io"
	"testing"
)

func TestLocalCreateOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	wc, err := l.Create(ctx, "sub/dir/file.txt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := wc.Write([]byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rc, err := l.Open(ctx, "sub/dir/file.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("got %q, want %q", data, "hello world")
	}
}

func TestLocalOpenRange(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	wc, _ := l.Create(ctx, "data.bin")
	wc.Write([]byte("0123456789"))
	wc.Close()

	rc, err := l.OpenRange(ctx, "data.bin", 3, 4)
	if err != nil {
		t.Fatalf("open range: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "3456" {
		t.Errorf("got %q, want %q", data, "3456")
	}
}

func TestLocalSymlink(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	if err := l.Symlink(ctx, "ckpt-3", "current"); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	target, err := l.Readlink(ctx, "current")
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "ckpt-3" {
		t.Errorf("got %q, want %q", target, "ckpt-3")
	}

	// Symlink must be replaceable.
	if err := l.Symlink(ctx, "ckpt-4", "current"); err != nil {
		t.Fatalf("re-symlink: %v", err)
	}
	target, _ = l.Readlink(ctx, "current")
	if target != "ckpt-4" {
		t.Errorf("got %q, want %q", target, "ckpt-4")
	}
}

func TestLocalReadlinkMissing(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())
	target, err := l.Readlink(ctx, "nope")
	if err != nil {
		t.Fatalf("expected no error for missing symlink, got %v", err)
	}
	if target != "" {
		t.Errorf("expected empty target, got %q", target)
	}
}

func TestLocalRemoveAll(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	wc, _ := l.Create(ctx, "ckpt-1/summary")
	wc.Close()

	if err := l.RemoveAll(ctx, "ckpt-1"); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if _, err := l.Open(ctx, "ckpt-1/summary"); err == nil {
		t.Error("expected removed file to be gone")
	}
}
