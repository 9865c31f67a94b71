package cache

import (
	"context"
	"testing"

	"github.com/parallaxfs/ckptfetch/pfs"
)

func TestDeleteRemovesDirectoryTree(t *testing.T) {
	ctx := context.Background()
	root := pfs.NewLocal(t.TempDir())
	m := New(root)

	wc, _ := root.Create(ctx, "ckpt-1/a.bin")
	wc.Close()

	if err := m.Delete(ctx, "ckpt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := root.Open(ctx, "ckpt-1/a.bin"); err == nil {
		t.Error("expected files under deleted dir to be gone")
	}
}

func TestDeleteNonexistentIsNotError(t *testing.T) {
	ctx := context.Background()
	m := New(pfs.NewLocal(t.TempDir()))
	if err := m.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("expected no error deleting a nonexistent dir, got %v", err)
	}
}
