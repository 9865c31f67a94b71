package filecopy

import (
	"context"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
)

func TestCopyWithCRCMatch(t *testing.T) {
	ctx := context.Background()
	src := pfs.NewLocal(t.TempDir())
	dst := pfs.NewLocal(t.TempDir())

	wc, _ := src.Create(ctx, "f.bin")
	wc.Write([]byte("hello world"))
	wc.Close()

	want := crc32.ChecksumIEEE([]byte("hello world"))
	crc, err := Copy(ctx, src, "f.bin", dst, "f.bin", 0, true, &want)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if crc != want {
		t.Errorf("got crc %#x, want %#x", crc, want)
	}

	rc, _ := dst.Open(ctx, "f.bin")
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello world" {
		t.Errorf("got %q", data)
	}
}

func TestCopyCRCMismatch(t *testing.T) {
	ctx := context.Background()
	src := pfs.NewLocal(t.TempDir())
	dst := pfs.NewLocal(t.TempDir())

	wc, _ := src.Create(ctx, "f.bin")
	wc.Write([]byte("hello world"))
	wc.Close()

	bad := uint32(0xdeadbeef)
	_, err := Copy(ctx, src, "f.bin", dst, "f.bin", 0, true, &bad)
	if err == nil {
		t.Fatal("expected crc mismatch error")
	}
	if !errors.Is(err, errkind.Integrity) {
		t.Errorf("expected errkind.Integrity, got %v", err)
	}
}
