package fetcher

import (
	"context"
	"io"
	"testing"

	"github.com/parallaxfs/ckptfetch/filemap"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/summary"
)

func TestFetchFileListPlainFiles(t *testing.T) {
	ctx := context.Background()
	src := pfs.NewLocal(t.TempDir())
	dst := pfs.NewLocal(t.TempDir())

	wc, _ := src.Create(ctx, "ckpt-1/a.bin")
	wc.Write([]byte("aaaa"))
	wc.Close()
	wc, _ = src.Create(ctx, "ckpt-1/b.bin")
	wc.Write([]byte("bb"))
	wc.Close()

	fm := filemap.NewPFSStore(dst)
	fl := summary.FileList{
		Dataset: summary.Dataset{ID: 1, Files: 2},
		Files: map[string]summary.FileRecord{
			"a.bin": {Filename: "a.bin", Size: 4, Path: "ckpt-1"},
			"b.bin": {Filename: "b.bin", Size: 2, Path: "ckpt-1"},
		},
	}

	p := Params{
		Src:         src,
		Dst:         dst,
		Filemap:     fm,
		FilemapKey:  filemap.Key{Rank: 0},
		FilemapPath: "filemap",
	}

	res, err := FetchFileList(ctx, fl, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Success || res.BytesFetched != 6 {
		t.Errorf("got %+v, want success with 6 bytes", res)
	}

	rc, err := dst.Open(ctx, "a.bin")
	if err != nil {
		t.Fatalf("open fetched file: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "aaaa" {
		t.Errorf("got %q", data)
	}
}

func TestFetchFileListSkipsNoFetch(t *testing.T) {
	ctx := context.Background()
	src := pfs.NewLocal(t.TempDir())
	dst := pfs.NewLocal(t.TempDir())

	fm := filemap.NewPFSStore(dst)
	fl := summary.FileList{
		Dataset: summary.Dataset{ID: 1, Files: 1},
		Files: map[string]summary.FileRecord{
			"skip.bin": {Filename: "skip.bin", NoFetch: true},
		},
	}

	p := Params{Src: src, Dst: dst, Filemap: fm, FilemapKey: filemap.Key{Rank: 0}, FilemapPath: "filemap"}
	res, err := FetchFileList(ctx, fl, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Success || res.BytesFetched != 0 {
		t.Errorf("got %+v, want success with 0 bytes fetched", res)
	}
	if _, err := dst.Open(ctx, "skip.bin"); err == nil {
		t.Error("expected no_fetch file to not be created")
	}
}

func TestFetchFileListContinuesPastFailure(t *testing.T) {
	ctx := context.Background()
	src := pfs.NewLocal(t.TempDir())
	dst := pfs.NewLocal(t.TempDir())

	wc, _ := src.Create(ctx, "ckpt-1/good.bin")
	wc.Write([]byte("ok"))
	wc.Close()

	fm := filemap.NewPFSStore(dst)
	fl := summary.FileList{
		Dataset: summary.Dataset{ID: 1, Files: 2},
		Files: map[string]summary.FileRecord{
			"missing.bin": {Filename: "missing.bin", Size: 1, Path: "ckpt-1"},
			"good.bin":    {Filename: "good.bin", Size: 2, Path: "ckpt-1"},
		},
	}

	p := Params{Src: src, Dst: dst, Filemap: fm, FilemapKey: filemap.Key{Rank: 0}, FilemapPath: "filemap"}
	res, err := FetchFileList(ctx, fl, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Success {
		t.Error("expected overall failure when one file is missing")
	}
	if len(res.Failed) != 1 || res.Failed[0] != "missing.bin" {
		t.Errorf("got failed=%v, want [missing.bin]", res.Failed)
	}
	if res.BytesFetched != 2 {
		t.Errorf("got %d bytes fetched, want 2 (good.bin only)", res.BytesFetched)
	}
}
