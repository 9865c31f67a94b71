package filemap

import (
	"context"
	"testing"

	"github.com/parallaxfs/ckptfetch/pfs"
)

func TestKeyTextRoundTrip(t *testing.T) {
	k := Key{DatasetID: 3, Rank: 7}
	text, err := k.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Key
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != k {
		t.Errorf("got %+v, want %+v", got, k)
	}
}

func TestPFSStoreAddSetWrite(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	s := NewPFSStore(dir)
	k := Key{DatasetID: 1, Rank: 0}

	if err := s.SetExpectedFiles(ctx, k, 2); err != nil {
		t.Fatalf("set expected files: %v", err)
	}
	if err := s.AddFile(ctx, k, "a.bin"); err != nil {
		t.Fatalf("add file: %v", err)
	}
	if err := s.SetMeta(ctx, k, "a.bin", Meta{Filename: "a.bin", Filetype: FULL, Complete: true}); err != nil {
		t.Fatalf("set meta: %v", err)
	}

	if err := s.Write(ctx, "rank-0/filemap"); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(ctx, dir, "rank-0/filemap")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	fm, ok := got[k]
	if !ok {
		t.Fatalf("expected filemap for key %+v, got %+v", k, got)
	}
	if fm.ExpectedFileCount != 2 {
		t.Errorf("got expected file count %d, want 2", fm.ExpectedFileCount)
	}
	entry, ok := fm.Entries["a.bin"]
	if !ok || !entry.Meta.Complete {
		t.Errorf("expected complete entry for a.bin, got %+v", entry)
	}
}

func TestAddedFileWithoutMetaReadsBackIncomplete(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	s := NewPFSStore(dir)
	k := Key{DatasetID: 1, Rank: 0}

	if err := s.AddFile(ctx, k, "a.bin"); err != nil {
		t.Fatalf("add file: %v", err)
	}
	if err := s.Write(ctx, "rank-0/filemap"); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(ctx, dir, "rank-0/filemap")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	entry := got[k].Entries["a.bin"]
	if entry.Meta.Complete {
		t.Error("a file added but never given meta should not read back as complete")
	}
}
