package index

import (
	"context"
	"testing"

	"github.com/parallaxfs/ckptfetch/pfs"
)

func TestMostRecentCompleteUnbounded(t *testing.T) {
	idx := Index{Records: []Record{
		{CheckpointID: 1, Name: "ckpt-1", Complete: true},
		{CheckpointID: 3, Name: "ckpt-3", Complete: true},
		{CheckpointID: 2, Name: "ckpt-2", Complete: true, Failed: true},
	}}
	id, dir, found := idx.MostRecentComplete(-1)
	if !found || id != 3 || dir != "ckpt-3" {
		t.Errorf("got (%d, %q, %v), want (3, ckpt-3, true)", id, dir, found)
	}
}

func TestMostRecentCompleteRespectsCeiling(t *testing.T) {
	idx := Index{Records: []Record{
		{CheckpointID: 1, Name: "ckpt-1", Complete: true},
		{CheckpointID: 3, Name: "ckpt-3", Complete: true},
	}}
	id, dir, found := idx.MostRecentComplete(2)
	if !found || id != 1 || dir != "ckpt-1" {
		t.Errorf("got (%d, %q, %v), want (1, ckpt-1, true)", id, dir, found)
	}
}

func TestMostRecentCompleteExhausted(t *testing.T) {
	idx := Index{Records: []Record{
		{CheckpointID: 1, Name: "ckpt-1", Failed: true},
	}}
	if _, _, found := idx.MostRecentComplete(-1); found {
		t.Error("expected no candidate when every record is failed")
	}
}

func TestMarkFetchedThenMarkFailed(t *testing.T) {
	var idx Index
	idx.MarkFetched(5, "ckpt-5")
	if len(idx.Records) != 1 || !idx.Records[0].Fetched {
		t.Fatalf("expected one fetched record, got %+v", idx.Records)
	}
	idx.MarkFailed(5, "ckpt-5")
	if !idx.Records[0].Failed {
		t.Error("expected record to be marked failed")
	}
	if _, _, found := idx.MostRecentComplete(-1); found {
		t.Error("a failed record must not be selectable")
	}
}

func TestPFSStoreReadMissingIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	s := NewPFSStore(dir)

	idx, err := s.Read(ctx, "prefix")
	if err != nil {
		t.Fatalf("expected no error for missing index, got %v", err)
	}
	if len(idx.Records) != 0 {
		t.Errorf("expected empty index, got %d records", len(idx.Records))
	}
}

func TestPFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	s := NewPFSStore(dir)

	var idx Index
	idx.MarkFetched(1, "ckpt-1")
	if err := s.Write(ctx, "prefix", idx); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Read(ctx, "prefix")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Records) != 1 || got.Records[0].CheckpointID != 1 {
		t.Errorf("got %+v, want one record with id 1", got.Records)
	}
}
