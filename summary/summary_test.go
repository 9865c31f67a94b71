package summary

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/parallaxfs/ckptfetch/pfs"
)

func TestFileRecordIsCompleteDefaultsTrue(t *testing.T) {
	rec := FileRecord{Filename: "a"}
	if !rec.IsComplete() {
		t.Error("absent complete key should default to true")
	}
	f := false
	rec.Complete = &f
	if rec.IsComplete() {
		t.Error("explicit complete=false should stay false")
	}
}

func TestContainersGetUnknown(t *testing.T) {
	c := Containers{0: {Name: "ctr.0", Size: 100}}
	if _, err := c.Get(1); err == nil {
		t.Error("expected error for unknown container id")
	}
	if _, err := c.Get(0); err != nil {
		t.Errorf("expected known container id to resolve, got %v", err)
	}
}

func TestFilesForRankPlainMode(t *testing.T) {
	m := Manifest{
		Dataset: Dataset{ID: 1},
		Rank2File: Rank2File{
			0: {"a.bin": FileRecord{Filename: "a.bin", Size: 10}},
		},
	}
	fl := FilesForRank(m, 0, "ckpt-1")
	if fl.Files["a.bin"].Path != "ckpt-1" {
		t.Errorf("expected plain-mode path attached, got %q", fl.Files["a.bin"].Path)
	}
}

func TestFilesForRankContainerModeLeavesPathEmpty(t *testing.T) {
	m := Manifest{
		Dataset:    Dataset{ID: 1},
		Containers: Containers{0: {Name: "ctr.0", Size: 100}},
		Rank2File: Rank2File{
			0: {"a.bin": FileRecord{Filename: "a.bin", Segments: []Segment{{Length: 10}}}},
		},
	}
	fl := FilesForRank(m, 0, "ckpt-1")
	if fl.Files["a.bin"].Path != "" {
		t.Errorf("expected container-mode record to have no path, got %q", fl.Files["a.bin"].Path)
	}
}

func TestPFSReaderReadMissingRank2File(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	wc, _ := dir.Create(ctx, "ckpt-1/"+FileName)
	json.NewEncoder(wc).Encode(Manifest{Dataset: Dataset{ID: 1}})
	wc.Close()

	r := NewPFSReader(dir)
	if _, err := r.Read(ctx, "ckpt-1"); err == nil {
		t.Error("expected error for manifest missing rank2file")
	}
}

func TestPFSReaderRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := pfs.NewLocal(t.TempDir())
	want := Manifest{
		Dataset:   Dataset{ID: 7, Files: 1, Complete: true},
		Rank2File: Rank2File{0: {"f": FileRecord{Filename: "f", Size: 5}}},
	}
	wc, _ := dir.Create(ctx, "ckpt-7/"+FileName)
	json.NewEncoder(wc).Encode(want)
	wc.Close()

	r := NewPFSReader(dir)
	got, err := r.Read(ctx, "ckpt-7")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Dataset.ID != 7 {
		t.Errorf("got dataset id %d, want 7", got.Dataset.ID)
	}
}
