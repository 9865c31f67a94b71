// Package index implements the checkpoint index collaborator described
// in section 3 and section 6 of the design: an ordered, durable registry
// of every known checkpoint and its fetch/failure state, exclusively
// mutated by rank 0. Persistence follows gurre-ddb-pitr's
// checkpoint.FileStore/checkpoint.S3Store dual pattern, generalized over
// pfs.Dir so the same code works on local disk or in S3.
package index

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
)

// FileName is the on-disk name of the index within the prefix directory.
const FileName = "index"

// Record is one checkpoint's entry in the index, per section 3. The
// CheckpointID is unique and monotonic; Name is the dataset subdirectory.
type Record struct {
	CheckpointID int        `json:"checkpoint_id"`
	Name         string     `json:"name"`
	Fetched      bool       `json:"fetched,omitempty"`
	Failed       bool       `json:"failed,omitempty"`
	Complete     bool       `json:"complete,omitempty"`
	FetchedAt    *time.Time `json:"fetched_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
}

// Index is the ordered collection of checkpoint records for one prefix
// directory.
type Index struct {
	Records []Record `json:"records"`
}

// GetIDByDir returns the checkpoint id whose Name matches dir.
func (idx Index) GetIDByDir(dir string) (id int, ok bool) {
	for _, r := range idx.Records {
		if r.Name == dir {
			return r.CheckpointID, true
		}
	}
	return 0, false
}

// MostRecentComplete returns the greatest CheckpointID <= ceiling (or
// unbounded when ceiling < 0) with Complete=true and Failed=false, per
// section 3's invariant. found is false once no candidate remains.
func (idx Index) MostRecentComplete(ceiling int) (id int, dir string, found bool) {
	bestID := -1
	bestDir := ""
	for _, r := range idx.Records {
		if r.Failed || !r.Complete {
			continue
		}
		if ceiling >= 0 && r.CheckpointID > ceiling {
			continue
		}
		if r.CheckpointID > bestID {
			bestID = r.CheckpointID
			bestDir = r.Name
		}
	}
	if bestID < 0 {
		return 0, "", false
	}
	return bestID, bestDir, true
}

// MarkFetched records an attempt to fetch checkpoint id/dir, per section
// 4.6 step 3: this happens before the attempt's outcome is known, so a
// crash mid-fetch still leaves a durable record of the attempt.
func (idx *Index) MarkFetched(id int, dir string) {
	now := time.Now()
	for i := range idx.Records {
		if idx.Records[i].CheckpointID == id {
			idx.Records[i].Fetched = true
			idx.Records[i].FetchedAt = &now
			if idx.Records[i].Name == "" {
				idx.Records[i].Name = dir
			}
			return
		}
	}
	idx.Records = append(idx.Records, Record{
		CheckpointID: id,
		Name:         dir,
		Fetched:      true,
		FetchedAt:    &now,
	})
}

// MarkFailed blacklists checkpoint id/dir for the remainder of this job
// run, per section 3's invariant that any record marked failed is
// skipped thereafter.
func (idx *Index) MarkFailed(id int, dir string) {
	now := time.Now()
	for i := range idx.Records {
		if idx.Records[i].CheckpointID == id {
			idx.Records[i].Failed = true
			idx.Records[i].FailedAt = &now
			return
		}
	}
	idx.Records = append(idx.Records, Record{
		CheckpointID: id,
		Name:         dir,
		Failed:       true,
		FailedAt:     &now,
	})
}

// Store defines the contract for reading and writing an Index durably.
type Store interface {
	Read(ctx context.Context, prefix string) (Index, error)
	Write(ctx context.Context, prefix string, idx Index) error
}

// PFSStore implements Store via a pfs.Dir, serving both the local-disk
// and S3-backed prefix directories with one implementation — the teacher's
// dual FileStore/S3Store pattern collapsed into a single type because
// pfs.Dir already hides that distinction.
type PFSStore struct {
	Dir pfs.Dir
}

// NewPFSStore creates a PFSStore bound to the given prefix storage.
func NewPFSStore(dir pfs.Dir) *PFSStore {
	return &PFSStore{Dir: dir}
}

// Read implements Store. A missing index file is not an error; it reads
// back as an empty Index (no checkpoints known yet).
func (s *PFSStore) Read(ctx context.Context, prefix string) (Index, error) {
	rc, err := s.Dir.Open(ctx, pfs.Join(prefix, FileName))
	if err != nil {
		return Index{}, nil
	}
	defer rc.Close()

	var idx Index
	if err := json.NewDecoder(rc).Decode(&idx); err != nil {
		return Index{}, fmt.Errorf("decode index: %v: %w", err, errkind.Manifest)
	}
	return idx, nil
}

// Write implements Store.
func (s *PFSStore) Write(ctx context.Context, prefix string, idx Index) error {
	wc, err := s.Dir.Create(ctx, pfs.Join(prefix, FileName))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if encErr := json.NewEncoder(wc).Encode(idx); encErr != nil {
		wc.Close()
		return fmt.Errorf("encode index: %v: %w", encErr, errkind.IO)
	}
	return wc.Close()
}
