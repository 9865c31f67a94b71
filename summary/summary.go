// Package summary implements the per-checkpoint summary manifest described
// in section 3 of the design: the dataset header, the container
// catalogue, and the per-rank file lists that section 4.4 (SummaryScatter)
// reads on rank 0 and fans out to every rank. The type shapes mirror
// gurre-ddb-pitr's manifest package (Summary/FileMeta/Loader/S3Loader),
// extended with the container/segment fields this spec requires.
package summary

import (
	"context"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
)

// FileName is the on-disk name of the summary manifest within a
// checkpoint's subdirectory.
const FileName = "summary"

// Dataset is the dataset header described in section 3.
type Dataset struct {
	ID       int    `json:"id"`
	CkptID   int    `json:"ckpt_id"`
	Size     uint64 `json:"size"`
	Files    int    `json:"files"`
	Complete bool   `json:"complete"`
	User     string `json:"user,omitempty"`
	Job      string `json:"job,omitempty"`
}

// ContainerInfo describes one physical container file, keyed by integer
// container id in Containers.
type ContainerInfo struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// Containers is the container catalogue: container id -> info.
type Containers map[int]ContainerInfo

// Get resolves a container by id, returning errkind.Manifest if unknown.
func (c Containers) Get(id int) (ContainerInfo, error) {
	info, ok := c[id]
	if !ok {
		return ContainerInfo{}, fmt.Errorf("container id %d: %w", id, errkind.Manifest)
	}
	return info, nil
}

// SegmentContainer is the {id, offset_in_container} pair inside a Segment.
type SegmentContainer struct {
	ID              int    `json:"id"`
	OffsetInContainer uint64 `json:"offset_in_container"`
}

// Segment is a contiguous byte range of a logical file stored inside one
// container, per the GLOSSARY.
type Segment struct {
	OffsetInLogicalFile uint64           `json:"offset_in_logical_file"`
	Length              uint64           `json:"length"`
	Container           SegmentContainer `json:"container"`
}

// FileRecord is the per-file record from section 3. A file is either
// entirely plain (Path set) or entirely container-backed (Segments set);
// mixing the two within one record is disallowed by the caller.
type FileRecord struct {
	Filename string    `json:"filename"`
	Size     uint64    `json:"size"`
	CRC32    *uint32   `json:"crc32,omitempty"`
	Complete *bool     `json:"complete,omitempty"`
	Path     string    `json:"path,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	NoFetch  bool      `json:"no_fetch,omitempty"`
}

// IsComplete resolves Open Question (i): an absent Complete key is
// treated as true.
func (f FileRecord) IsComplete() bool {
	return f.Complete == nil || *f.Complete
}

// IsContainerBacked reports whether this file is stored in segments
// rather than as a plain file.
func (f FileRecord) IsContainerBacked() bool {
	return len(f.Segments) > 0
}

// Rank2File is the full per-rank file mapping rank-0 reads from disk. It
// is never materialized on non-0 ranks (section 4.4 step 4).
type Rank2File map[int]map[string]FileRecord

// Manifest is the on-disk shape of the summary file.
type Manifest struct {
	Dataset    Dataset    `json:"dataset"`
	Containers Containers `json:"containers,omitempty"`
	Rank2File  Rank2File  `json:"rank2file"`
}

// FileList is what one rank receives after scatter: its own file subset,
// the shared container catalogue (if any), and the dataset header.
type FileList struct {
	Dataset    Dataset               `json:"dataset"`
	Containers Containers            `json:"containers,omitempty"`
	Files      map[string]FileRecord `json:"files"`
}

// SortedFilenames returns the file list's keys in stable sorted order, so
// callers that need deterministic iteration (tests, logging) don't depend
// on map order.
func (fl FileList) SortedFilenames() []string {
	names := make([]string, 0, len(fl.Files))
	for name := range fl.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reader loads a checkpoint's summary manifest from a dataset directory.
type Reader interface {
	Read(ctx context.Context, dir string) (Manifest, error)
}

// PFSReader reads the summary manifest via a pfs.Dir, i.e. from whatever
// backs the prefix directory (local disk or S3).
type PFSReader struct {
	Dir pfs.Dir
}

// NewPFSReader creates a PFSReader bound to the given prefix storage.
func NewPFSReader(dir pfs.Dir) *PFSReader {
	return &PFSReader{Dir: dir}
}

// Read implements Reader.
func (r *PFSReader) Read(ctx context.Context, dir string) (Manifest, error) {
	rc, err := r.Dir.Open(ctx, pfs.Join(dir, FileName))
	if err != nil {
		return Manifest{}, fmt.Errorf("open summary %s/%s: %w", dir, FileName, errkind.Manifest)
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode summary %s/%s: %v: %w", dir, FileName, err, errkind.Manifest)
	}
	if m.Rank2File == nil {
		return Manifest{}, fmt.Errorf("summary %s/%s missing rank2file: %w", dir, FileName, errkind.Manifest)
	}
	return m, nil
}

// FilesForRank extracts the FileList a single rank should receive,
// attaching Path: dir to every entry when the dataset has no container
// catalogue (plain-file mode), per section 4.4 step 5.
func FilesForRank(m Manifest, rank int, dir string) FileList {
	files := m.Rank2File[rank]
	out := make(map[string]FileRecord, len(files))
	plainMode := len(m.Containers) == 0
	for name, rec := range files {
		if plainMode && rec.Path == "" {
			rec.Path = dir
		}
		out[name] = rec
	}
	return FileList{
		Dataset:    m.Dataset,
		Containers: m.Containers,
		Files:      out,
	}
}
