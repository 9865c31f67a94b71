// Package filemap implements the per-process filemap collaborator from
// section 3 and section 6 of the design: a durable record of intended
// and completed files for a given (dataset, rank), written before the
// file it describes is created so a crash mid-fetch leaves enough
// information for cache.Manager to find and delete partials. Persistence
// follows the teacher's checkpoint.FileStore/checkpoint.S3Store dual
// pattern, generalized over pfs.Dir.
package filemap

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
)

// Filetype mirrors the teacher-adjacent meta shape; FULL is the only
// kind this spec produces (whole-file fetch, no partial-file resume).
type Filetype string

// FULL is the only meta filetype this fetch pipeline writes.
const FULL Filetype = "FULL"

// Meta is the per-file record the filemap tracks, matching section 3's
// per-file record plus the bookkeeping fields section 4.3 requires.
type Meta struct {
	Filename string   `json:"filename"`
	Filetype Filetype `json:"filetype"`
	Filesize uint64   `json:"filesize"`
	Complete bool     `json:"complete"`
	CRC32    *uint32  `json:"crc32,omitempty"`
	Ranks    int      `json:"ranks"`
}

// Entry is one filemap row: the destination path, its meta, and an
// optional redundancy descriptor hash (opaque to this package — owned by
// the out-of-scope RedundancyApply collaborator).
type Entry struct {
	Path string `json:"path"`
	Meta Meta   `json:"meta"`
	Desc string `json:"desc,omitempty"`
}

// Key identifies one filemap: (dataset id, rank). It implements
// encoding.TextMarshaler/TextUnmarshaler so it can serve as a JSON
// object key when a Store snapshot spans multiple keys.
type Key struct {
	DatasetID int
	Rank      int
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d", k.DatasetID, k.Rank)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "%d:%d", &k.DatasetID, &k.Rank)
	return err
}

// Filemap is the exclusively-owned-by-one-process, on-disk mapping of
// (dataset, rank) -> expected file count + per-file entries.
type Filemap struct {
	ExpectedFileCount int              `json:"expected_file_count"`
	Entries           map[string]Entry `json:"entries"`
}

// Store is the collaborator interface section 6 names: add_file,
// set_meta, set_expected_files, set_desc, write. It is keyed by
// (dataset id, rank, path) so one Store instance can serve every rank's
// filemap in tests, while production wiring gives each rank its own
// Store bound to its own map_file.
type Store interface {
	AddFile(ctx context.Context, k Key, path string) error
	SetMeta(ctx context.Context, k Key, path string, meta Meta) error
	SetExpectedFiles(ctx context.Context, k Key, count int) error
	SetDesc(ctx context.Context, k Key, path, hash string) error
	Write(ctx context.Context, path string) error
}

// PFSStore implements Store via a pfs.Dir, serving the local-disk and
// S3-backed map_file locations with one implementation.
type PFSStore struct {
	Dir pfs.Dir

	mu  sync.Mutex
	fms map[Key]*Filemap
}

// NewPFSStore creates a PFSStore bound to the given storage.
func NewPFSStore(dir pfs.Dir) *PFSStore {
	return &PFSStore{Dir: dir, fms: make(map[Key]*Filemap)}
}

func (s *PFSStore) get(k Key) *Filemap {
	s.mu.Lock()
	defer s.mu.Unlock()
	fm, ok := s.fms[k]
	if !ok {
		fm = &Filemap{Entries: make(map[string]Entry)}
		s.fms[k] = fm
	}
	return fm
}

// AddFile implements Store. It must be called — and Write flushed —
// before the corresponding file is opened for writing, per section 3's
// durability invariant; fetcher.FetchFileList enforces that ordering.
func (s *PFSStore) AddFile(ctx context.Context, k Key, path string) error {
	fm := s.get(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	fm.Entries[path] = Entry{Path: path}
	return nil
}

// SetMeta implements Store.
func (s *PFSStore) SetMeta(ctx context.Context, k Key, path string, meta Meta) error {
	fm := s.get(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := fm.Entries[path]
	entry.Path = path
	entry.Meta = meta
	fm.Entries[path] = entry
	return nil
}

// SetExpectedFiles implements Store.
func (s *PFSStore) SetExpectedFiles(ctx context.Context, k Key, count int) error {
	fm := s.get(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	fm.ExpectedFileCount = count
	return nil
}

// SetDesc implements Store.
func (s *PFSStore) SetDesc(ctx context.Context, k Key, path, hash string) error {
	fm := s.get(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := fm.Entries[path]
	entry.Desc = hash
	fm.Entries[path] = entry
	return nil
}

// Write flushes every filemap this Store currently holds, whatever its
// key, to path as one snapshot. Callers pass the map_file configuration
// key.
func (s *PFSStore) Write(ctx context.Context, path string) error {
	// Write flushes all known filemaps; in production each rank's Store
	// only ever accumulates entries for its own rank, so the file holds
	// that rank's filemaps only. Tests that share one Store across ranks
	// get every rank's filemaps in each written snapshot.
	s.mu.Lock()
	snapshot := make(map[Key]Filemap, len(s.fms))
	for k, fm := range s.fms {
		snapshot[k] = *fm
	}
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	wc, err := s.Dir.Create(ctx, path)
	if err != nil {
		return fmt.Errorf("create filemap %s: %w", path, err)
	}
	if err := json.NewEncoder(wc).Encode(snapshot); err != nil {
		wc.Close()
		return fmt.Errorf("encode filemap %s: %v: %w", path, err, errkind.IO)
	}
	return wc.Close()
}

// Read loads back the filemaps persisted at path, for recovery (scenario
// S6) or tests.
func Read(ctx context.Context, dir pfs.Dir, path string) (map[Key]Filemap, error) {
	rc, err := dir.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open filemap %s: %w", path, err)
	}
	defer rc.Close()

	var out map[Key]Filemap
	if err := json.NewDecoder(rc).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode filemap %s: %v: %w", path, err, errkind.IO)
	}
	return out, nil
}
