// Package cache implements the CacheManager collaborator from section 6:
// the local directory tree a candidate's files land in, and its cleanup
// after a failed fetch attempt. Grounded on gurre-ddb-pitr's FileStore,
// which already wraps a root directory with MkdirAll-on-demand semantics
// this package narrows to just create/delete.
package cache

import (
	"context"
	"fmt"

	"github.com/parallaxfs/ckptfetch/pfs"
)

// Manager owns the local cache directory tree beneath Root, one
// subdirectory per dataset name.
type Manager struct {
	Root pfs.Dir
}

// New creates a Manager rooted at root.
func New(root pfs.Dir) *Manager {
	return &Manager{Root: root}
}

// DirCreate ensures the cache subdirectory for dir exists (as a side
// effect of the first Create call any fetch into it performs) and
// returns the relative path candidate.Loop threads through to
// fetcher.Params.DstDir so every file for this candidate lands under its
// own subtree, isolated from any other candidate's partial files. Local
// and S3 backends both create parent directories lazily on write, so
// this is presently a pure name computation; it exists as a named step
// so a backend that does need eager creation has somewhere to put it.
func (m *Manager) DirCreate(ctx context.Context, dir string) (string, error) {
	return dir, nil
}

// DirGet returns the cache path for dir without creating anything,
// letting callers probe for a pre-existing candidate (e.g. a "current"
// symlink target from a previous job run).
func (m *Manager) DirGet(ctx context.Context, dir string) string {
	return dir
}

// Delete removes a candidate's cache directory after a failed fetch
// attempt, per section 4.6 step 6 — partial files must not survive to
// confuse the next candidate's fetch.
func (m *Manager) Delete(ctx context.Context, dir string) error {
	if err := m.Root.RemoveAll(ctx, dir); err != nil {
		return fmt.Errorf("cache: delete %s: %w", dir, err)
	}
	return nil
}
