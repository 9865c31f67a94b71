// Package candidate implements CandidateLoop (C6 in the design): the
// search over successive checkpoints, newest-eligible first, stopping at
// the first one that fetches and verifies cleanly, per section 4.6.
// Resolves Open Question (iii): current_ceiling advances on every
// iteration regardless of outcome, and Loop is not reentrant-safe — it
// assumes exclusive ownership of idx/prefix for the duration of one call,
// matching how gurre-ddb-pitr's coordinator runs one restore at a time.
package candidate

import (
	"context"
	"fmt"

	"github.com/parallaxfs/ckptfetch/cache"
	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/flowcontrol"
	"github.com/parallaxfs/ckptfetch/index"
	"github.com/parallaxfs/ckptfetch/metrics"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/redundancy"
	"github.com/parallaxfs/ckptfetch/scatter"
	"github.com/parallaxfs/ckptfetch/summary"
	"github.com/parallaxfs/ckptfetch/transport"
)

// CurrentSymlink is the name of the prefix-relative pointer this loop
// updates to the most recently fetched, verified checkpoint.
const CurrentSymlink = "current"

// Params bundles the collaborators and configuration Loop needs.
type Params struct {
	Prefix      string
	Dir         pfs.Dir // the prefix directory itself, for the "current" symlink
	IndexStore  index.Store
	SummaryRdr  summary.Reader
	Cache       *cache.Manager
	FetchWidth  int
	ParamsFor   flowcontrol.FetchParamsFor
	ScatterDest func(dir string) // optional hook, e.g. to mirror dir into a rank's own Src binding
	Metrics     *metrics.Metrics
}

// Result reports the outcome of the search. DatasetID and CheckpointID
// are distinct: the former identifies the dataset the fetched summary
// manifest describes, the latter the index record that selected it.
type Result struct {
	DatasetID    int
	CheckpointID int
	Dir          string
	BytesFetched uint64
}

// Loop searches checkpoints at or below an ever-dropping ceiling,
// attempting each one in turn until a fetch succeeds or candidates are
// exhausted (errkind.Selection). Only rank 0 reads and mutates the
// index; every rank participates in scatter/flowcontrol for each
// attempt. Each iteration first checks whether the current symlink
// already names an indexed candidate and uses it directly, falling back
// to index.MostRecentComplete(ceiling) otherwise.
func Loop(ctx context.Context, t transport.Transport, p Params) (Result, error) {
	ceiling := -1

	for {
		var dir string
		var ckptID int
		var haveCandidate bool

		if t.Rank() == scatter.Root {
			idx, err := p.IndexStore.Read(ctx, p.Prefix)
			if err != nil {
				return Result{}, fmt.Errorf("candidate: read index: %w", err)
			}

			var id int
			var d string
			var found bool
			if p.Dir != nil {
				if target, rlErr := p.Dir.Readlink(ctx, CurrentSymlink); rlErr == nil && target != "" {
					if tid, ok := idx.GetIDByDir(target); ok {
						id, d, found = tid, target, true
					}
				}
			}
			if !found {
				id, d, found = idx.MostRecentComplete(ceiling)
			}

			haveCandidate = found
			ckptID, dir = id, d
		}

		haveAny, err := t.Broadcast(ctx, haveCandidate, scatter.Root)
		if err != nil {
			return Result{}, fmt.Errorf("candidate: broadcast availability: %w", err)
		}
		if !haveAny.(bool) {
			return Result{}, fmt.Errorf("candidate: no eligible checkpoint at or below ceiling %d: %w", ceiling, errkind.Selection)
		}

		dirAny, err := t.Broadcast(ctx, candidateInfo{ID: ckptID, Dir: dir}, scatter.Root)
		if err != nil {
			return Result{}, fmt.Errorf("candidate: broadcast candidate: %w", err)
		}
		info := dirAny.(candidateInfo)
		ceiling = info.ID - 1

		if t.Rank() == scatter.Root {
			idx, err := p.IndexStore.Read(ctx, p.Prefix)
			if err != nil {
				return Result{}, fmt.Errorf("candidate: read index: %w", err)
			}
			idx.MarkFetched(info.ID, info.Dir)
			if err := p.IndexStore.Write(ctx, p.Prefix, idx); err != nil {
				return Result{}, fmt.Errorf("candidate: persist fetch attempt: %w", err)
			}
		}

		if p.ScatterDest != nil {
			p.ScatterDest(info.Dir)
		}

		fl, err := scatter.Scatter(ctx, t, p.SummaryRdr, info.Dir)
		if err != nil {
			if t.Rank() == scatter.Root {
				if failErr := failCandidate(ctx, p, info); failErr != nil {
					return Result{}, failErr
				}
			}
			if err := t.Barrier(ctx); err != nil {
				return Result{}, fmt.Errorf("candidate: barrier after failed attempt: %w", err)
			}
			continue
		}

		cacheDir := info.Dir
		if p.Cache != nil {
			d, err := p.Cache.DirCreate(ctx, info.Dir)
			if err != nil {
				return Result{}, fmt.Errorf("candidate: create cache dir: %w", err)
			}
			cacheDir = d
		}

		ok, bytes, err := flowcontrol.Run(ctx, t, p.FetchWidth, fl, cacheDir, p.ParamsFor)
		if err != nil {
			return Result{}, fmt.Errorf("candidate: flow control: %w", err)
		}

		if !ok {
			if t.Rank() == scatter.Root {
				if failErr := failCandidate(ctx, p, info); failErr != nil {
					return Result{}, failErr
				}
			}
			if err := t.Barrier(ctx); err != nil {
				return Result{}, fmt.Errorf("candidate: barrier after failed attempt: %w", err)
			}
			continue
		}

		if _, err := redundancy.Apply(ctx, bytes); err != nil {
			return Result{}, fmt.Errorf("candidate: redundancy apply: %w", err)
		}

		if t.Rank() == scatter.Root {
			idx, err := p.IndexStore.Read(ctx, p.Prefix)
			if err != nil {
				return Result{}, fmt.Errorf("candidate: read index: %w", err)
			}
			idx.MarkFetched(info.ID, info.Dir)
			if err := p.IndexStore.Write(ctx, p.Prefix, idx); err != nil {
				return Result{}, fmt.Errorf("candidate: persist success: %w", err)
			}
			if p.Dir != nil {
				if err := p.Dir.Symlink(ctx, info.Dir, CurrentSymlink); err != nil {
					return Result{}, fmt.Errorf("candidate: update current symlink: %w", err)
				}
			}
		}

		return Result{DatasetID: fl.Dataset.ID, CheckpointID: info.ID, Dir: info.Dir, BytesFetched: bytes}, nil
	}
}

type candidateInfo struct {
	ID  int
	Dir string
}

// failCandidate runs the full failure sequence from section 4.6 step 6
// unconditionally, regardless of which stage of the scatter/flowcontrol/
// fetch pipeline failed: unlink current, scrub the candidate's partial
// cache, record the retry, and blacklist the candidate in the index.
// Callers must only invoke this on rank 0.
func failCandidate(ctx context.Context, p Params, info candidateInfo) error {
	if p.Metrics != nil {
		p.Metrics.RecordCandidateRetry()
	}
	if p.Dir != nil {
		if err := p.Dir.Remove(ctx, CurrentSymlink); err != nil {
			return fmt.Errorf("candidate: unlink current after failed attempt: %w", err)
		}
	}
	if p.Cache != nil {
		if err := p.Cache.Delete(ctx, info.Dir); err != nil {
			return fmt.Errorf("candidate: cleanup after failed attempt: %w", err)
		}
	}
	return markFailed(ctx, p, info)
}

func markFailed(ctx context.Context, p Params, info candidateInfo) error {
	idx, err := p.IndexStore.Read(ctx, p.Prefix)
	if err != nil {
		return fmt.Errorf("candidate: read index: %w", err)
	}
	idx.MarkFailed(info.ID, info.Dir)
	if err := p.IndexStore.Write(ctx, p.Prefix, idx); err != nil {
		return fmt.Errorf("candidate: persist failure: %w", err)
	}
	return nil
}
