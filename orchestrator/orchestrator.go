// Package orchestrator implements FetchOrchestrator (C7 in the design):
// the top-level entry point section 4.7 describes — barrier every rank
// in, run the candidate search, record wall-clock timed start/success/
// failure events, and on success flip the flush-location flags so the
// rest of the job knows where its restored dataset lives.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/parallaxfs/ckptfetch/candidate"
	"github.com/parallaxfs/ckptfetch/flushflags"
	"github.com/parallaxfs/ckptfetch/logevent"
	"github.com/parallaxfs/ckptfetch/scatter"
	"github.com/parallaxfs/ckptfetch/transport"
)

// Observables are the process-wide values FetchSync sets on success, so
// the rest of the job can find the dataset it just restored.
type Observables struct {
	DatasetID    int
	CheckpointID int
	Dir          string
}

// FetchSync runs one end-to-end fetch: barrier, candidate search,
// completion event, flag flip. It returns the Observables a caller
// should publish on success; on failure it returns a non-nil error and
// the Observables are zero.
func FetchSync(ctx context.Context, t transport.Transport, p candidate.Params, log *logevent.Log, flags *flushflags.Set) (Observables, error) {
	if err := t.Barrier(ctx); err != nil {
		return Observables{}, fmt.Errorf("orchestrator: entry barrier: %w", err)
	}

	start := time.Now()
	if t.Rank() == scatter.Root {
		log.Event("FETCH STARTED", p.Prefix, nil, start, nil)
	}

	res, err := candidate.Loop(ctx, t, p)
	dur := time.Since(start)

	if err != nil {
		if t.Rank() == scatter.Root {
			log.Event("FETCH FAILED", fmt.Sprintf("%s: %v", p.Prefix, err), nil, time.Now(), &dur)
		}
		return Observables{}, err
	}

	if t.Rank() == scatter.Root {
		id := res.CheckpointID
		log.Event("FETCH SUCCEEDED", res.Dir, &id, time.Now(), &dur)
		log.Transfer("FETCH", res.Dir, res.Dir, res.DatasetID, start, dur, res.BytesFetched)
	}

	if flags != nil {
		flags.Set(flushflags.CACHE)
		flags.Set(flushflags.PFS)
		flags.Clear(flushflags.FLUSHING)
	}

	return Observables{
		DatasetID:    res.DatasetID,
		CheckpointID: res.CheckpointID,
		Dir:          res.Dir,
	}, nil
}
