// Package flowcontrol implements FlowControl (C5 in the design): rank 0's
// sliding window of at most W ranks fetching concurrently, per section
// 4.5. Rank 0 sends each "go" with Send and posts a non-blocking IRecv
// for the matching "done" reply; wait-any lets it refill a slot as soon
// as any reply lands, rather than waiting on ranks in a fixed order.
package flowcontrol

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/fetcher"
	"github.com/parallaxfs/ckptfetch/scatter"
	"github.com/parallaxfs/ckptfetch/summary"
	"github.com/parallaxfs/ckptfetch/transport"
)

const (
	tagGo   = 1
	tagDone = 2
)

// goMsg is what rank 0 sends a worker rank to release it into fetching
// (or to skip, once a prior failure has poisoned the round).
type goMsg struct {
	Skip bool
}

// doneMsg is what a worker rank sends back once its fetch attempt
// finishes.
type doneMsg struct {
	Rank    int
	Success bool
	Bytes   uint64
}

// FetchParamsFor builds the fetcher.Params a given worker rank needs for
// the dataset currently being fetched, landing its files under cacheDir.
// Supplied by the caller (candidate.Loop) since it depends on per-rank
// storage wiring this package has no opinion about.
type FetchParamsFor func(rank int, datasetID int, cacheDir string) fetcher.Params

// Run drives one fetch round across every rank. On rank 0 it implements
// the sliding window described above; on every other rank it blocks for
// a "go" message, fetches (unless skipped), and reports back. It returns
// the logical AND of every rank's success, established via a final
// AllReduceAnd so the candidate loop's success/failure decision is
// consistent across ranks even though only rank 0 observed the
// individual replies. cacheDir is the candidate's isolated cache
// subdirectory, passed through to paramsFor for every worker.
func Run(ctx context.Context, t transport.Transport, width int, fl summary.FileList, cacheDir string, paramsFor FetchParamsFor) (bool, uint64, error) {
	if t.Rank() == scatter.Root {
		ok, bytes, err := runRoot(ctx, t, width)
		if err != nil {
			return false, 0, err
		}
		final, rerr := t.AllReduceAnd(ctx, ok)
		if rerr != nil {
			return false, 0, fmt.Errorf("flowcontrol: final reduce: %w", rerr)
		}
		return final, bytes, nil
	}

	ok, bytes, err := runWorker(ctx, t, fl, cacheDir, paramsFor)
	if err != nil {
		return false, 0, err
	}
	final, rerr := t.AllReduceAnd(ctx, ok)
	if rerr != nil {
		return false, 0, fmt.Errorf("flowcontrol: final reduce: %w", rerr)
	}
	return final, bytes, nil
}

func runRoot(ctx context.Context, t transport.Transport, width int) (bool, uint64, error) {
	workers := t.Size() - 1
	if workers <= 0 {
		return true, 0, nil
	}
	w := width
	if w <= 0 || w > workers {
		w = workers
	}

	// sem bounds local OS resource concurrency (open fds, in-flight
	// copies) independent of how many ranks the window admits, following
	// Azure-azure-storage-azcopy's sendLimiter pattern of a semaphore
	// sized to the same concurrency figure as the scheduling window.
	sem := semaphore.NewWeighted(int64(w))

	success := true
	var totalBytes uint64
	next := 1 // next worker rank to admit
	outstanding := map[int]transport.Handle{}

	admit := func(rank int) error {
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("flowcontrol: acquire slot for rank %d: %w", rank, err)
		}
		if err := t.Send(ctx, goMsg{Skip: !success}, rank, tagGo); err != nil {
			sem.Release(1)
			return fmt.Errorf("flowcontrol: send go to rank %d: %w", rank, err)
		}
		outstanding[rank] = t.IRecv(ctx, rank, tagDone)
		return nil
	}

	for next <= workers && len(outstanding) < w {
		if err := admit(next); err != nil {
			return false, 0, err
		}
		next++
	}

	for len(outstanding) > 0 {
		ranks := make([]int, 0, len(outstanding))
		handles := make([]transport.Handle, 0, len(outstanding))
		for r, h := range outstanding {
			ranks = append(ranks, r)
			handles = append(handles, h)
		}

		idx, val, err := t.WaitAny(ctx, handles)
		if err != nil {
			return false, 0, fmt.Errorf("flowcontrol: wait-any: %w", err)
		}
		doneRank := ranks[idx]
		delete(outstanding, doneRank)
		sem.Release(1)

		msg, ok := val.(doneMsg)
		if !ok {
			return false, 0, fmt.Errorf("flowcontrol: malformed done reply from rank %d: %w", doneRank, errkind.Transport)
		}
		if !msg.Success {
			success = false
		}
		totalBytes += msg.Bytes

		if next <= workers {
			if err := admit(next); err != nil {
				return false, 0, err
			}
			next++
		}
	}

	return success, totalBytes, nil
}

func runWorker(ctx context.Context, t transport.Transport, fl summary.FileList, cacheDir string, paramsFor FetchParamsFor) (bool, uint64, error) {
	raw, err := t.Recv(ctx, scatter.Root, tagGo)
	if err != nil {
		return false, 0, fmt.Errorf("flowcontrol: recv go: %w", err)
	}
	msg, ok := raw.(goMsg)
	if !ok {
		return false, 0, fmt.Errorf("flowcontrol: malformed go message: %w", errkind.Transport)
	}

	success := true
	var bytes uint64

	if !msg.Skip {
		params := paramsFor(t.Rank(), fl.Dataset.ID, cacheDir)
		res, err := fetcher.FetchFileList(ctx, fl, params)
		if err != nil {
			success = false
		} else {
			success = res.Success
			bytes = res.BytesFetched
		}
	}

	if err := t.Send(ctx, doneMsg{Rank: t.Rank(), Success: success, Bytes: bytes}, scatter.Root, tagDone); err != nil {
		return false, 0, fmt.Errorf("flowcontrol: send done: %w", err)
	}
	return success, bytes, nil
}
