// Package scatter implements SummaryScatter (C4 in the design): rank 0
// reads the checkpoint's summary manifest and fans it out to every rank,
// per section 4.4. Three collective rounds carry, in order, the "found a
// summary at all" status, the dataset header plus container catalogue,
// and finally each rank's own file subset — rank 0 never materializes
// the full Rank2File map on any other rank (step 4).
package scatter

import (
	"context"
	"fmt"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/summary"
	"github.com/parallaxfs/ckptfetch/transport"
)

// Root is the rank that owns the summary read, matching flowcontrol's
// and candidate's assumption that rank 0 drives selection.
const Root = 0

// header carries the dataset + container catalogue, broadcast in round 2.
type header struct {
	Dataset    summary.Dataset
	Containers summary.Containers
}

// Scatter reads dir's summary manifest on rank Root only and distributes
// it to every rank. reader is only consulted by the root rank; non-root
// ranks may pass a nil reader. Every rank returns the FileList it should
// fetch, with Path attached in plain-file mode.
func Scatter(ctx context.Context, t transport.Transport, reader summary.Reader, dir string) (summary.FileList, error) {
	found := true
	var manifest summary.Manifest

	if t.Rank() == Root {
		m, err := reader.Read(ctx, dir)
		if err != nil {
			found = false
		} else {
			manifest = m
		}
	}

	foundAny, err := t.Broadcast(ctx, found, Root)
	if err != nil {
		return summary.FileList{}, fmt.Errorf("scatter: broadcast status: %w", err)
	}
	if !foundAny.(bool) {
		return summary.FileList{}, fmt.Errorf("scatter: no summary at %s: %w", dir, errkind.Manifest)
	}

	hdrAny, err := t.Broadcast(ctx, header{Dataset: manifest.Dataset, Containers: manifest.Containers}, Root)
	if err != nil {
		return summary.FileList{}, fmt.Errorf("scatter: broadcast header: %w", err)
	}
	hdr := hdrAny.(header)

	send := map[int]any{}
	if t.Rank() == Root {
		for rank := 0; rank < t.Size(); rank++ {
			send[rank] = summary.FilesForRank(manifest, rank, dir)
		}
	}
	flAny, err := t.Exchange(ctx, send, Root)
	if err != nil {
		return summary.FileList{}, fmt.Errorf("scatter: exchange file lists: %w", err)
	}

	fl, ok := flAny.(summary.FileList)
	if !ok {
		// Root never scattered this rank a list at all — an empty file
		// list is a legitimate, not exceptional, outcome.
		return summary.FileList{Dataset: hdr.Dataset, Containers: hdr.Containers, Files: map[string]summary.FileRecord{}}, nil
	}
	return fl, nil
}
