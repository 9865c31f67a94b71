package flowcontrol

import (
	"context"
	"sync"
	"testing"

	"github.com/parallaxfs/ckptfetch/fetcher"
	"github.com/parallaxfs/ckptfetch/filemap"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/summary"
	"github.com/parallaxfs/ckptfetch/transport"
)

func TestRunSucceedsAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	worldSize := 4
	l := transport.NewLocal(worldSize, 16)

	src := pfs.NewLocal(t.TempDir())
	for r := 1; r < worldSize; r++ {
		wc, _ := src.Create(ctx, ratedFile(r))
		wc.Write([]byte("data"))
		wc.Close()
	}

	dst := pfs.NewLocal(t.TempDir())
	fm := filemap.NewPFSStore(dst)

	paramsFor := func(r int, datasetID int, cacheDir string) fetcher.Params {
		return fetcher.Params{
			Src:         src,
			Dst:         dst,
			DstDir:      cacheDir,
			Filemap:     fm,
			FilemapKey:  filemap.Key{DatasetID: datasetID, Rank: r},
			FilemapPath: "filemap",
		}
	}

	results := make([]struct {
		ok    bool
		bytes uint64
		err   error
	}, worldSize)
	var wg sync.WaitGroup
	for r := 0; r < worldSize; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			fl := summary.FileList{
				Dataset: summary.Dataset{Files: 1},
				Files:   map[string]summary.FileRecord{ratedFile(r): {Filename: ratedFile(r), Size: 4}},
			}
			ok, bytes, err := Run(ctx, l.Rank(r), 2, fl, "cache-dest", paramsFor)
			results[r].ok, results[r].bytes, results[r].err = ok, bytes, err
		}()
	}
	wg.Wait()

	for r, res := range results {
		if res.err != nil {
			t.Fatalf("rank %d: %v", r, res.err)
		}
		if !res.ok {
			t.Errorf("rank %d: expected overall success", r)
		}
	}
}

func ratedFile(r int) string {
	return "file-" + string(rune('0'+r))
}
