// Package fetcher implements FileListFetcher (C3 in the design): fetching
// one rank's file list, per section 4.3. Each file is recorded into the
// filemap and the filemap flushed to disk before its destination is
// created — section 3's durability invariant — then either reconstructed
// from containers or copied directly, depending on whether the record
// carries segments.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/parallaxfs/ckptfetch/container"
	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/filecopy"
	"github.com/parallaxfs/ckptfetch/filemap"
	"github.com/parallaxfs/ckptfetch/logevent"
	"github.com/parallaxfs/ckptfetch/metrics"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/summary"
)

// Result summarizes one rank's fetch attempt.
type Result struct {
	Success      bool
	BytesFetched uint64
	Failed       []string
}

// Params bundles everything FetchFileList needs beyond the file list
// itself, so the call site (flowcontrol) doesn't have to thread a long
// positional argument list through the sliding window.
type Params struct {
	Src         pfs.Dir // checkpoint storage directory: summary + container files, or plain files
	Dst         pfs.Dir // local cache directory files land in
	DstDir      string  // candidate's cache subdirectory within Dst, from cache.Manager.DirCreate/DirGet
	Filemap     filemap.Store
	FilemapKey  filemap.Key
	FilemapPath string
	Log         *logevent.Log
	Metrics     *metrics.Metrics
	BufSize     int
	WantCRC     bool
}

// FetchFileList fetches every file in fl into p.Dst, skipping entries
// marked NoFetch. Each file's filemap entry is added and flushed before
// its destination is opened. A per-file failure is recorded (Meta.Complete
// flipped to false, the name added to Result.Failed) but does not abort
// the remaining files — section 4.3 step 6. After the last file the
// expected file count is set to the number of files processed, and the
// filemap is flushed once more so that count and the final per-file
// Complete/CRC32 status are durable.
func FetchFileList(ctx context.Context, fl summary.FileList, p Params) (Result, error) {
	var res Result
	res.Success = true
	processed := 0

	for _, name := range fl.SortedFilenames() {
		rec := fl.Files[name]
		if rec.NoFetch {
			continue
		}
		processed++

		start := time.Now()
		n, err := fetchOne(ctx, rec, fl.Containers, p)
		dur := time.Since(start)

		if err != nil {
			res.Success = false
			res.Failed = append(res.Failed, name)
			if p.Log != nil {
				id := fl.Dataset.ID
				p.Log.Event("FILE FETCH FAILED", fmt.Sprintf("%s: %v", name, err), &id, time.Now(), &dur)
			}
			if p.Metrics != nil {
				p.Metrics.RecordFileFailed()
			}
			continue
		}

		res.BytesFetched += n
		if p.Log != nil {
			p.Log.Transfer("fetch", name, name, fl.Dataset.ID, start, dur, n)
		}
		if p.Metrics != nil {
			p.Metrics.RecordFileFetched(n)
		}
	}

	if err := p.Filemap.SetExpectedFiles(ctx, p.FilemapKey, processed); err != nil {
		return res, fmt.Errorf("set expected files: %w", err)
	}
	if err := p.Filemap.Write(ctx, p.FilemapPath); err != nil {
		return res, fmt.Errorf("write filemap: %w", err)
	}
	return res, nil
}

func fetchOne(ctx context.Context, rec summary.FileRecord, containers summary.Containers, p Params) (uint64, error) {
	if err := p.Filemap.AddFile(ctx, p.FilemapKey, rec.Filename); err != nil {
		return 0, fmt.Errorf("add file %s: %w", rec.Filename, err)
	}
	if err := p.Filemap.Write(ctx, p.FilemapPath); err != nil {
		return 0, fmt.Errorf("flush filemap after add file %s: %w", rec.Filename, err)
	}

	meta := filemap.Meta{
		Filename: rec.Filename,
		Filetype: filemap.FULL,
		Filesize: rec.Size,
		Complete: true,
		CRC32:    rec.CRC32,
		Ranks:    1,
	}

	dstName := rec.Filename
	if p.DstDir != "" {
		dstName = pfs.Join(p.DstDir, rec.Filename)
	}

	var crc uint32
	var err error
	if rec.IsContainerBacked() {
		rr, ok := p.Src.(pfs.RangeReader)
		if !ok {
			return 0, fmt.Errorf("source directory does not support ranged reads: %w", errkind.IO)
		}
		crc, err = container.Reconstruct(ctx, rr, p.Dst, dstName, rec.Segments, containers, p.BufSize, p.WantCRC, rec.CRC32)
	} else {
		srcName := rec.Filename
		if rec.Path != "" {
			srcName = pfs.Join(rec.Path, rec.Filename)
		}
		crc, err = filecopy.Copy(ctx, p.Src, srcName, p.Dst, dstName, p.BufSize, p.WantCRC, rec.CRC32)
	}

	if err != nil {
		meta.Complete = false
		if setErr := p.Filemap.SetMeta(ctx, p.FilemapKey, rec.Filename, meta); setErr != nil {
			return 0, fmt.Errorf("%w (also failed to record meta: %v)", err, setErr)
		}
		return 0, err
	}

	if p.WantCRC {
		meta.CRC32 = &crc
	}
	if err := p.Filemap.SetMeta(ctx, p.FilemapKey, rec.Filename, meta); err != nil {
		return 0, fmt.Errorf("set meta for %s: %w", rec.Filename, err)
	}
	return rec.Size, nil
}
