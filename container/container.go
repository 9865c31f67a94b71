// Package container implements ContainerReader (C2 in the design):
// reconstructing one logical file by concatenating byte ranges read from
// container files at specified offsets, per section 4.2.
package container

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"sort"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/summary"
)

// Reconstruct writes dstName within dst by concatenating segments read
// from the container files named in containers (resolved within src, the
// checkpoint's storage directory), in ascending logical-file-offset
// order. Segments are sorted here with sort.SliceStable, so ties keep
// their original relative order — section 4.2 step 2's mandatory
// ordering, since the destination is written sequentially and the CRC is
// accumulated across the whole write. src must implement pfs.RangeReader
// so a segment's byte range can be opened without reading the whole
// container file.
func Reconstruct(ctx context.Context, src pfs.RangeReader, dst pfs.Dir, dstName string, segments []summary.Segment, containers summary.Containers, bufSize int, wantCRC bool, expectedCRC *uint32) (crc uint32, err error) {
	if bufSize <= 0 {
		bufSize = 1 << 20
	}

	wc, err := dst.Create(ctx, dstName)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dstName, err)
	}
	defer wc.Close()

	ordered := make([]summary.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OffsetInLogicalFile < ordered[j].OffsetInLogicalFile
	})

	hasher := crc32.NewIEEE()
	buf := make([]byte, bufSize)

	for _, seg := range ordered {
		if seg.Length == 0 {
			continue
		}
		if err := copySegment(ctx, wc, hasher, wantCRC, seg, containers, src, buf); err != nil {
			return 0, err
		}
	}

	if !wantCRC {
		return 0, nil
	}
	crc = hasher.Sum32()
	if expectedCRC != nil && crc != *expectedCRC {
		return crc, fmt.Errorf("crc32 mismatch for %s: got %#x want %#x: %w",
			dstName, crc, *expectedCRC, errkind.Integrity)
	}
	return crc, nil
}

func copySegment(ctx context.Context, dst io.Writer, hasher io.Writer, wantCRC bool, seg summary.Segment, containers summary.Containers, src pfs.RangeReader, buf []byte) error {
	info, err := containers.Get(seg.Container.ID)
	if err != nil {
		return err
	}
	// Supplemented bounds check (section 4, original_source): catch an
	// out-of-range segment as ErrManifest before it turns into a
	// confusing short-read ErrIO at the container's EOF.
	if seg.Container.OffsetInContainer+seg.Length > info.Size {
		return fmt.Errorf("segment [%d,+%d) exceeds container %q size %d: %w",
			seg.Container.OffsetInContainer, seg.Length, info.Name, info.Size, errkind.Manifest)
	}

	rc, err := src.OpenRange(ctx, info.Name, seg.Container.OffsetInContainer, seg.Length)
	if err != nil {
		return fmt.Errorf("open range %s: %w", info.Name, err)
	}
	defer rc.Close()

	var w io.Writer = dst
	if wantCRC {
		w = io.MultiWriter(dst, hasher)
	}

	n, err := io.CopyBuffer(w, rc, buf)
	if err != nil {
		return fmt.Errorf("copy segment from %s: %v: %w", info.Name, err, errkind.IO)
	}
	if uint64(n) != seg.Length {
		return fmt.Errorf("short read from container %s: got %d want %d bytes: %w",
			info.Name, n, seg.Length, errkind.IO)
	}
	return nil
}
