// Package filecopy implements FileCopy (C1 in the design): streaming one
// plain file from a source directory to a destination directory with an
// optional rolling CRC32, matching section 4.1. Buffer sizing and the
// scoped-acquisition/guaranteed-release discipline follow section 5. Both
// sides are pfs.Dir so the source may be a local mount or an S3-backed
// prefix.
package filecopy

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/parallaxfs/ckptfetch/errkind"
	"github.com/parallaxfs/ckptfetch/pfs"
)

// Copy streams srcName out of src into dstName within dst, using a buffer
// of bufSize bytes. When wantCRC is true, it accumulates a rolling IEEE
// CRC32 over the bytes written and, if expectedCRC is non-nil, compares
// the result and returns errkind.Integrity on mismatch.
//
// No third-party CRC32 implementation appears anywhere in the retrieval
// pack; hash/crc32's IEEE table is the only grounding available and is
// the same polynomial the original C implementation uses via zlib.
func Copy(ctx context.Context, src pfs.Dir, srcName string, dst pfs.Dir, dstName string, bufSize int, wantCRC bool, expectedCRC *uint32) (crc uint32, err error) {
	rc, err := src.Open(ctx, srcName)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", srcName, err)
	}
	defer func() {
		if f, ok := rc.(*os.File); ok {
			adviseDontNeed(f)
		}
		rc.Close()
	}()

	wc, err := dst.Create(ctx, dstName)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dstName, err)
	}
	defer wc.Close()

	if bufSize <= 0 {
		bufSize = 1 << 20
	}
	buf := make([]byte, bufSize)

	hasher := crc32.NewIEEE()
	var w io.Writer = wc
	if wantCRC {
		w = io.MultiWriter(wc, hasher)
	}

	if _, err := io.CopyBuffer(w, rc, buf); err != nil {
		return 0, fmt.Errorf("copy %s -> %s: %v: %w", srcName, dstName, err, errkind.IO)
	}

	if !wantCRC {
		return 0, nil
	}
	crc = hasher.Sum32()
	if expectedCRC != nil && crc != *expectedCRC {
		return crc, fmt.Errorf("crc32 mismatch for %s: got %#x want %#x: %w",
			srcName, crc, *expectedCRC, errkind.Integrity)
	}
	return crc, nil
}
