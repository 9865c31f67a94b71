//go:build linux

package filecopy

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseDontNeed tells the kernel the pages backing f will not be reused,
// per section 4.1 — a one-shot restore read should not pollute the page
// cache. Mirrors the platform-gated syscall wrapper pattern used by
// Azure-azure-storage-azcopy's common/fdatasync_linux.go. Errors are
// ignored: this is an optimization hint, not a correctness requirement.
func adviseDontNeed(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
