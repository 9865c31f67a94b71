//go:build !linux

package filecopy

import "os"

// adviseDontNeed is a no-op on platforms without fadvise(2), following
// the same _linux.go/_other.go split dsmmcken-dh-cli uses for its
// platform-specific VM download path.
func adviseDontNeed(f *os.File) {}
