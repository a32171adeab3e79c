//go:build linux

package osmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// remap uses the kernel's mremap(2) with MREMAP_MAYMOVE, the "may-move"
// grow/shrink primitive the large allocator's Linux grow path relies
// on to avoid a copy.
func remap(ptr unsafe.Pointer, oldSize, newSize int64) (unsafe.Pointer, bool) {
	if ptr == nil || oldSize <= 0 || newSize <= 0 {
		return nil, false
	}
	old := unsafe.Slice((*byte)(ptr), oldSize)
	data, err := unix.Mremap(old, int(newSize), unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, false
	}
	return unsafe.Pointer(&data[0]), true
}
