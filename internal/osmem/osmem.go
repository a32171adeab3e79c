// Package osmem is the allocator's one point of contact with the kernel:
// anonymous, private virtual-memory map/unmap, and (where the kernel
// supports it) in-place remap. Every super-pool (medium tier) and every
// large block is backed by a call into this package — never libc malloc.
package osmem

import "unsafe"

// Map reserves and commits `size` bytes of anonymous, private, read-write
// memory from the OS. Returns nil on failure. The returned pointer is
// page aligned, which satisfies the allocator's 16-byte alignment
// requirement trivially.
func Map(size int64) unsafe.Pointer {
	return mmap(size)
}

// Unmap releases a region previously returned by Map or Remap.
func Unmap(ptr unsafe.Pointer, size int64) {
	munmap(ptr, size)
}

// Remap attempts to grow or shrink a mapping in place, possibly moving it.
// ok is false when the platform/kernel cannot do this cheaply, in which
// case the caller should fall back to alloc+copy+free. On Linux this is
// backed by mremap(2) with MREMAP_MAYMOVE. Elsewhere it always reports
// ok=false.
func Remap(ptr unsafe.Pointer, oldSize, newSize int64) (newPtr unsafe.Pointer, ok bool) {
	return remap(ptr, oldSize, newSize)
}

// PageSize returns the OS page size in bytes.
func PageSize() int64 {
	return pageSize()
}

// RoundPages rounds n up to a multiple of the OS page size.
func RoundPages(n int64) int64 {
	ps := PageSize()
	if n <= 0 {
		return ps
	}
	return ((n + ps - 1) / ps) * ps
}
