//go:build windows

package large

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/prataprc/heapalloc/internal/blockhdr"
)

// growInPlace probes the virtual-memory region immediately following
// the current block; if it is free and large enough, reserves and
// commits it in two steps for atomicity and marks the block as
// segmented so teardown walks the two regions separately.
//
// Grounded on a lazy-DLL GOOS-split pattern used for file locks,
// generalized here from file locks to VirtualAlloc/Query.
func (p *Pool) growInPlace(payload unsafe.Pointer, oldSize, newSize int64) unsafe.Pointer {
	base := baseOf(payload)
	extra := newSize - oldSize

	adjacent := unsafe.Pointer(uintptr(base) + uintptr(oldSize))
	var mbi windows.MemoryBasicInformation
	err := windows.VirtualQuery(
		uintptr(adjacent), &mbi, unsafe.Sizeof(mbi))
	if err != nil || mbi.State != windows.MEM_FREE || uint64(mbi.RegionSize) < uint64(extra) {
		return nil
	}

	reserved, err := windows.VirtualAlloc(
		uintptr(adjacent), uintptr(extra), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil
	}
	if _, err := windows.VirtualAlloc(
		reserved, uintptr(extra), windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		windows.VirtualFree(reserved, 0, windows.MEM_RELEASE)
		return nil
	}

	hdr := blockhdr.At(payload)
	*hdr = blockhdr.PackSize(newSize, (hdr.Flags()|blockhdr.LargeSegmented)&^blockhdr.IsFree)

	p.lock.Acquire(5000)
	p.recordAlloc(extra)
	p.lock.Unlock()

	return payload
}
