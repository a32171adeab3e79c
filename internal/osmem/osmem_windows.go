//go:build windows

package osmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmap(size int64) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil || addr == 0 {
		return nil
	}
	return unsafe.Pointer(addr)
}

func munmap(ptr unsafe.Pointer, size int64) {
	if ptr == nil {
		return
	}
	_ = windows.VirtualFree(uintptr(ptr), 0, windows.MEM_RELEASE)
}

// remap has no may-move primitive on Windows; the large allocator's
// Windows grow path instead probes the adjacent VM region directly (see
// large/grow_windows.go) and falls back to alloc+copy+free otherwise.
func remap(ptr unsafe.Pointer, oldSize, newSize int64) (unsafe.Pointer, bool) {
	return nil, false
}

func pageSize() int64 {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int64(info.PageSize)
}
