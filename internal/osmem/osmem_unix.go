//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package osmem

import (
	"errors"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func mmap(size int64) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	data, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

func munmap(ptr unsafe.Pointer, size int64) {
	if ptr == nil || size <= 0 {
		return
	}
	data := unsafe.Slice((*byte)(ptr), size)
	if err := unix.Munmap(data); err != nil && !errors.Is(err, unix.EINVAL) {
		// treat double-unmap and already-gone mappings as no-ops; any
		// other failure here would be a bug in the caller's bookkeeping.
	}
}

func pageSize() int64 {
	return int64(os.Getpagesize())
}
