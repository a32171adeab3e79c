//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package osmem

import "unsafe"

// remap has no cheap may-move primitive outside Linux; callers fall back
// to alloc+copy+free.
func remap(ptr unsafe.Pointer, oldSize, newSize int64) (unsafe.Pointer, bool) {
	return nil, false
}
