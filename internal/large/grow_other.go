//go:build !linux && !windows

package large

import "unsafe"

// growInPlace has no analog outside Linux/Windows; the caller falls
// back to alloc+copy+free.
func (p *Pool) growInPlace(payload unsafe.Pointer, oldSize, newSize int64) unsafe.Pointer {
	return nil
}
