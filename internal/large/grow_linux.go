//go:build linux

package large

import "unsafe"

import "github.com/prataprc/heapalloc/internal/blockhdr"
import "github.com/prataprc/heapalloc/internal/osmem"

// growInPlace uses the kernel's TLB-remap primitive (may-move
// semantics) to grow a large block in place where possible (spec
// §4.4 "On Linux: use the kernel's TLB-remap primitive").
func (p *Pool) growInPlace(payload unsafe.Pointer, oldSize, newSize int64) unsafe.Pointer {
	base := baseOf(payload)

	p.lock.Acquire(5000)
	p.unlinkBlock(base)
	p.lock.Unlock()

	newBase, ok := osmem.Remap(base, oldSize, newSize)
	if !ok {
		p.lock.Acquire(5000)
		p.linkBlock(base)
		p.lock.Unlock()
		return nil
	}

	p.lock.Acquire(5000)
	p.linkBlock(newBase)
	p.recordFree(oldSize)
	p.recordAlloc(newSize)
	p.lock.Unlock()

	*blockhdr.At(headerAddr(newBase)) = blockhdr.PackSize(newSize, blockhdr.IsLarge)
	return payloadOf(newBase)
}
