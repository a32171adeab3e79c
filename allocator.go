package heapalloc

import (
	"unsafe"

	"github.com/prataprc/heapalloc/api"
)

// Allocator is a package-level handle satisfying api.Allocator, for
// callers that want to depend on an interface instead of this
// package's free functions directly. It carries no state of its own:
// every method dispatches to the package's shared tiers, so every
// Allocator value is interchangeable with every other.
type Allocator struct{}

var _ api.Allocator = Allocator{}

func (Allocator) Alloc(n int64) unsafe.Pointer       { return Alloc(n) }
func (Allocator) AllocZeroed(n int64) unsafe.Pointer { return AllocZeroed(n) }
func (Allocator) Free(ptr unsafe.Pointer) int64      { return Free(ptr) }
func (Allocator) SizeOf(ptr unsafe.Pointer) int64    { return SizeOf(ptr) }

func (Allocator) Realloc(ptr *unsafe.Pointer, n int64) unsafe.Pointer {
	return Realloc(ptr, n)
}
