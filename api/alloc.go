// Package api defines the allocator-facing interface external
// packages can depend on instead of importing heapalloc directly —
// useful for callers that want to swap in a mock or a differently
// configured allocator in tests.
package api

import "unsafe"

// Allocator is the surface a caller needs from a heap allocator:
// allocate, zero-allocate, free, resize, and query the nominal size
// of a live block.
type Allocator interface {
	// Alloc returns n bytes of uninitialized memory, or nil on
	// failure.
	Alloc(n int64) unsafe.Pointer

	// AllocZeroed returns n bytes of zeroed memory, or nil on
	// failure.
	AllocZeroed(n int64) unsafe.Pointer

	// Free returns ptr to its owning tier, reporting its nominal
	// size (0 if ptr is nil or already freed).
	Free(ptr unsafe.Pointer) int64

	// SizeOf reports the nominal size of a live allocation.
	SizeOf(ptr unsafe.Pointer) int64

	// Realloc resizes the allocation at *ptr to n bytes, updating
	// *ptr in place.
	Realloc(ptr *unsafe.Pointer, n int64) unsafe.Pointer
}
