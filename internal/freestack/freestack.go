// Package freestack is a single-CAS-push, atomic-swap-drain LIFO of
// blocks a contended freer hands off instead of blocking on the
// owning size class's lock. No ABA protection is needed — the stack
// is only ever drained under the owning structure's normal lock, and
// a pushed block is never reused until drained.
//
// Grounded on the atomic.Pointer[T] CAS push/pop idiom used for
// size-classed free lists in the retrieval pack's wasi-plugin-driver
// allocator, adapted here to a bulk-drain stack rather than a
// pop-one-at-a-time stack, since the owning lock holder processes the
// whole detached list in one critical section.
package freestack

import (
	"sync/atomic"
	"unsafe"
)

// node overlays the first machine word of a freed block: once a block is
// freed its payload bytes are unused until reallocated, so the stack
// linkage can live directly in the block's own memory with no side
// allocation.
type node struct {
	next atomic.Pointer[node]
}

// Stack is a lock-less LIFO of freed blocks belonging to one size class
// or one medium-info namespace.
type Stack struct {
	head atomic.Pointer[node]
}

// Push atomically adds block to the stack. Linearizable: a single CAS on
// the head.
func (s *Stack) Push(block unsafe.Pointer) {
	n := (*node)(block)
	for {
		old := s.head.Load()
		n.next.Store(old)
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// PushChain atomically splices an already-linked chain (head..tail, tail's
// own next is ignored and overwritten) back onto the stack in one CAS
// loop. Used when a drain pops one element off the front and needs to
// restore the rest as a unit.
func (s *Stack) PushChain(head, tail unsafe.Pointer) {
	if head == nil {
		return
	}
	n := (*node)(head)
	t := (*node)(tail)
	for {
		old := s.head.Load()
		t.next.Store(old)
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// Drain atomically detaches the entire list and returns its head (or nil
// if the stack was empty). Not linearizable with concurrent pushes in
// the usual sense — pushes that race the drain either land in the
// detached list or start a fresh one, but a push always succeeds and
// a drain always empties whatever chain existed at the swap.
func (s *Stack) Drain() unsafe.Pointer {
	return unsafe.Pointer(s.head.Swap(nil))
}

// Next returns the block chained after block in a list returned by
// Drain, or nil at the end of the list.
func Next(block unsafe.Pointer) unsafe.Pointer {
	n := (*node)(block)
	return unsafe.Pointer(n.next.Load())
}

// Empty reports whether the stack currently has no elements. Advisory
// only — a concurrent Push can invalidate the answer immediately.
func (s *Stack) Empty() bool {
	return s.head.Load() == nil
}
