package heapalloc

import (
	"testing"
	"unsafe"

	"github.com/prataprc/heapalloc/api"
)

func TestAllocatorSatisfiesAPI(t *testing.T) {
	setup(t)

	var a api.Allocator = Allocator{}
	p := a.Alloc(64)
	if p == nil {
		t.Fatalf("expected non-nil allocation")
	}
	if a.SizeOf(p) < 64 {
		t.Fatalf("expected SizeOf to report at least requested size")
	}

	grown := a.Realloc(&p, 4096)
	if grown == nil {
		t.Fatalf("expected realloc to succeed")
	}

	if n := a.Free(p); n == 0 {
		t.Fatalf("expected non-zero freed size")
	}
}

func TestAllocatorAllocZeroed(t *testing.T) {
	setup(t)

	var a api.Allocator = Allocator{}
	p := a.AllocZeroed(32)
	b := unsafe.Slice((*byte)(p), 32)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("expected zeroed byte at %v, got %v", i, v)
		}
	}
	a.Free(p)
}
