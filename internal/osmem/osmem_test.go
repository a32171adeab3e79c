package osmem

import (
	"testing"
	"unsafe"
)

func TestMapUnmap(t *testing.T) {
	size := int64(64 * 1024)
	ptr := Map(size)
	if ptr == nil {
		t.Fatalf("Map failed")
	}
	buf := unsafe.Slice((*byte)(ptr), size)
	for i := range buf {
		buf[i] = 0xAB
	}
	for i := range buf {
		if buf[i] != 0xAB {
			t.Fatalf("unexpected byte at %d", i)
		}
	}
	Unmap(ptr, size)
}

func TestRoundPages(t *testing.T) {
	ps := PageSize()
	if ps <= 0 {
		t.Fatalf("expected positive page size")
	}
	if RoundPages(1) != ps {
		t.Fatalf("expected %v, got %v", ps, RoundPages(1))
	}
	if RoundPages(ps) != ps {
		t.Fatalf("expected %v, got %v", ps, RoundPages(ps))
	}
	if RoundPages(ps+1) != 2*ps {
		t.Fatalf("expected %v, got %v", 2*ps, RoundPages(ps+1))
	}
}
