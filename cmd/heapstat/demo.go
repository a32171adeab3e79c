package main

import (
	"math/rand"
	"unsafe"

	"github.com/prataprc/heapalloc"
)

// driveDemoWorkload allocates and frees a mix of tiny/small/medium
// allocations until roughly targetBytes have passed through the
// allocator, so status/contention/sizes have something non-zero to
// report.
func driveDemoWorkload(targetBytes int64) {
	sizes := []int64{16, 48, 96, 256, 600, 2048, 8192, 65536}
	rnd := rand.New(rand.NewSource(1))

	var live []unsafe.Pointer
	var issued int64
	for issued < targetBytes {
		size := sizes[rnd.Intn(len(sizes))]
		p := heapalloc.Alloc(size)
		if p == nil {
			break
		}
		issued += size
		live = append(live, p)
		if len(live) > 64 {
			heapalloc.Free(live[0])
			live = live[1:]
		}
	}
	for _, p := range live {
		heapalloc.Free(p)
	}
}
