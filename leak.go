package heapalloc

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/prataprc/heapalloc/heaplog"
)

// leakRegistry maps a candidate vtable-pointer word (the first
// machine word of a live block's payload) to the Go type it is
// believed to represent. Populated by callers via RegisterLeakType,
// consulted only when both "report-leaks" and
// "report-leaks.experimental" are set.
//
// Grounded on the type-descriptor-pointer sanity-check idiom surfaced
// in the retrieval pack's runtime-internals reference material
// (mheap/malloc walks that inspect a block's leading word as a
// probable type pointer), adapted here into an opt-in, advisory-only
// diagnostic rather than anything the allocator's correctness depends
// on.
var leakRegistry sync.Map // uintptr -> reflect.Type

// RegisterLeakType associates a vtable/type-descriptor pointer value
// with a Go type, for the experimental leak-reporting walk at
// Shutdown.
func RegisterLeakType(vtable uintptr, t reflect.Type) {
	leakRegistry.Store(vtable, t)
}

// LeakEntry is one row of the leak report Shutdown produces.
type LeakEntry struct {
	Tier     string
	Size     int64
	TypeName string // "unknown" unless experimental detection hit
}

func probeType(payload unsafe.Pointer) string {
	if !settings.Bool("report-leaks.experimental") {
		return ""
	}
	word := *(*uintptr)(payload)
	if t, ok := leakRegistry.Load(word); ok {
		return t.(reflect.Type).String()
	}
	return "unknown"
}

// reportLeaks walks every tier's still-live allocations at shutdown
// and logs them via heaplog.Warnw, with a tier/size field attached to
// each line. The large tier gets an exact, per-block walk (it already
// threads a circular list of live blocks); the tiny/small and medium
// tiers report aggregate outstanding bytes only, since neither
// structure keeps an allocated-block list independent of its
// free-space index.
func reportLeaks() []LeakEntry {
	var entries []LeakEntry

	largeTier.Walk(func(payload unsafe.Pointer, size int64) {
		entry := LeakEntry{Tier: "large", Size: size, TypeName: probeType(payload)}
		if entry.TypeName == "" {
			entry.TypeName = "unknown"
		}
		entries = append(entries, entry)
		heaplog.Warnw(heaplog.Fields{"tier": "large", "bytes": size, "type": entry.TypeName}, "leak: block still allocated at shutdown")
	})

	if n := tinyTier.TierStats().CurrentBytes; n > 0 {
		heaplog.Warnw(heaplog.Fields{"tier": "tiny", "bytes": n}, "leak: tier has blocks still allocated at shutdown")
	}
	if n := mediumTier.TierStats().CurrentBytes; n > 0 {
		heaplog.Warnw(heaplog.Fields{"tier": "medium", "bytes": n}, "leak: tier has blocks still allocated at shutdown")
	}

	return entries
}
