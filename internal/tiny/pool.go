package tiny

import (
	"unsafe"

	"github.com/prataprc/heapalloc/internal/blockhdr"
)

// pool is a small-block pool: a medium-tier chunk subdivided into
// equal blockSize slots. Each slot carries its own header
// (blockhdr.PackPool, pointing back at this pool) so free(p) can find
// its owning pool without a side table.
type pool struct {
	owner     *classRecord
	prev      *pool
	next      *pool
	base      unsafe.Pointer
	capacity  int64 // usable bytes, excluding the medium header that backs this chunk
	blockSize int64
	inUse     int64

	freeHead unsafe.Pointer // intra-pool singly linked free chain, chained through payloads
	cursor   unsafe.Pointer // next untouched slot base
	limit    unsafe.Pointer
	linked   bool // currently threaded into the class's partial list
}

type poolNode struct {
	next unsafe.Pointer
}

func slotPayload(slotBase unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(slotBase) + uintptr(blockhdr.Size))
}

func slotBaseOf(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(payload) - uintptr(blockhdr.Size))
}

func newPool(owner *classRecord, chunk unsafe.Pointer, chunkBytes int64) *pool {
	p := &pool{
		owner:     owner,
		base:      chunk,
		capacity:  chunkBytes,
		blockSize: owner.blockSize,
		cursor:    chunk,
		limit:     unsafe.Pointer(uintptr(chunk) + uintptr(chunkBytes)),
	}
	return p
}

// full reports whether the pool has no free slot left to hand out —
// neither a returned slot nor untouched cursor room.
func (p *pool) full() bool {
	return p.freeHead == nil && uintptr(p.cursor) >= uintptr(p.limit)
}

// empty reports whether every slot the pool ever handed out has been
// returned.
func (p *pool) empty() bool {
	return p.inUse == 0
}

// allocSlot hands out one slot. Caller holds the owning class's lock.
func (p *pool) allocSlot() unsafe.Pointer {
	if p.freeHead != nil {
		payload := p.freeHead
		node := (*poolNode)(payload)
		p.freeHead = node.next
		hdr := blockhdr.At(payload)
		*hdr = hdr.WithoutFlags(blockhdr.IsFree)
		p.inUse++
		return payload
	}
	if uintptr(p.cursor) < uintptr(p.limit) {
		slotBase := p.cursor
		p.cursor = unsafe.Pointer(uintptr(p.cursor) + uintptr(p.blockSize))
		payload := slotPayload(slotBase)
		*blockhdr.At(payload) = blockhdr.PackPool(unsafe.Pointer(p), 0)
		p.inUse++
		return payload
	}
	return nil
}

// freeSlot returns a slot to the pool's intra-pool free chain. Caller
// holds the owning class's lock.
func (p *pool) freeSlot(payload unsafe.Pointer) {
	hdr := blockhdr.At(payload)
	*hdr = hdr.WithFlags(blockhdr.IsFree)
	node := (*poolNode)(payload)
	node.next = p.freeHead
	p.freeHead = payload
	p.inUse--
}
