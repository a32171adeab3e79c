package tiny

import (
	"unsafe"

	"github.com/prataprc/heapalloc/internal/blockhdr"
	"github.com/prataprc/heapalloc/internal/freestack"
	"github.com/prataprc/heapalloc/internal/spinlock"
)

// Backend is what a size-class record asks for a fresh small-block
// pool and returns an emptied one to — satisfied by *medium.Info.
type Backend interface {
	Alloc(n int64) unsafe.Pointer
	Free(payload unsafe.Pointer)
}

// classRecord is one size class's bookkeeping: a lock, a
// doubly-linked list of partially-free pools, a current
// sequential-feed pool, and a lock-less free stack for contended
// frees.
type classRecord struct {
	lock spinlock.Lock

	blockSize       int64
	optimalPoolSize int64

	headPartial *pool
	tailPartial *pool
	feedPool    *pool

	stack freestack.Stack

	medium Backend

	// live holds a strong reference to every pool with outstanding
	// blocks, including ones unlinked from headPartial because they
	// went full. A block's header only carries a bit-packed *pool
	// pointer inside OS-mapped memory the garbage collector never
	// scans, so without this the collector could reclaim a pool
	// struct while blocks referencing it are still live. Entries are
	// removed only once a pool is handed back to the medium tier.
	live map[*pool]struct{}

	// emptyPools retains up to maxRetainedEmptyPools drained pools
	// instead of returning each one to the medium tier the moment its
	// last block frees, so a class oscillating near empty doesn't pay
	// a medium round trip on every allocation.
	emptyPools []*pool

	allocs int64
	frees  int64
	sleeps int64
}

// maxRetainedEmptyPools bounds how many drained pools a class keeps
// in reserve before actually returning one to the medium tier.
const maxRetainedEmptyPools = 5

// maxOptimalPoolSize caps the adaptive growth of a class's chunk size.
const maxOptimalPoolSize = int64(256 * 1024)

func newClassRecord(blockSize, optimalPoolSize int64, backend Backend) *classRecord {
	return &classRecord{
		blockSize:       blockSize,
		optimalPoolSize: optimalPoolSize,
		medium:          backend,
		live:            make(map[*pool]struct{}),
	}
}

// Alloc implements the fast path + locked path for one size class.
func (c *classRecord) Alloc() unsafe.Pointer {
	if blk := c.popStack(); blk != nil {
		return blk
	}

	if !c.lock.TryLock() {
		c.sleeps += c.lock.Acquire(500)
	}
	defer func() {
		c.drainStackLocked()
		c.lock.Unlock()
	}()

	return c.allocLocked()
}

// popStack detaches the lock-less free stack, keeps the head for this
// allocation, and re-splices the remainder back in one CAS.
func (c *classRecord) popStack() unsafe.Pointer {
	head := c.stack.Drain()
	if head == nil {
		return nil
	}
	rest := freestack.Next(head)
	if rest != nil {
		tail := rest
		for n := freestack.Next(tail); n != nil; n = freestack.Next(tail) {
			tail = n
		}
		c.stack.PushChain(rest, tail)
	}
	hdr := blockhdr.At(head)
	*hdr = hdr.WithoutFlags(blockhdr.IsFree)
	c.allocs++
	return head
}

func (c *classRecord) allocLocked() unsafe.Pointer {
	for p := c.headPartial; p != nil; p = p.next {
		if payload := p.allocSlot(); payload != nil {
			c.allocs++
			if p.full() {
				c.unlinkPartial(p)
			}
			return payload
		}
	}

	if c.feedPool != nil {
		if payload := c.feedPool.allocSlot(); payload != nil {
			c.allocs++
			if c.feedPool.full() {
				c.feedPool = nil
			}
			return payload
		}
	}

	if n := len(c.emptyPools); n > 0 {
		p := c.emptyPools[n-1]
		c.emptyPools = c.emptyPools[:n-1]
		c.feedPool = p
		payload := p.allocSlot()
		c.allocs++
		return payload
	}

	chunk := c.medium.Alloc(c.optimalPoolSize)
	if chunk == nil {
		return nil
	}
	hdr := blockhdr.At(chunk)
	*hdr = hdr.WithFlags(blockhdr.SmallPoolInUse)

	p := newPool(c, chunk, c.optimalPoolSize)
	c.live[p] = struct{}{}
	c.feedPool = p
	c.growPoolSize()
	payload := p.allocSlot()
	c.allocs++
	return payload
}

// growPoolSize implements adaptive pool growth: every time a class
// exhausts its retained pools and has to map a genuinely fresh chunk
// from the medium tier, the next chunk size doubles up to
// maxOptimalPoolSize, so classes under sustained allocation pressure
// converge on fewer, larger medium-tier round trips instead of a
// single fixed chunk size regardless of demand.
func (c *classRecord) growPoolSize() {
	if c.optimalPoolSize >= maxOptimalPoolSize {
		return
	}
	if grown := c.optimalPoolSize * 2; grown <= maxOptimalPoolSize {
		c.optimalPoolSize = grown
	} else {
		c.optimalPoolSize = maxOptimalPoolSize
	}
}

// Free implements the free path for a slot belonging to this class.
func (c *classRecord) Free(payload unsafe.Pointer, p *pool) {
	if !c.lock.TryLock() {
		hdr := blockhdr.At(payload)
		*hdr = hdr.WithFlags(blockhdr.IsFree)
		c.stack.Push(payload)
		return
	}
	c.freeLocked(payload, p)
	c.drainStackLocked()
	c.lock.Unlock()
}

func (c *classRecord) freeLocked(payload unsafe.Pointer, p *pool) {
	wasFull := p.full()
	p.freeSlot(payload)
	c.frees++

	switch {
	case p.empty() && p != c.feedPool:
		c.unlinkPartial(p)
		if len(c.emptyPools) < maxRetainedEmptyPools {
			c.emptyPools = append(c.emptyPools, p)
		} else {
			c.medium.Free(p.base)
			delete(c.live, p)
		}
	case wasFull && p != c.feedPool:
		c.linkPartial(p)
	}
}

func (c *classRecord) drainStackLocked() {
	for blk := c.stack.Drain(); blk != nil; {
		next := freestack.Next(blk)
		hdr := blockhdr.At(blk)
		poolPtr := (*pool)(hdr.Pool())
		c.freeLocked(blk, poolPtr)
		blk = next
	}
}

func (c *classRecord) linkPartial(p *pool) {
	if p.linked {
		return
	}
	p.linked = true
	p.prev, p.next = nil, c.headPartial
	if c.headPartial != nil {
		c.headPartial.prev = p
	}
	c.headPartial = p
	if c.tailPartial == nil {
		c.tailPartial = p
	}
}

func (c *classRecord) unlinkPartial(p *pool) {
	if !p.linked {
		return
	}
	p.linked = false
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		c.headPartial = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		c.tailPartial = p.prev
	}
	p.prev, p.next = nil, nil
}

// utilization reports allocated-vs-capacity bytes for this class.
func (c *classRecord) utilization() (capacity, allocated int64) {
	for p := c.headPartial; p != nil; p = p.next {
		capacity += p.capacity
		allocated += p.inUse * p.blockSize
	}
	if c.feedPool != nil {
		capacity += c.feedPool.capacity
		allocated += c.feedPool.inUse * c.feedPool.blockSize
	}
	for _, p := range c.emptyPools {
		capacity += p.capacity
	}
	return
}
