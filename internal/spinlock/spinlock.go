// Package spinlock implements the test-and-set byte lock the allocator
// uses for every size-class record, every medium-info namespace, the
// medium prefetch slot, and the single large-block list: atomic
// byte-locks (CAS acquire + plain store release) rather than OS
// mutexes, with a bounded spin before yielding to the scheduler.
package spinlock

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Lock is a single CAS byte lock. Acquire + Unlock on the same Lock
// establish happens-before, same as sync.Mutex, but the uncontended path
// is a single CAS with no syscall.
type Lock struct {
	state uint32
}

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Unlock releases the lock. The caller must hold it.
func (l *Lock) Unlock() {
	atomic.StoreUint32(&l.state, 0)
}

// Locked reports whether the lock is currently held. Advisory only; used
// by free-path fast checks that prefer the lock-less stack over blocking.
func (l *Lock) Locked() bool {
	return atomic.LoadUint32(&l.state) != 0
}

// Acquire blocks until the lock is held, spinning up to spinBudget times
// before yielding the thread to the OS scheduler and retrying. It returns
// the number of times it had to yield, for the caller's contention
// counters.
func (l *Lock) Acquire(spinBudget int) (sleeps int64) {
	for {
		if l.TryLock() {
			return sleeps
		}
		for i := 0; i < spinBudget; i++ {
			if l.TryLock() {
				return sleeps
			}
			runtime.Gosched()
		}
		sleeps++
		time.Sleep(10 * time.Nanosecond)
	}
}
