// Package sync provides the synchronization primitives (spinlocks) used to
// protect kernel data structures that may be touched from interrupt context,
// where the scheduler-aware primitives in kernel/ipc cannot block.
package sync

import (
	"sync/atomic"

	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// until the lock becomes available.
type Spinlock struct {
	state uint32
}

// pauseFn is mocked by tests so they don't burn CPU executing the real
// PAUSE instruction while exercising contention.
var pauseFn = cpu.Pause

// Acquire blocks until the lock can be acquired by the currently active task.
// Re-acquiring a lock already held by the current task will deadlock.
func (l *Spinlock) Acquire() {
	for !l.TryToAcquire() {
		pauseFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock
// could be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock, allowing other tasks to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
