package ipc

import (
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// Barrier releases exactly n waiters together once the n-th one arrives,
// then resets for the next round. Generation counts completed rounds.
type Barrier struct {
	lock       ksync.Spinlock
	n          int
	waiting    []task.ID
	generation uint64
}

// Init prepares a barrier for n participants per round.
func (b *Barrier) Init(n int) {
	b.n = n
	b.waiting = b.waiting[:0]
}

// Wait enqueues tid. If this is the n-th arrival of the current round, it
// returns every waiter to release (including tid) along with the new
// generation and true; otherwise it returns nil, the current generation
// and false, meaning tid must block.
func (b *Barrier) Wait(tid task.ID) (released []task.ID, generation uint64, complete bool) {
	b.lock.Acquire()
	defer b.lock.Release()

	b.waiting = append(b.waiting, tid)
	if len(b.waiting) < b.n {
		return nil, b.generation, false
	}

	released = b.waiting
	b.waiting = nil
	b.generation++
	return released, b.generation, true
}

// Generation returns the number of completed rounds.
func (b *Barrier) Generation() uint64 {
	b.lock.Acquire()
	defer b.lock.Release()

	return b.generation
}

// WaitingCount reports how many tasks are queued for the current round.
func (b *Barrier) WaitingCount() int {
	b.lock.Acquire()
	defer b.lock.Release()

	return len(b.waiting)
}
