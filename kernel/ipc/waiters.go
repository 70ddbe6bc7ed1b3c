// Package ipc implements the kernel's inter-process synchronization and
// communication primitives: mutex, semaphore, condition variable, rw-lock,
// barrier, pipe, shared memory and message queue. Every primitive follows
// the same shape: attempt the operation; if it cannot complete immediately,
// record the caller's task id in a FIFO waiter list; on release, pop (or
// drain) waiters and hand them back to the caller to unblock via the
// scheduler. Primitives never call into kernel/task/sched themselves, so
// they stay usable from contexts that have not wired a scheduler at all.
package ipc

import (
	"container/list"

	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// waiterQueue is a FIFO of blocked task ids, shared by every primitive below
// instead of each hand-rolling its own linked list.
type waiterQueue struct {
	l list.List
}

func (q *waiterQueue) pushBack(id task.ID) {
	q.l.PushBack(id)
}

// popFront removes and returns the oldest waiter, skipping none: callers
// are responsible for discarding ids that no longer need waking (e.g. a
// task that was terminated while queued).
func (q *waiterQueue) popFront() (task.ID, bool) {
	e := q.l.Front()
	if e == nil {
		return 0, false
	}
	q.l.Remove(e)
	return e.Value.(task.ID), true
}

// drainAll removes and returns every waiter in FIFO order.
func (q *waiterQueue) drainAll() []task.ID {
	if q.l.Len() == 0 {
		return nil
	}
	ids := make([]task.ID, 0, q.l.Len())
	for e := q.l.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(task.ID))
	}
	q.l.Init()
	return ids
}

func (q *waiterQueue) len() int {
	return q.l.Len()
}
