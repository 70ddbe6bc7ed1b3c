package ipc

import (
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// CondVar is a condition variable. It only tracks waiters: the kernel does
// not atomically release an external mutex and enqueue, so callers must
// hold their own mutex around the condition check and release it only
// after Wait has enqueued the task.
type CondVar struct {
	lock    ksync.Spinlock
	waiters waiterQueue
}

// Wait enqueues tid to be woken by a future Signal or Broadcast.
func (c *CondVar) Wait(tid task.ID) {
	c.lock.Acquire()
	defer c.lock.Release()

	c.waiters.pushBack(tid)
}

// Signal wakes the oldest waiter, if any.
func (c *CondVar) Signal() (woken task.ID, ok bool) {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.waiters.popFront()
}

// Broadcast wakes every waiter, in FIFO order.
func (c *CondVar) Broadcast() []task.ID {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.waiters.drainAll()
}

// WaiterCount reports how many tasks are currently queued.
func (c *CondVar) WaiterCount() int {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.waiters.len()
}
