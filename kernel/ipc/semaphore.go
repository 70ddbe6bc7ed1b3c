package ipc

import (
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// Semaphore is a counting semaphore; its value never goes negative — a
// blocked waiter is tracked in the FIFO instead.
type Semaphore struct {
	lock    ksync.Spinlock
	value   int
	waiters waiterQueue
}

// Init sets the semaphore's initial value.
func (s *Semaphore) Init(initial int) {
	s.value = initial
}

// Wait attempts to decrement the semaphore for tid. If the value is
// already 0, tid is enqueued and Wait returns false.
func (s *Semaphore) Wait(tid task.ID) bool {
	s.lock.Acquire()
	defer s.lock.Release()

	if s.value > 0 {
		s.value--
		return true
	}
	s.waiters.pushBack(tid)
	return false
}

// Signal wakes the oldest waiter if any, otherwise increments the value.
// woken is the id to unblock, and ok reports whether anyone was woken.
func (s *Semaphore) Signal() (woken task.ID, ok bool) {
	s.lock.Acquire()
	defer s.lock.Release()

	if next, has := s.waiters.popFront(); has {
		return next, true
	}
	s.value++
	return 0, false
}

// Value returns the current count (0 while tasks are queued).
func (s *Semaphore) Value() int {
	s.lock.Acquire()
	defer s.lock.Release()

	return s.value
}
