package ipc

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

var errNotOwner = &kernel.Error{Module: "ipc", Message: "unlock called by a task that does not own the mutex"}

// Mutex is an owned lock: TryLock records the owner, Unlock hands
// ownership directly to the next waiter (no race window where the lock
// appears free) or releases it if no one is waiting.
type Mutex struct {
	lock    ksync.Spinlock
	locked  bool
	owner   task.ID
	waiters waiterQueue
}

// TryLock attempts to acquire the mutex for tid. If it is already held, tid
// is enqueued as a waiter and TryLock returns false; the caller is expected
// to block tid via the scheduler.
func (m *Mutex) TryLock(tid task.ID) bool {
	m.lock.Acquire()
	defer m.lock.Release()

	if !m.locked {
		m.locked = true
		m.owner = tid
		return true
	}
	m.waiters.pushBack(tid)
	return false
}

// Unlock releases the mutex held by tid. If another task is waiting,
// ownership transfers directly to it and woken reports its id so the
// caller can unblock it; otherwise the mutex becomes free and woken is 0.
func (m *Mutex) Unlock(tid task.ID) (woken task.ID, ok bool, err *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	if !m.locked || m.owner != tid {
		return 0, false, errNotOwner
	}

	if next, has := m.waiters.popFront(); has {
		m.owner = next
		return next, true, nil
	}

	m.locked = false
	m.owner = 0
	return 0, false, nil
}

// IsLocked reports whether the mutex is currently held.
func (m *Mutex) IsLocked() bool {
	m.lock.Acquire()
	defer m.lock.Release()

	return m.locked
}
