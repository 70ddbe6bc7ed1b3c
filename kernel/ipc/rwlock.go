package ipc

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

var errNotWriter = &kernel.Error{Module: "ipc", Message: "write-unlock called by a task that is not the writer"}
var errNotReader = &kernel.Error{Module: "ipc", Message: "read-unlock called by a task that did not hold a read lock"}

// RWLock allows multiple concurrent readers or a single writer. On
// release, queued writers are always preferred over queued readers, so a
// steady stream of readers cannot starve a writer.
type RWLock struct {
	lock ksync.Spinlock

	readers   map[task.ID]struct{}
	writer    task.ID
	hasWriter bool
	readWait  waiterQueue
	writeWait waiterQueue
}

// Init prepares the lock for use.
func (rw *RWLock) Init() {
	rw.readers = make(map[task.ID]struct{})
}

// TryReadLock grants tid a read lock if there is no writer and no writer is
// already queued (write preference blocks new readers from jumping the
// queue); otherwise tid is enqueued as a waiting reader.
func (rw *RWLock) TryReadLock(tid task.ID) bool {
	rw.lock.Acquire()
	defer rw.lock.Release()

	if !rw.hasWriter && rw.writeWait.len() == 0 {
		rw.readers[tid] = struct{}{}
		return true
	}
	rw.readWait.pushBack(tid)
	return false
}

// TryWriteLock grants tid the write lock if there are no readers and no
// writer; otherwise tid is enqueued as a waiting writer.
func (rw *RWLock) TryWriteLock(tid task.ID) bool {
	rw.lock.Acquire()
	defer rw.lock.Release()

	if !rw.hasWriter && len(rw.readers) == 0 {
		rw.hasWriter = true
		rw.writer = tid
		return true
	}
	rw.writeWait.pushBack(tid)
	return false
}

// UnlockRead releases tid's read lock. If it was the last reader and a
// writer is queued, that writer is granted the lock and its id is
// returned; otherwise no one is woken.
func (rw *RWLock) UnlockRead(tid task.ID) (woken task.ID, ok bool, err *kernel.Error) {
	rw.lock.Acquire()
	defer rw.lock.Release()

	if _, held := rw.readers[tid]; !held {
		return 0, false, errNotReader
	}
	delete(rw.readers, tid)

	if len(rw.readers) > 0 {
		return 0, false, nil
	}
	return rw.grantNextWriterLocked()
}

// UnlockWrite releases tid's write lock. A queued writer is preferred; if
// none is queued, every waiting reader is granted the lock at once.
func (rw *RWLock) UnlockWrite(tid task.ID) (woken []task.ID, err *kernel.Error) {
	rw.lock.Acquire()
	defer rw.lock.Release()

	if !rw.hasWriter || rw.writer != tid {
		return nil, errNotWriter
	}
	rw.hasWriter = false
	rw.writer = 0

	if next, has, _ := rw.grantNextWriterLocked(); has {
		return []task.ID{next}, nil
	}

	readers := rw.readWait.drainAll()
	for _, r := range readers {
		rw.readers[r] = struct{}{}
	}
	return readers, nil
}

// grantNextWriterLocked hands the lock to the next queued writer, if any.
// Callers must already hold rw.lock.
func (rw *RWLock) grantNextWriterLocked() (task.ID, bool, *kernel.Error) {
	next, has := rw.writeWait.popFront()
	if !has {
		return 0, false, nil
	}
	rw.hasWriter = true
	rw.writer = next
	return next, true, nil
}
