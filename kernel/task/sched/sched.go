// Package sched implements the priority round-robin scheduler: a fixed-
// capacity task table and four FIFO ready queues, one per task.Priority.
// Grounded on the intrusive-list-plus-spinlock discipline used throughout
// this tree's memory subsystem (kernel/mem/heap's free list, kernel/sync's
// busy-wait lock) rather than any single teacher file, since the retrieval
// pack's kernels stop short of a scheduler.
package sched

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

var errTaskTableFull = &kernel.Error{Module: "sched", Message: "task table is full"}

// readyQueue is a singly linked FIFO of TCBs at one priority level.
type readyQueue struct {
	head, tail *task.TCB
}

func (q *readyQueue) pushBack(t *task.TCB) {
	t.Next = nil
	if q.tail == nil {
		q.head, q.tail = t, t
		return
	}
	q.tail.Next = t
	q.tail = t
}

func (q *readyQueue) popFront() *task.TCB {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.Next
	if q.head == nil {
		q.tail = nil
	}
	t.Next = nil
	return t
}

func (q *readyQueue) empty() bool {
	return q.head == nil
}

// Scheduler owns the task table and the priority-indexed ready queues.
type Scheduler struct {
	lock ksync.Spinlock

	maxTasks int
	tasks    map[task.ID]*task.TCB
	nextID   task.ID

	ready   [task.NumPriorities]readyQueue
	current *task.TCB
}

// Init prepares the scheduler for up to maxTasks live tasks.
func (s *Scheduler) Init(maxTasks int) {
	s.maxTasks = maxTasks
	s.tasks = make(map[task.ID]*task.TCB, maxTasks)
	s.nextID = 1
}

// AddTask assigns t a fresh id, marks it Ready, and enqueues it at the tail
// of its priority's ready queue.
func (s *Scheduler) AddTask(t *task.TCB) (task.ID, *kernel.Error) {
	s.lock.Acquire()
	defer s.lock.Release()

	if len(s.tasks) >= s.maxTasks {
		return 0, errTaskTableFull
	}

	t.ID = s.nextID
	s.nextID++
	t.State = task.Ready

	s.tasks[t.ID] = t
	s.ready[t.Priority].pushBack(t)
	return t.ID, nil
}

// Lookup returns the TCB for id, if it is still in the task table.
func (s *Scheduler) Lookup(id task.ID) (*task.TCB, bool) {
	s.lock.Acquire()
	defer s.lock.Release()

	t, ok := s.tasks[id]
	return t, ok
}

// Schedule runs one scheduling decision: the current task (if any) is
// requeued as Ready, then the highest non-empty priority queue is scanned
// for the next Ready task, discarding any stale (no-longer-Ready) entries
// along the way. It returns the previous and next task (either may be nil)
// and whether a context switch is actually required.
func (s *Scheduler) Schedule() (prev, next *task.TCB, shouldSwitch bool) {
	s.lock.Acquire()
	defer s.lock.Release()

	prev = s.current
	if prev != nil && prev.State == task.Running {
		prev.State = task.Ready
		s.ready[prev.Priority].pushBack(prev)
	}

	for p := task.NumPriorities - 1; p >= 0; p-- {
		q := &s.ready[p]
		for !q.empty() {
			candidate := q.popFront()
			if candidate.State != task.Ready {
				continue
			}
			candidate.State = task.Running
			s.current = candidate
			return prev, candidate, prev != candidate
		}
	}

	s.current = nil
	return prev, nil, prev != nil
}

// Current returns the task presently marked Running, or nil.
func (s *Scheduler) Current() *task.TCB {
	s.lock.Acquire()
	defer s.lock.Release()

	return s.current
}

// Block transitions t to Blocked. t must not be in a ready queue (callers
// blocking the current task call this instead of letting Schedule requeue
// it).
func (s *Scheduler) Block(t *task.TCB) {
	s.lock.Acquire()
	defer s.lock.Release()

	t.State = task.Blocked
	if s.current == t {
		s.current = nil
	}
}

// Unblock transitions t from Blocked back to Ready and enqueues it at its
// priority's tail.
func (s *Scheduler) Unblock(t *task.TCB) {
	s.lock.Acquire()
	defer s.lock.Release()

	t.State = task.Ready
	s.ready[t.Priority].pushBack(t)
}

// Terminate marks t Terminated with the given exit code and removes it
// from the current-task slot if it occupied it. The task remains in the
// task table until Reap removes it, per the spec's "resource reclamation
// is a non-goal at this level" for the process manager; Terminate does not
// free the table slot, and ids are never reused.
func (s *Scheduler) Terminate(t *task.TCB, exitCode int) {
	s.lock.Acquire()
	defer s.lock.Release()

	t.State = task.Terminated
	t.ExitCode = exitCode
	if s.current == t {
		s.current = nil
	}
}

// Reap removes a Terminated task from the task table, freeing its slot.
func (s *Scheduler) Reap(id task.ID) *kernel.Error {
	s.lock.Acquire()
	defer s.lock.Release()

	t, ok := s.tasks[id]
	if !ok {
		return &kernel.Error{Module: "sched", Message: "unknown task id"}
	}
	if t.State != task.Terminated {
		return &kernel.Error{Module: "sched", Message: "task is not terminated"}
	}
	delete(s.tasks, id)
	return nil
}

// TaskCount returns the number of live (non-reaped) tasks.
func (s *Scheduler) TaskCount() int {
	s.lock.Acquire()
	defer s.lock.Release()

	return len(s.tasks)
}
