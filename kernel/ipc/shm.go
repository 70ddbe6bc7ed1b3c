package ipc

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

var errNotAttached = &kernel.Error{Module: "ipc", Message: "detach called by a pid that never attached"}

// SharedMemory is one shmget-style segment: a physical region plus the set
// of pids currently attached to it. The segment's ref count is simply the
// size of that set.
type SharedMemory struct {
	lock ksync.Spinlock

	Base mem.PhysAddr
	Size mem.Size

	attached map[task.ID]struct{}
}

// Init prepares an empty segment of the given base and size.
func (s *SharedMemory) Init(base mem.PhysAddr, size mem.Size) {
	s.Base = base
	s.Size = size
	s.attached = make(map[task.ID]struct{})
}

// Attach maps pid onto the segment, returning the resulting ref count.
func (s *SharedMemory) Attach(pid task.ID) int {
	s.lock.Acquire()
	defer s.lock.Release()

	s.attached[pid] = struct{}{}
	return len(s.attached)
}

// Detach unmaps pid from the segment, returning the resulting ref count.
func (s *SharedMemory) Detach(pid task.ID) (refCount int, err *kernel.Error) {
	s.lock.Acquire()
	defer s.lock.Release()

	if _, ok := s.attached[pid]; !ok {
		return len(s.attached), errNotAttached
	}
	delete(s.attached, pid)
	return len(s.attached), nil
}

// RefCount returns the number of pids currently attached.
func (s *SharedMemory) RefCount() int {
	s.lock.Acquire()
	defer s.lock.Release()

	return len(s.attached)
}

// IsAttached reports whether pid currently holds the segment attached.
func (s *SharedMemory) IsAttached(pid task.ID) bool {
	s.lock.Acquire()
	defer s.lock.Release()

	_, ok := s.attached[pid]
	return ok
}
