// Package services implements the cooperating memory-management policies
// that sit above the raw page-table mapper and frame allocator: copy-on-write
// sharing, demand paging with LRU tracking, mmap region bookkeeping, swap,
// and guard-page access checks. Each sub-component owns its own lock rather
// than sharing one, mirroring the independent-subsystem locking the teacher
// uses between its frame allocator and its mapper.
package services

import (
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// CowManager tracks how many mappings share each physical frame marked
// copy-on-write. A frame with a single reference can be reclaimed outright
// on write fault; one with more than one must be copied.
type CowManager struct {
	lock ksync.Spinlock
	refs map[mem.PhysAddr]int
}

// Init prepares the manager for use.
func (c *CowManager) Init() {
	c.refs = make(map[mem.PhysAddr]int)
}

// MarkCoW records one more mapping sharing phys, returning the new count.
func (c *CowManager) MarkCoW(phys mem.PhysAddr) int {
	c.lock.Acquire()
	defer c.lock.Release()

	c.refs[phys]++
	return c.refs[phys]
}

// ReleaseCoW drops one mapping's share of phys. It reports true once the
// count reaches zero, meaning the caller now owns the frame outright and
// should stop treating it as copy-on-write.
func (c *CowManager) ReleaseCoW(phys mem.PhysAddr) (last bool) {
	c.lock.Acquire()
	defer c.lock.Release()

	n, ok := c.refs[phys]
	if !ok {
		return true
	}
	n--
	if n <= 0 {
		delete(c.refs, phys)
		return true
	}
	c.refs[phys] = n
	return false
}

// IsShared reports whether phys currently has more than one CoW mapping.
func (c *CowManager) IsShared(phys mem.PhysAddr) bool {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.refs[phys] > 1
}

// RefCount returns the current CoW reference count for phys (0 if untracked).
func (c *CowManager) RefCount(phys mem.PhysAddr) int {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.refs[phys]
}
