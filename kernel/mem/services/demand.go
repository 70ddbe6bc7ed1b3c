package services

import (
	"container/list"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// PageState is the lifecycle state of one virtual page under demand paging.
type PageState int

const (
	// NotAllocated means the page has been reserved (e.g. by mmap) but no
	// physical frame backs it yet.
	NotAllocated PageState = iota
	// InMemory means a physical frame is mapped and resident.
	InMemory
	// SwappedOut means the page's contents live in the swap manager rather
	// than physical memory.
	SwappedOut
)

// pageList wraps container/list the way the teacher's block cache wraps it
// for its own LRU queue: a thin typed facade over list.List rather than a
// hand-rolled doubly linked list.
type pageList struct {
	l *list.List
}

func newPageList() *pageList {
	return &pageList{l: list.New()}
}

func (p *pageList) pushBack(va mem.VirtAddr) *list.Element {
	return p.l.PushBack(va)
}

func (p *pageList) moveToBack(e *list.Element) {
	p.l.MoveToBack(e)
}

func (p *pageList) front() (mem.VirtAddr, bool) {
	e := p.l.Front()
	if e == nil {
		return 0, false
	}
	return e.Value.(mem.VirtAddr), true
}

func (p *pageList) removeFront() (mem.VirtAddr, bool) {
	e := p.l.Front()
	if e == nil {
		return 0, false
	}
	p.l.Remove(e)
	return e.Value.(mem.VirtAddr), true
}

func (p *pageList) remove(e *list.Element) {
	p.l.Remove(e)
}

func (p *pageList) len() int {
	return p.l.Len()
}

// DemandPager tracks per-page residency state and maintains a bounded
// least-recently-used queue of resident pages, used to pick an eviction
// victim when the resident set grows past capacity.
type DemandPager struct {
	lock ksync.Spinlock

	state    map[mem.VirtAddr]PageState
	lru      *pageList
	lruIndex map[mem.VirtAddr]*list.Element
	capacity int
}

// Init prepares the pager. capacity is the maximum number of pages the LRU
// queue tracks as resident before GetLRUPage starts returning eviction
// candidates; 0 means unbounded.
func (d *DemandPager) Init(capacity int) {
	d.state = make(map[mem.VirtAddr]PageState)
	d.lru = newPageList()
	d.lruIndex = make(map[mem.VirtAddr]*list.Element)
	d.capacity = capacity
}

// ReservePages marks n consecutive pages starting at start as reserved but
// not yet backed by a physical frame.
func (d *DemandPager) ReservePages(start mem.VirtAddr, n int) {
	d.lock.Acquire()
	defer d.lock.Release()

	for i := 0; i < n; i++ {
		va := start + mem.VirtAddr(i)*mem.VirtAddr(mem.PageSize)
		if _, tracked := d.state[va]; !tracked {
			d.state[va] = NotAllocated
		}
	}
}

// ShouldAllocateOnFault reports whether a fault at va should be satisfied by
// allocating a fresh frame, i.e. the page is reserved but has never been
// backed.
func (d *DemandPager) ShouldAllocateOnFault(va mem.VirtAddr) bool {
	d.lock.Acquire()
	defer d.lock.Release()

	return d.state[va] == NotAllocated
}

// State returns the tracked state of va.
func (d *DemandPager) State(va mem.VirtAddr) PageState {
	d.lock.Acquire()
	defer d.lock.Release()

	return d.state[va]
}

// AllocatePage transitions va to InMemory and records it as the most
// recently used resident page.
func (d *DemandPager) AllocatePage(va mem.VirtAddr) {
	d.lock.Acquire()
	defer d.lock.Release()

	d.state[va] = InMemory
	d.touch(va)
}

// RecordAccess refreshes va's LRU position without changing its state. It is
// a no-op for pages that are not currently resident.
func (d *DemandPager) RecordAccess(va mem.VirtAddr) {
	d.lock.Acquire()
	defer d.lock.Release()

	if d.state[va] != InMemory {
		return
	}
	d.touch(va)
}

func (d *DemandPager) touch(va mem.VirtAddr) {
	if e, ok := d.lruIndex[va]; ok {
		d.lru.moveToBack(e)
		return
	}
	d.lruIndex[va] = d.lru.pushBack(va)
}

// GetLRUPage returns the least recently used resident page without removing
// it from the queue, along with true if the queue is at or over capacity.
func (d *DemandPager) GetLRUPage() (mem.VirtAddr, bool) {
	d.lock.Acquire()
	defer d.lock.Release()

	if d.capacity <= 0 || d.lru.len() < d.capacity {
		return 0, false
	}
	return d.lru.front()
}

// EvictLRU removes and returns the least recently used resident page,
// transitioning it to SwappedOut. Callers are responsible for actually
// moving its contents to swap (via SwapManager) before or after calling
// this, and for unmapping the page-table entry.
func (d *DemandPager) EvictLRU() (mem.VirtAddr, bool) {
	d.lock.Acquire()
	defer d.lock.Release()

	va, ok := d.lru.removeFront()
	if !ok {
		return 0, false
	}
	delete(d.lruIndex, va)
	d.state[va] = SwappedOut
	return va, true
}

// MarkSwappedIn transitions va back to InMemory and re-enters it into the
// LRU queue, for use after SwapManager.SwapIn restores its contents.
func (d *DemandPager) MarkSwappedIn(va mem.VirtAddr) {
	d.lock.Acquire()
	defer d.lock.Release()

	d.state[va] = InMemory
	d.touch(va)
}

// Forget drops all tracking for va (e.g. on munmap).
func (d *DemandPager) Forget(va mem.VirtAddr) {
	d.lock.Acquire()
	defer d.lock.Release()

	if e, ok := d.lruIndex[va]; ok {
		d.lru.remove(e)
		delete(d.lruIndex, va)
	}
	delete(d.state, va)
}

// ResidentCount returns the number of pages currently in the LRU queue.
func (d *DemandPager) ResidentCount() int {
	d.lock.Acquire()
	defer d.lock.Release()

	return d.lru.len()
}
