package services

import (
	"container/heap"

	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

var errNoSwapSlots = &kernel.Error{Module: "swap", Message: "no free swap slots"}
var errNotSwapped = &kernel.Error{Module: "swap", Message: "address has no swapped-out page"}

// slotHeap is a container/heap min-heap of free slot indices, so SwapOut
// always reuses the lowest-numbered free slot first — the same
// lowest-free-resource discipline the PFA applies via bits.TrailingZeros64
// over its bitmap, applied here to a slot index instead of a frame bit.
type slotHeap []int

func (h slotHeap) Len() int            { return len(h) }
func (h slotHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h slotHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *slotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// SwapManager owns a fixed number of page-sized slots and the mapping from
// virtual address to the slot currently holding its contents. It never
// touches a page table or a physical frame itself; the caller supplies the
// actual byte copy in and out of a slot via the copyIn/copyOut callbacks,
// the same way the rest of this kernel hands hardware-adjacent work to an
// injected function rather than doing it inline.
type SwapManager struct {
	lock ksync.Spinlock

	slots     [][]byte
	freeSlots slotHeap
	slotOf    map[mem.VirtAddr]int
}

// Init allocates numSlots page-sized backing slots.
func (s *SwapManager) Init(numSlots int) {
	s.slots = make([][]byte, numSlots)
	s.freeSlots = make(slotHeap, numSlots)
	for i := range s.slots {
		s.slots[i] = make([]byte, mem.PageSize)
		s.freeSlots[i] = i
	}
	heap.Init(&s.freeSlots)
	s.slotOf = make(map[mem.VirtAddr]int)
}

// SwapOut reserves a free slot for va and calls copyIn with the slot's
// backing buffer so the caller can fill it from the page's physical frame.
func (s *SwapManager) SwapOut(va mem.VirtAddr, copyIn func(dst []byte)) (slot int, err *kernel.Error) {
	s.lock.Acquire()
	defer s.lock.Release()

	if s.freeSlots.Len() == 0 {
		return 0, errNoSwapSlots
	}

	slot = heap.Pop(&s.freeSlots).(int)
	s.slotOf[va] = slot

	copyIn(s.slots[slot])
	return slot, nil
}

// SwapIn calls copyOut with the slot backing va's swapped-out contents, then
// releases the slot back to the free list.
func (s *SwapManager) SwapIn(va mem.VirtAddr, copyOut func(src []byte)) *kernel.Error {
	s.lock.Acquire()
	defer s.lock.Release()

	slot, ok := s.slotOf[va]
	if !ok {
		return errNotSwapped
	}

	copyOut(s.slots[slot])
	delete(s.slotOf, va)
	heap.Push(&s.freeSlots, slot)
	return nil
}

// IsSwapped reports whether va currently has contents saved in swap.
func (s *SwapManager) IsSwapped(va mem.VirtAddr) bool {
	s.lock.Acquire()
	defer s.lock.Release()

	_, ok := s.slotOf[va]
	return ok
}

// FreeSlotCount returns the number of unused swap slots.
func (s *SwapManager) FreeSlotCount() int {
	s.lock.Acquire()
	defer s.lock.Release()

	return len(s.freeSlots)
}
