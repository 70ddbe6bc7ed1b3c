package diag

import "sync/atomic"

// MemStats is a long-lived set of atomic memory usage counters, the
// generalized (always-on, not one-shot) counterpart to memory_stats.rs's
// MemoryStats. Grounded on kernel/sync.Spinlock's "lock-free counters for
// IRQ-touched state" rationale (§9): every field here is updated from both
// the page-fault path and ordinary syscall context, so it uses sync/atomic
// rather than a spinlock.
type MemStats struct {
	totalPhysical uint64
	usedPhysical  uint64
	totalHeap     uint64
	usedHeap      uint64

	heapAllocs   uint64
	heapFrees    uint64
	pageAllocs   uint64
	pageFrees    uint64
}

// SetTotalPhysical records the total physical memory in bytes, published at
// the end of boot Phase 3.
func (m *MemStats) SetTotalPhysical(bytes uint64) { atomic.StoreUint64(&m.totalPhysical, bytes) }

// TotalPhysical returns the last value set by SetTotalPhysical.
func (m *MemStats) TotalPhysical() uint64 { return atomic.LoadUint64(&m.totalPhysical) }

// SetUsedPhysical records the currently used physical memory in bytes.
func (m *MemStats) SetUsedPhysical(bytes uint64) { atomic.StoreUint64(&m.usedPhysical, bytes) }

// UsedPhysical returns the last value set by SetUsedPhysical.
func (m *MemStats) UsedPhysical() uint64 { return atomic.LoadUint64(&m.usedPhysical) }

// FreePhysical derives the unused physical memory from the last published
// total/used pair.
func (m *MemStats) FreePhysical() uint64 {
	total, used := m.TotalPhysical(), m.UsedPhysical()
	if used > total {
		return 0
	}
	return total - used
}

// SetTotalHeap records the heap's total byte capacity.
func (m *MemStats) SetTotalHeap(bytes uint64) { atomic.StoreUint64(&m.totalHeap, bytes) }

// TotalHeap returns the last value set by SetTotalHeap.
func (m *MemStats) TotalHeap() uint64 { return atomic.LoadUint64(&m.totalHeap) }

// RecordHeapAlloc increments the live-heap-bytes counter and the lifetime
// allocation count by bytes and one, respectively.
func (m *MemStats) RecordHeapAlloc(bytes uint64) {
	atomic.AddUint64(&m.usedHeap, bytes)
	atomic.AddUint64(&m.heapAllocs, 1)
}

// RecordHeapFree is RecordHeapAlloc's inverse.
func (m *MemStats) RecordHeapFree(bytes uint64) {
	atomic.AddUint64(&m.usedHeap, ^(bytes - 1)) // atomic subtract
	atomic.AddUint64(&m.heapFrees, 1)
}

// UsedHeap returns the current live-heap-bytes counter.
func (m *MemStats) UsedHeap() uint64 { return atomic.LoadUint64(&m.usedHeap) }

// FreeHeap derives unused heap bytes from the last published total.
func (m *MemStats) FreeHeap() uint64 {
	total, used := m.TotalHeap(), m.UsedHeap()
	if used > total {
		return 0
	}
	return total - used
}

// HeapAllocs and HeapFrees return lifetime allocation/free counts.
func (m *MemStats) HeapAllocs() uint64 { return atomic.LoadUint64(&m.heapAllocs) }
func (m *MemStats) HeapFrees() uint64  { return atomic.LoadUint64(&m.heapFrees) }

// ActiveHeapAllocs returns the number of heap allocations not yet freed.
func (m *MemStats) ActiveHeapAllocs() uint64 {
	a, f := m.HeapAllocs(), m.HeapFrees()
	if f > a {
		return 0
	}
	return a - f
}

// RecordPageAlloc/RecordPageFree track physical-frame allocator traffic
// (PFA.AllocFrame/FreeFrame callers are expected to call these).
func (m *MemStats) RecordPageAlloc() { atomic.AddUint64(&m.pageAllocs, 1) }
func (m *MemStats) RecordPageFree()  { atomic.AddUint64(&m.pageFrees, 1) }

// PageAllocs and PageFrees return lifetime frame allocation/free counts.
func (m *MemStats) PageAllocs() uint64 { return atomic.LoadUint64(&m.pageAllocs) }
func (m *MemStats) PageFrees() uint64  { return atomic.LoadUint64(&m.pageFrees) }

// ActivePageAllocs returns the number of frames allocated but not yet
// freed.
func (m *MemStats) ActivePageAllocs() uint64 {
	a, f := m.PageAllocs(), m.PageFrees()
	if f > a {
		return 0
	}
	return a - f
}
