// Package heap implements the kernel's general-purpose allocator: a
// first-fit linked list of free blocks over a contiguous byte range handed
// to it by the boot orchestrator. It plays the role the teacher fills by
// hijacking the Go runtime's own allocator (see goruntime/bootstrap.go);
// this kernel instead owns a dedicated allocator in the same mocked-
// function, kernel.Error-returning idiom used throughout the rest of the
// memory subsystem.
package heap

import (
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// freeBlock is the inline header written at the start of every block, free
// or allocated. next is only meaningful while the block sits in the free
// list.
type freeBlock struct {
	size        uintptr
	next        *freeBlock
	isAllocated bool
}

var headerSize = unsafe.Sizeof(freeBlock{})

// minPayload is the smallest payload a split-off block may carry; splits
// that would leave a smaller remainder are skipped and the whole block is
// handed over instead.
const minPayload = 16

// minBlockSize is the smallest span (header + payload) a free block may
// have.
var minBlockSize = headerSize + minPayload

// Heap is a first-fit linked-list allocator over a caller-supplied byte
// range. The zero value is not usable; call Init first.
type Heap struct {
	lock ksync.Spinlock

	start, end uintptr
	freeHead   *freeBlock

	allocCount uint64
	freeCount  uint64
}

var errOutOfMemory = &kernel.Error{Module: "heap", Message: "out of heap memory"}
var errBadPointer = &kernel.Error{Module: "heap", Message: "pointer does not belong to this heap"}

// Init carves [start, start+size) into a single free block spanning the
// whole range. The caller is responsible for making that range present and
// writable (typically via the page-table mapper, backed by the physical
// frame allocator).
func (h *Heap) Init(start uintptr, size uintptr) {
	h.start = start
	h.end = start + size
	h.freeHead = h.formatBlock(start, size)
}

func (h *Heap) formatBlock(addr, size uintptr) *freeBlock {
	b := (*freeBlock)(unsafe.Pointer(addr))
	b.size = size
	b.next = nil
	b.isAllocated = false
	return b
}

// align rounds n up to the nearest multiple of a, which must be a power of
// two.
func align(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

// Extend grows the heap with an additional block spanning [start, start+size),
// coalescing it into the free list the same way a freed block would be. The
// caller is responsible for making the range present and writable, exactly
// as for Init; Extend is what a caller reaches for once it observes the
// heap is close to exhausted, instead of re-running Init and discarding
// every block already carved out of the original range.
func (h *Heap) Extend(start uintptr, size uintptr) {
	h.lock.Acquire()
	defer h.lock.Release()

	if start+size == h.start {
		h.start = start
	} else if start < h.start {
		h.start = start
	}
	if start+size > h.end {
		h.end = start + size
	}
	h.insertFree(h.formatBlock(start, size))
}

// Alloc reserves size bytes and returns a pointer to the payload, aligned to
// align_ (which must be a power of two; 8 is used if 0). It returns
// errOutOfMemory if no free block is large enough.
//
// A zero-sized request still consumes a minimal block and returns a valid,
// never-dereferenced pointer, so callers may always pass the result to Free.
func (h *Heap) Alloc(size uintptr, align_ uintptr) (unsafe.Pointer, *kernel.Error) {
	if align_ == 0 {
		align_ = 8
	}
	if size < minPayload {
		size = minPayload
	}

	h.lock.Acquire()
	defer h.lock.Release()

	var prev *freeBlock
	for block := h.freeHead; block != nil; prev, block = block, block.next {
		blockAddr := uintptr(unsafe.Pointer(block))
		payloadAddr := align(blockAddr+headerSize, align_)
		prefixPad := payloadAddr - (blockAddr + headerSize)
		totalNeeded := prefixPad + headerSize + size

		if block.size < totalNeeded {
			continue
		}

		h.unlink(prev, block)

		allocAddr := blockAddr + prefixPad
		remainderAfterPrefix := block.size - prefixPad

		// The alignment padding ahead of the payload is large enough to
		// host its own reusable free block; split it off instead of
		// wasting it.
		if prefixPad >= minBlockSize {
			h.insertFree(h.formatBlock(blockAddr, prefixPad))
		} else {
			allocAddr = blockAddr
			remainderAfterPrefix = block.size
		}

		allocBlock := h.formatBlock(allocAddr, remainderAfterPrefix)
		used := headerSize + size
		if remainder := allocBlock.size - used; remainder >= minBlockSize {
			h.insertFree(h.formatBlock(allocAddr+used, remainder))
			allocBlock.size = used
		}
		allocBlock.isAllocated = true

		h.allocCount++
		return unsafe.Pointer(allocAddr + headerSize), nil
	}

	return nil, errOutOfMemory
}

// unlink removes block from the free list, given its predecessor (nil if
// block is the head).
func (h *Heap) unlink(prev, block *freeBlock) {
	if prev == nil {
		h.freeHead = block.next
	} else {
		prev.next = block.next
	}
	block.next = nil
}

// insertFree inserts block into the address-sorted free list, coalescing it
// with an immediately adjacent predecessor and/or successor.
func (h *Heap) insertFree(block *freeBlock) {
	blockAddr := uintptr(unsafe.Pointer(block))

	var prev *freeBlock
	cur := h.freeHead
	for cur != nil && uintptr(unsafe.Pointer(cur)) < blockAddr {
		prev, cur = cur, cur.next
	}

	block.next = cur
	if prev == nil {
		h.freeHead = block
	} else {
		prev.next = block
	}

	if cur != nil && blockAddr+block.size == uintptr(unsafe.Pointer(cur)) {
		block.size += cur.size
		block.next = cur.next
	}

	if prev != nil && uintptr(unsafe.Pointer(prev))+prev.size == blockAddr {
		prev.size += block.size
		prev.next = block.next
	}
}

// Free returns a previously allocated pointer to the free list, coalescing
// it with any adjacent free blocks. Freeing a pointer not obtained from this
// heap, or freeing twice, is undefined (callers never do either).
func (h *Heap) Free(ptr unsafe.Pointer) *kernel.Error {
	addr := uintptr(ptr)
	if addr < h.start+headerSize || addr >= h.end {
		return errBadPointer
	}

	h.lock.Acquire()
	defer h.lock.Release()

	block := (*freeBlock)(unsafe.Pointer(addr - headerSize))
	block.isAllocated = false
	h.insertFree(block)
	h.freeCount++

	return nil
}

// AllocCount returns the number of successful Alloc calls.
func (h *Heap) AllocCount() uint64 {
	h.lock.Acquire()
	defer h.lock.Release()
	return h.allocCount
}

// FreeCount returns the number of successful Free calls.
func (h *Heap) FreeCount() uint64 {
	h.lock.Acquire()
	defer h.lock.Release()
	return h.freeCount
}
