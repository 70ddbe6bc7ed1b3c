package pmm

import (
	"testing"
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
)

// newTestAllocator builds an allocator backed by a plain Go byte slice
// standing in for physical memory from physical address 0. The returned
// hhdmOffset is the slice's host address, so hhdmOffset+phys lands inside it.
func newTestAllocator(t *testing.T, totalBytes uint64) (*Allocator, uintptr, []Region) {
	t.Helper()

	backing := make([]byte, totalBytes)
	hhdm := uintptr(unsafe.Pointer(&backing[0]))

	regions := []Region{
		{Start: 0, Length: totalBytes},
	}
	return &Allocator{}, hhdm, regions
}

func TestBitmapAllocatorInit(t *testing.T) {
	alloc, hhdm, regions := newTestAllocator(t, 64*uint64(mem.PageSize))

	if err := alloc.Init(hhdm, regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, exp := alloc.TotalPages(), uint64(64); got != exp {
		t.Fatalf("expected %d total pages; got %d", exp, got)
	}

	// One page is consumed by the bitmap itself (64 bits needs only 8
	// bytes, well under one page), so free pages should be total-1.
	if got, exp := alloc.FreePages(), alloc.TotalPages()-1; got != exp {
		t.Fatalf("expected %d free pages; got %d", exp, got)
	}
}

func TestBitmapAllocatorAllocFree(t *testing.T) {
	alloc, hhdm, regions := newTestAllocator(t, 16*uint64(mem.PageSize))
	if err := alloc.Init(hhdm, regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	freeBefore := alloc.FreePages()

	frame, err := alloc.AllocFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := alloc.FreePages(); got != freeBefore-1 {
		t.Fatalf("expected free pages to drop by 1; got %d (was %d)", got, freeBefore)
	}

	// Allocating again must never return the same frame until it is
	// freed.
	frame2, err := alloc.AllocFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame == frame2 {
		t.Fatalf("expected distinct frames; got %d twice", frame)
	}

	alloc.FreeFrame(frame)
	if got := alloc.FreePages(); got != freeBefore-1 {
		t.Fatalf("expected free pages to be %d after free; got %d", freeBefore-1, got)
	}

	// Freeing an already-free frame is a no-op.
	alloc.FreeFrame(frame)
	if got := alloc.FreePages(); got != freeBefore-1 {
		t.Fatalf("double free must be a no-op; got %d free pages", got)
	}
}

func TestBitmapAllocatorOOM(t *testing.T) {
	alloc, hhdm, regions := newTestAllocator(t, 2*uint64(mem.PageSize))
	if err := alloc.Init(hhdm, regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for {
		if _, err := alloc.AllocFrame(); err != nil {
			if err != errOutOfMemory {
				t.Fatalf("expected errOutOfMemory; got %v", err)
			}
			break
		}
	}

	if got := alloc.FreePages(); got != 0 {
		t.Fatalf("expected 0 free pages at OOM; got %d", got)
	}
	if got := alloc.UsedPages(); got != alloc.TotalPages() {
		t.Fatalf("expected all pages used at OOM; got %d/%d", got, alloc.TotalPages())
	}
}

func TestBitmapBytesFor(t *testing.T) {
	specs := []struct {
		pages uint64
		exp   uint64
	}{
		{0, 0},
		{1, 8},
		{64, 8},
		{65, 16},
		{128, 16},
	}

	for i, spec := range specs {
		if got := bitmapBytesFor(spec.pages); got != spec.exp {
			t.Errorf("[spec %d] expected %d bytes for %d pages; got %d", i, spec.exp, spec.pages, got)
		}
	}
}
