package services

import (
	"testing"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
)

func newTestMmapManager() *MmapManager {
	var m MmapManager
	m.Init(mem.VirtAddr(0x1000000), mem.VirtAddr(0x2000000))
	return &m
}

func TestMmapManagerPlacementAndLookup(t *testing.T) {
	m := newTestMmapManager()

	addr, err := m.Mmap(0, 4096, ProtRead|ProtWrite, FlagPrivate|FlagAnonymous)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr == 0 {
		t.Fatal("expected a non-zero placement address")
	}

	region, ok := m.FindMapping(addr)
	if !ok {
		t.Fatal("expected to find the mapping just created")
	}
	if region.Size != 4096 {
		t.Fatalf("expected size 4096; got %d", region.Size)
	}

	if _, ok := m.FindMapping(addr + mem.VirtAddr(region.Size) + 1); ok {
		t.Fatal("expected no mapping past the end of the region")
	}
}

func TestMmapManagerFixedOverlapRejected(t *testing.T) {
	m := newTestMmapManager()

	fixed := mem.VirtAddr(0x1010000)
	if _, err := m.Mmap(fixed, 8192, ProtRead, FlagFixed|FlagPrivate); err != nil {
		t.Fatalf("unexpected error on first fixed mapping: %v", err)
	}

	if _, err := m.Mmap(fixed+4096, 4096, ProtRead, FlagFixed|FlagPrivate); err != errOverlappingMapping {
		t.Fatalf("expected errOverlappingMapping; got %v", err)
	}
}

func TestMmapManagerMunmap(t *testing.T) {
	m := newTestMmapManager()

	addr, err := m.Mmap(0, 4096, ProtRead, FlagPrivate|FlagAnonymous)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Munmap(addr, 4096); err != nil {
		t.Fatalf("unexpected error unmapping: %v", err)
	}

	if _, ok := m.FindMapping(addr); ok {
		t.Fatal("expected mapping to be gone after munmap")
	}

	if err := m.Munmap(addr, 4096); err != errNoMapping {
		t.Fatalf("expected errNoMapping on double munmap; got %v", err)
	}
}

func TestMmapManagerMunmapRemovesEveryOverlappingRegion(t *testing.T) {
	m := newTestMmapManager()

	base := mem.VirtAddr(0x1010000)
	if _, err := m.Mmap(base, 4096, ProtRead, FlagFixed|FlagPrivate); err != nil {
		t.Fatalf("unexpected error on first fixed mapping: %v", err)
	}
	if _, err := m.Mmap(base+4096, 4096, ProtRead, FlagFixed|FlagPrivate); err != nil {
		t.Fatalf("unexpected error on second fixed mapping: %v", err)
	}

	// A single munmap spanning both pages drops both regions, even
	// though neither mapping's bounds exactly match the requested range.
	if err := m.Munmap(base+2048, 4096); err != nil {
		t.Fatalf("unexpected error unmapping across two regions: %v", err)
	}

	if _, ok := m.FindMapping(base); ok {
		t.Fatal("expected first region to be gone")
	}
	if _, ok := m.FindMapping(base + 4096); ok {
		t.Fatal("expected second region to be gone")
	}
}

func TestMmapManagerOutOfAddressSpace(t *testing.T) {
	m := newTestMmapManager()
	m.Init(mem.VirtAddr(0x1000000), mem.VirtAddr(0x1000000)+mem.VirtAddr(mem.PageSize))

	if _, err := m.Mmap(0, mem.PageSize, ProtRead, FlagPrivate|FlagAnonymous); err != nil {
		t.Fatalf("unexpected error filling the whole range: %v", err)
	}

	if _, err := m.Mmap(0, mem.PageSize, ProtRead, FlagPrivate|FlagAnonymous); err != errOutOfAddressSpace {
		t.Fatalf("expected errOutOfAddressSpace; got %v", err)
	}
}
