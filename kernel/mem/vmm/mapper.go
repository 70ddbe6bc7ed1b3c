package vmm

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// FrameAllocatorFn allocates a single physical frame for a new page table.
type FrameAllocatorFn func() (mem.PhysAddr, *kernel.Error)

var (
	// flushTLBEntryFn and loadCR3Fn are mocked by tests.
	flushTLBEntryFn = cpu.FlushTLBEntry
	loadCR3Fn       = cpu.LoadCR3
)

// Mapper owns one PML4 and maps/unmaps/translates virtual addresses against
// it, addressing every intermediate table through the HHDM.
type Mapper struct {
	lock ksync.Spinlock

	pml4Phys   mem.PhysAddr
	hhdmOffset uintptr
}

// Init binds the mapper to an existing PML4 frame and the HHDM offset
// supplied by the bootloader. The frame must already be zeroed.
func (m *Mapper) Init(hhdmOffset uintptr, pml4Phys mem.PhysAddr) {
	m.hhdmOffset = hhdmOffset
	m.pml4Phys = pml4Phys
}

// PML4Phys returns the physical address of the mapper's top-level table.
func (m *Mapper) PML4Phys() mem.PhysAddr {
	return m.pml4Phys
}

// tableVirtAddr returns the HHDM virtual address backing a table frame.
func (m *Mapper) tableVirtAddr(phys uintptr) uintptr {
	return m.hhdmOffset + phys
}

// Map establishes a mapping from virt to phys using flags, allocating any
// missing intermediate page tables via alloc. It fails with "already mapped"
// if the leaf entry is already present.
func (m *Mapper) Map(virt mem.VirtAddr, phys mem.PhysAddr, flags PageTableEntryFlag, alloc FrameAllocatorFn) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	var err *kernel.Error

	m.walk(virt, func(level uint8, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				err = errAlreadyMapped
				return false
			}
			*pte = 0
			pte.SetFrame(uintptr(phys))
			pte.SetFlags(flags | FlagPresent)
			flushTLBEntryFn(uintptr(virt))
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		if !pte.HasFlags(FlagPresent) {
			newFrame, allocErr := alloc()
			if allocErr != nil {
				err = allocErr
				return false
			}
			*pte = 0
			pte.SetFrame(uintptr(newFrame))
			pte.SetFlags(FlagPresent | FlagRW)
			kernel.Memset(m.tableVirtAddr(uintptr(newFrame)), 0, uintptr(mem.PageSize))
		}

		return true
	})

	return err
}

// Unmap clears the leaf mapping for virt and returns the physical frame it
// pointed to. It fails at the first missing intermediate entry.
func (m *Mapper) Unmap(virt mem.VirtAddr) (mem.PhysAddr, *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	var (
		err   *kernel.Error
		freed mem.PhysAddr
	)

	m.walk(virt, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if level == pageLevels-1 {
			freed = mem.PhysAddr(pte.Frame())
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(uintptr(virt))
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		return true
	})

	return freed, err
}

// Translate walks the table for virt and returns its backing physical
// address, or ErrInvalidMapping if any level is not present.
func (m *Mapper) Translate(virt mem.VirtAddr) (mem.PhysAddr, *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	var (
		err   *kernel.Error
		frame uintptr
	)

	m.walk(virt, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}
		frame = pte.Frame()
		return true
	})

	if err != nil {
		return 0, err
	}
	return mem.PhysAddr(frame + virt.Offset()), nil
}

// PTEFlags returns the flags and presence of the leaf entry for virt,
// without modifying anything. Used by the page-fault handler to decide
// whether a fault is CoW-recoverable.
func (m *Mapper) PTEFlags(virt mem.VirtAddr) (PageTableEntryFlag, bool) {
	m.lock.Acquire()
	defer m.lock.Release()

	var (
		present bool
		flags   PageTableEntryFlag
	)

	m.walk(virt, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}
		if level == pageLevels-1 {
			present = true
			flags = PageTableEntryFlag(uintptr(*pte) &^ ptePhysPageMask)
		}
		return true
	})

	return flags, present
}

// LoadCR3 writes the mapper's PML4 physical address into CR3, flushing the
// TLB.
func (m *Mapper) LoadCR3() {
	loadCR3Fn(uintptr(m.pml4Phys))
}
