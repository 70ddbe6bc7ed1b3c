package vmm

import (
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
)

const pageLevels = 4

var (
	pageLevelBits   = [pageLevels]uint8{9, 9, 9, 9}
	pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}
)

// ptePtrFn resolves a page table entry's virtual address to a pointer. It is
// a package-level variable so it can be replaced; the package's tests do not
// replace it.
var ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
	return unsafe.Pointer(entryAddr)
}

// pageTableWalker is invoked once per paging level visited by walk. If it
// returns false the walk stops early.
type pageTableWalker func(level uint8, pte *pageTableEntry) bool

// levelIndex extracts the page-table index for virt at the given level.
func levelIndex(virt mem.VirtAddr, level uint8) uintptr {
	return (uintptr(virt) >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
}

// walk descends the four paging levels rooted at tableAddr (the HHDM virtual
// address of the PML4), invoking walkFn with the entry at each level. Unlike
// a recursively-mapped walker, the next level's table address is read
// directly out of the entry passed to walkFn (via tableVirtAddr(pte.Frame()))
// rather than being derived from the virtual address itself.
func (m *Mapper) walk(virt mem.VirtAddr, walkFn pageTableWalker) {
	tableAddr := m.tableVirtAddr(uintptr(m.pml4Phys))

	for level := uint8(0); level < pageLevels; level++ {
		entryAddr := tableAddr + levelIndex(virt, level)*unsafe.Sizeof(pageTableEntry(0))
		pte := (*pageTableEntry)(ptePtrFn(entryAddr))

		if !walkFn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			tableAddr = m.tableVirtAddr(pte.Frame())
		}
	}
}
