package services

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// Prot is the requested access protection for a mapped region.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// MmapFlags selects sharing and placement behaviour for a mapping.
type MmapFlags uint8

const (
	FlagShared MmapFlags = 1 << iota
	FlagPrivate
	FlagAnonymous
	FlagFixed
)

// Region describes one live mmap mapping.
type Region struct {
	Start mem.VirtAddr
	Size  mem.Size
	Prot  Prot
	Flags MmapFlags
}

func (r *Region) end() mem.VirtAddr {
	return r.Start + mem.VirtAddr(r.Size)
}

func (r *Region) overlaps(start mem.VirtAddr, size mem.Size) bool {
	end := start + mem.VirtAddr(size)
	return start < r.end() && r.Start < end
}

var errOverlappingMapping = &kernel.Error{Module: "mmap", Message: "requested range overlaps an existing mapping"}
var errNoMapping = &kernel.Error{Module: "mmap", Message: "no mapping contains the given address"}
var errOutOfAddressSpace = &kernel.Error{Module: "mmap", Message: "no free range large enough for the request"}

// MmapManager owns the address-sorted list of live mappings in one address
// space and hands out placement addresses for non-fixed requests.
type MmapManager struct {
	lock ksync.Spinlock

	regions  []*Region
	loAddr   mem.VirtAddr
	hiAddr   mem.VirtAddr
	nextHint mem.VirtAddr
}

// Init bounds the manager to the address range [lo, hi) it may place
// mappings within, and primes the bump-allocation hint at lo.
func (m *MmapManager) Init(lo, hi mem.VirtAddr) {
	m.loAddr = lo
	m.hiAddr = hi
	m.nextHint = lo
	m.regions = nil
}

// Mmap establishes a new mapping of size bytes with the given protection and
// flags. If addr is non-zero and FlagFixed is set, that exact address is
// used (and rejected if it overlaps an existing mapping); otherwise a
// placement address is chosen by findFreeRangeLocked: a first-fit scan
// starting at the bump hint, then from the low end of the managed range.
func (m *MmapManager) Mmap(addr mem.VirtAddr, size mem.Size, prot Prot, flags MmapFlags) (mem.VirtAddr, *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	size = mem.Size(mem.VirtAddr(size).AlignUp(uintptr(mem.PageSize)))

	if flags&FlagFixed != 0 && addr != 0 {
		if m.overlapsLocked(addr, size) {
			return 0, errOverlappingMapping
		}
		m.insertLocked(&Region{Start: addr, Size: size, Prot: prot, Flags: flags})
		return addr, nil
	}

	placed, err := m.findFreeRangeLocked(size)
	if err != nil {
		return 0, err
	}
	m.insertLocked(&Region{Start: placed, Size: size, Prot: prot, Flags: flags})
	return placed, nil
}

func (m *MmapManager) overlapsLocked(addr mem.VirtAddr, size mem.Size) bool {
	for _, r := range m.regions {
		if r.overlaps(addr, size) {
			return true
		}
	}
	return false
}

// findFreeRangeLocked scans the address-sorted region list for the first gap
// of at least size, starting from nextHint, and falls back to scanning from
// loAddr if the hint-forward scan fails.
func (m *MmapManager) findFreeRangeLocked(size mem.Size) (mem.VirtAddr, *kernel.Error) {
	for _, start := range [2]mem.VirtAddr{m.nextHint, m.loAddr} {
		candidate := start
		for _, r := range m.regions {
			if candidate+mem.VirtAddr(size) <= r.Start {
				break
			}
			if r.end() > candidate {
				candidate = r.end()
			}
		}
		if candidate+mem.VirtAddr(size) <= m.hiAddr {
			m.nextHint = candidate + mem.VirtAddr(size)
			return candidate, nil
		}
	}
	return 0, errOutOfAddressSpace
}

func (m *MmapManager) insertLocked(r *Region) {
	i := 0
	for ; i < len(m.regions); i++ {
		if m.regions[i].Start > r.Start {
			break
		}
	}
	m.regions = append(m.regions, nil)
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = r
}

// Munmap removes every mapping overlapping [addr, addr+size) — coarse
// granularity by design (§4.4): a request spanning several prior mappings,
// or only part of one, drops each overlapping region in full rather than
// splitting it. Returns errNoMapping if no region overlapped the range.
func (m *MmapManager) Munmap(addr mem.VirtAddr, size mem.Size) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	kept := m.regions[:0]
	removed := false
	for _, r := range m.regions {
		if r.overlaps(addr, size) {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	m.regions = kept

	if !removed {
		return errNoMapping
	}
	return nil
}

// FindMapping returns the region containing addr, if any.
func (m *MmapManager) FindMapping(addr mem.VirtAddr) (Region, bool) {
	m.lock.Acquire()
	defer m.lock.Release()

	for _, r := range m.regions {
		if addr >= r.Start && addr < r.end() {
			return *r, true
		}
	}
	return Region{}, false
}
