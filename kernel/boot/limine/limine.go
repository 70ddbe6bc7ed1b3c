// Package limine models the subset of the Limine boot protocol's
// request/response handshake Phase 2 of the boot orchestrator consumes:
// bootloader-info, framebuffer, memory-map and HHDM-offset responses, plus
// the base-revision tag. It plays the role the teacher's
// kernel/hal/multiboot package plays for a Multiboot2 loader, adapted to
// Limine's pointer-to-response-struct handshake instead of a packed tag
// stream (§6 "Bootloader hand-off").
package limine

import "unsafe"

// BaseRevisionSupported is the highest base revision this kernel declares
// support for. BootInfo carries no base-revision field, and Phase 2 does
// not check or record which revision the loader acknowledged.
const BaseRevisionSupported = 2

// MemoryEntryType classifies one memory-map entry the way §3's DATA MODEL
// requires: USABLE, FRAMEBUFFER, EXECUTABLE_AND_MODULES, or "other".
type MemoryEntryType uint32

const (
	MemUsable MemoryEntryType = iota
	MemReserved
	MemACPIReclaimable
	MemACPINVS
	MemBadMemory
	MemBootloaderReclaimable
	MemKernelAndModules
	MemFramebuffer
)

// String mirrors the teacher's MemoryEntryType.String() convention.
func (t MemoryEntryType) String() string {
	switch t {
	case MemUsable:
		return "usable"
	case MemReserved:
		return "reserved"
	case MemACPIReclaimable:
		return "acpi-reclaimable"
	case MemACPINVS:
		return "acpi-nvs"
	case MemBadMemory:
		return "bad-memory"
	case MemBootloaderReclaimable:
		return "bootloader-reclaimable"
	case MemKernelAndModules:
		return "executable-and-modules"
	case MemFramebuffer:
		return "framebuffer"
	default:
		return "unknown"
	}
}

// MemoryMapEntry is one entry of the bootloader-reported memory map.
type MemoryMapEntry struct {
	Base   uint64
	Length uint64
	Type   MemoryEntryType
}

// FramebufferInfo describes the bootloader-initialized linear framebuffer,
// 32-bpp preferred per §6; a nil *FramebufferInfo means the console stays
// disabled.
type FramebufferInfo struct {
	Addr          uintptr
	Width, Height uint64
	Pitch         uint64
	BPP           uint16
}

// BootInfo is the assembled set of bootloader responses Phase 2 validates
// and hands to Phase 3. A field's zero value (nil slice, 0 offset) means
// the corresponding Limine request went unanswered.
type BootInfo struct {
	BootloaderName    string
	BootloaderVersion string

	Framebuffer *FramebufferInfo

	MemoryMap  []MemoryMapEntry
	HHDMOffset uintptr
	HasHHDM    bool

	CmdLine string
}

// HighestUsableAddress returns the end address of the highest memory-map
// entry of any type, used by the PFA to size its bitmap (§4.1).
func (b *BootInfo) HighestUsableAddress() uint64 {
	var highest uint64
	for _, e := range b.MemoryMap {
		if end := e.Base + e.Length; end > highest {
			highest = end
		}
	}
	return highest
}

// Ptr is a generic pointer-sized slot, used to model the Limine
// request/response exchange's raw pointer fields without committing to any
// one request's concrete layout.
type Ptr = uintptr

// noEscape prevents the compiler from claiming a raw pointer read escapes
// to the heap, matching the pattern kfmt.noEscape already establishes for
// working with raw memory in a pre-allocator context.
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0) //nolint:staticcheck
}
