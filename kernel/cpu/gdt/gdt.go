// Package gdt builds and loads the kernel's global descriptor table and task
// state segment, the same address-taken-static discipline the teacher uses
// for its own boot-time tables: the backing arrays are package-level statics
// with addresses that never move once installed, loaded into the CPU via the
// cpu package's bodyless asm stubs.
package gdt

import (
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
)

// Selector values for the six GDT slots this kernel installs.
const (
	SelNull     = 0x00
	SelKernCode = 0x08
	SelKernData = 0x10
	SelUserCode = 0x18
	SelUserData = 0x20
	SelTSS      = 0x28
)

// descFlags are the access-byte and flag bits shared by the code/data
// descriptors below.
const (
	accessPresent   = 1 << 7
	accessRing3     = 3 << 5
	accessCodeData  = 1 << 4
	accessExec      = 1 << 3
	accessRW        = 1 << 1
	accessAccessed  = 1 << 0
	flagLongMode    = 1 << 1
	flagGranularity = 1 << 3
)

// segmentDescriptor is a plain 64-bit code/data descriptor; limit and base
// fields are ignored by the CPU in long mode except for the flags above.
type segmentDescriptor uint64

func makeSegment(access, flags uint8) segmentDescriptor {
	var d uint64
	d |= uint64(access) << 40
	d |= uint64(flags&0x0f) << 52
	return segmentDescriptor(d)
}

// tssDescriptor is the 16-byte (two 64-bit words) system descriptor that
// locates a 64-bit TSS in the GDT.
type tssDescriptor struct {
	low  uint64
	high uint64
}

func makeTSSDescriptor(base uintptr, limit uint32) tssDescriptor {
	const tssAvailable = 0x9
	access := uint64(accessPresent) | uint64(tssAvailable)

	low := uint64(limit&0xffff) |
		(uint64(base&0xffffff) << 16) |
		(access << 40) |
		(uint64((limit>>16)&0xf) << 48) |
		(uint64((base>>24)&0xff) << 56)
	high := uint64(base >> 32)
	return tssDescriptor{low: low, high: high}
}

// TaskStateSegment is the 64-bit TSS layout. Only rsp0 and ist1 are used by
// this kernel: rsp0 supplies the kernel stack loaded on a ring3->0
// transition, ist1 is the dedicated stack for double-fault handling.
type TaskStateSegment struct {
	reserved0 uint32
	rsp       [3]uint64
	reserved1 uint64
	ist       [7]uint64
	reserved2 uint64
	reserved3 uint16
	ioMapBase uint16
}

// DoubleFaultStackSize is the size of the dedicated IST1 stack used for
// double-fault handling, away from whatever stack was running when the
// fault occurred.
const DoubleFaultStackSize = 128 * 1024

var (
	gdt [7]uint64
	tss TaskStateSegment

	doubleFaultStack [DoubleFaultStackSize]byte

	// loadGDTFn and loadTSSFn are mocked by tests, which cannot execute the
	// privileged LGDT/LTR instructions outside ring 0.
	loadGDTFn = cpu.LoadGDT
	loadTSSFn = cpu.LoadTSS
)

// tablePointer holds the packed limit:base structure LGDT expects. Go
// aligns base to 8 bytes, so the leading pad places limit at offset 6 and
// the pointer handed to LGDT is &limit, which makes limit and base adjacent.
type tablePointer struct {
	_     [3]uint16
	limit uint16
	base  uint64
}

// Init builds the six-slot GDT plus the TSS descriptor, sets rsp0 and ist1,
// loads the GDT and loads the task register. The segment registers are not
// reloaded here (cpu.LoadGDT only executes LGDT).
func Init(rsp0 uintptr) {
	gdt[0] = 0 // null descriptor

	gdt[1] = uint64(makeSegment(
		accessPresent|accessCodeData|accessExec|accessRW|accessAccessed,
		flagLongMode,
	))
	gdt[2] = uint64(makeSegment(
		accessPresent|accessCodeData|accessRW|accessAccessed,
		0,
	))
	gdt[3] = uint64(makeSegment(
		accessPresent|accessRing3|accessCodeData|accessExec|accessRW|accessAccessed,
		flagLongMode,
	))
	gdt[4] = uint64(makeSegment(
		accessPresent|accessRing3|accessCodeData|accessRW|accessAccessed,
		0,
	))

	tss.rsp[0] = uint64(rsp0)
	tss.ist[0] = uint64(uintptr(unsafe.Pointer(&doubleFaultStack[0])) + DoubleFaultStackSize)

	tssDesc := makeTSSDescriptor(uintptr(unsafe.Pointer(&tss)), uint32(unsafe.Sizeof(tss))-1)
	gdt[5] = tssDesc.low
	gdt[6] = tssDesc.high

	ptr := tablePointer{
		limit: uint16(unsafe.Sizeof(gdt) - 1),
		base:  uint64(uintptr(unsafe.Pointer(&gdt[0]))),
	}
	loadGDTFn(uintptr(unsafe.Pointer(&ptr.limit)))
	loadTSSFn(SelTSS)
}

// SetKernelStack updates rsp0, the stack the CPU switches to on a ring3->0
// transition (syscall or interrupt from user mode). Called by the scheduler
// whenever it switches the current task.
func SetKernelStack(rsp0 uintptr) {
	tss.rsp[0] = uint64(rsp0)
}

// IST1Top returns the top of the dedicated double-fault stack, for tests and
// diagnostics that want to sanity-check the TSS contents without reading CPU
// state.
func IST1Top() uint64 {
	return tss.ist[0]
}
