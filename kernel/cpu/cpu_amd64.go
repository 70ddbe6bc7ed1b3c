// Package cpu exposes the handful of amd64 primitives (segment/TLB/MSR
// control, CPUID, halt) the rest of the kernel needs. The declarations
// below have no Go body: their implementation lives in the matching
// *_amd64.s file, following the same split the teacher uses for every
// instruction that cannot be expressed in portable Go.
package cpu

// EnableInterrupts executes STI.
func EnableInterrupts()

// DisableInterrupts executes CLI.
func DisableInterrupts()

// Halt executes HLT. It is the last instruction executed by a panicking
// CPU and by the idle task.
func Halt()

// FlushTLBEntry invalidates the TLB entry for virtAddr (INVLPG).
func FlushTLBEntry(virtAddr uintptr)

// LoadCR3 writes a new page-table root into CR3, flushing the TLB.
func LoadCR3(pml4PhysAddr uintptr)

// ReadCR3 returns the physical address of the currently active PML4.
func ReadCR3() uintptr

// ReadCR2 returns the faulting address recorded by the last page fault.
func ReadCR2() uint64

// WriteMSR writes value to the model-specific register msr.
func WriteMSR(msr uint32, value uint64)

// ReadMSR reads the model-specific register msr.
func ReadMSR(msr uint32) uint64

// LoadGDT loads the global descriptor table pointed to by gdtPtr (a packed
// limit:base descriptor) with LGDT. It does not reload CS or the data
// segment registers.
func LoadGDT(gdtPtr uintptr)

// LoadTSS loads the task register with the given GDT selector (LTR).
func LoadTSS(selector uint16)

// LoadIDT loads the interrupt descriptor table pointed to by idtPtr.
func LoadIDT(idtPtr uintptr)

// OutB writes a byte to an I/O port.
func OutB(port uint16, value uint8)

// InB reads a byte from an I/O port.
func InB(port uint16) uint8

// ID is a CPUID instruction with EAX=leaf; it returns EAX, EBX, ECX, EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

var cpuidFn = ID

// IsIntel returns true if the CPUID vendor string is "GenuineIntel".
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}

// Pause executes the PAUSE instruction, a hint used in spinlock retry
// loops to reduce power draw and memory-order mis-speculation.
func Pause()
