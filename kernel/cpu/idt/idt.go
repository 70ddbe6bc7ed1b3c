// Package idt builds the 256-gate interrupt descriptor table, remaps the
// legacy PIC, and routes vectors to registered Go handlers. It follows the
// same split as the teacher's gate package: the gate array and the
// low-level entry trampolines are asm-backed (idt_amd64.s), while handler
// registration, PIC programming and dispatch policy are portable Go that
// can be exercised without real hardware.
package idt

import (
	"io"
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
	"github.com/ismobaga/fangaos-sub000/kernel/kfmt"
)

// InterruptNumber identifies one of the 256 IDT gate slots.
type InterruptNumber uint8

// CPU exception vectors this kernel populates explicitly. Vectors not
// listed here (e.g. reserved Intel vectors) are still marked present but
// fall back to the default handler if triggered.
const (
	DivideByZero               = InterruptNumber(0)
	Debug                      = InterruptNumber(1)
	NMI                        = InterruptNumber(2)
	Breakpoint                 = InterruptNumber(3)
	Overflow                   = InterruptNumber(4)
	BoundRangeExceeded         = InterruptNumber(5)
	InvalidOpcode              = InterruptNumber(6)
	DeviceNotAvailable         = InterruptNumber(7)
	DoubleFault                = InterruptNumber(8)
	InvalidTSS                 = InterruptNumber(10)
	SegmentNotPresent          = InterruptNumber(11)
	StackSegmentFault          = InterruptNumber(12)
	GPFException               = InterruptNumber(13)
	PageFaultException         = InterruptNumber(14)
	FloatingPointException     = InterruptNumber(16)
	AlignmentCheck             = InterruptNumber(17)
	MachineCheck               = InterruptNumber(18)
	SIMDFloatingPointException = InterruptNumber(19)

	// lastCPUException is the highest vector reserved for CPU exceptions;
	// IRQs start after it.
	lastCPUException = InterruptNumber(21)
)

// PIC remap offsets: the legacy 8259 PICs default to vectors 8..15, which
// collide with CPU exceptions, so both are reprogrammed to start at 32.
const (
	PIC1Offset = InterruptNumber(32)
	PIC2Offset = InterruptNumber(40)

	pic1Command = 0x20
	pic1Data    = 0x21
	pic2Command = 0xA0
	pic2Data    = 0xA1

	icw1Init   = 0x10
	icw1ICW4   = 0x01
	icw4_8086  = 0x01
	picEOI     = 0x20
	irqSpurious7  = 7
	irqSpurious15 = 15
)

// Registers snapshots the general-purpose registers saved by the entry
// trampoline, plus Info (vector number or error code) and the IRETQ return
// frame.
type Registers struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64

	// Info holds the exception error code for vectors that push one, or is
	// zero otherwise.
	Info uint64

	RIP, CS, RFlags, RSP, SS uint64
}

// Print writes a register dump to the active kfmt output sink, in the
// teacher's fixed column layout.
func (r *Registers) Print() {
	kfmt.Printf("RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Printf("RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Printf("RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Printf("RBP = %16x\n", r.RBP)
	kfmt.Printf("R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Printf("R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Printf("R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Printf("R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Printf("\n")
	kfmt.Printf("RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Printf("RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Printf("RFL = %16x\n", r.RFlags)
}

// DumpTo writes a register dump to w, in the teacher's fixed column layout.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// Handler processes an interrupt, exception or IRQ. Modifications to regs
// are propagated back to the interrupted context on IRETQ.
type Handler func(*Registers)

var handlerTable [256]Handler

// outBFn is mocked by tests; production code always uses cpu.OutB.
var outBFn = cpu.OutB

// HandleInterrupt registers handler for intNumber. istOffset selects an
// Interrupt Stack Table entry in the TSS (0 means "no IST switch"); only
// DoubleFault uses a non-zero offset in this kernel.
func HandleInterrupt(intNumber InterruptNumber, istOffset uint8, handler Handler) {
	handlerTable[intNumber] = handler
	installGate(intNumber, istOffset)
}

// HandleIRQ registers handler for a remapped IRQ line (0..15). The handler
// is responsible for nothing beyond its own work: EOI is sent by the
// dispatcher after the handler returns, except for the two spurious IRQ
// lines (7 and 15), which never receive an EOI.
func HandleIRQ(line uint8, handler Handler) {
	var vector InterruptNumber
	if line < 8 {
		vector = PIC1Offset + InterruptNumber(line)
	} else {
		vector = PIC2Offset + InterruptNumber(line-8)
	}
	HandleInterrupt(vector, 0, handler)
}

// Init remaps the PIC to vectors 32..47, installs the 256-gate IDT with the
// default handler in every slot, and loads it.
func Init() {
	remapPIC()
	installIDT()
}

// remapPIC reprograms both 8259 PICs so that their IRQ vectors no longer
// overlap CPU exceptions 0..31.
func remapPIC() {
	mask1 := readPICMask(pic1Data)
	mask2 := readPICMask(pic2Data)

	outBFn(pic1Command, icw1Init|icw1ICW4)
	outBFn(pic2Command, icw1Init|icw1ICW4)
	outBFn(pic1Data, uint8(PIC1Offset))
	outBFn(pic2Data, uint8(PIC2Offset))
	outBFn(pic1Data, 4) // tell PIC1 about the PIC2 cascade on IRQ2
	outBFn(pic2Data, 2) // tell PIC2 its cascade identity
	outBFn(pic1Data, icw4_8086)
	outBFn(pic2Data, icw4_8086)

	outBFn(pic1Data, mask1)
	outBFn(pic2Data, mask2)
}

var inBFn = cpu.InB

func readPICMask(port uint16) uint8 {
	return inBFn(port)
}

// sendEOI acknowledges an IRQ to the PIC(s), per vector: IRQ>=8 acknowledges
// PIC2 first, then always PIC1.
func sendEOI(vector InterruptNumber) {
	line := int(vector) - int(PIC1Offset)
	if vector >= PIC2Offset {
		outBFn(pic2Command, picEOI)
	}
	if line >= 0 {
		outBFn(pic1Command, picEOI)
	}
}

// isSpuriousIRQ reports whether line is one of the two legacy spurious IRQ
// lines, which must never receive an EOI.
func isSpuriousIRQ(vector InterruptNumber) bool {
	if vector == PIC1Offset+irqSpurious7 {
		return true
	}
	if vector == PIC1Offset+irqSpurious15 {
		return true
	}
	return false
}

func defaultExceptionHandler(vector InterruptNumber, regs *Registers) {
	kfmt.Printf("\n*** unhandled exception %d ***\n", uint8(vector))
	regs.Print()
	haltFn()
}

var haltFn = cpu.Halt

// dispatch is called by the asm entry trampoline with the vector that
// fired and the saved register snapshot. It routes to the registered
// handler if any, falls back to a halting default for CPU exceptions, and
// handles PIC EOI policy for IRQs.
func dispatch(vector InterruptNumber, regs *Registers) {
	h := handlerTable[vector]

	if vector > lastCPUException && !isSpuriousIRQ(vector) {
		defer sendEOI(vector)
	}

	if h != nil {
		h(regs)
		return
	}

	if vector <= lastCPUException {
		defaultExceptionHandler(vector, regs)
	}
}

// gateDescriptor is a 64-bit-mode interrupt/trap gate: a 16-byte descriptor
// split across a low and high offset half plus the selector, IST index and
// type/attribute byte.
type gateDescriptor struct {
	offsetLow  uint16
	selector   uint16
	istIndex   uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

const gateTypeAttr = 0x8e // present, DPL 0, 64-bit interrupt gate

var idtGates [256]gateDescriptor

// trampolineSize covers the longest generated stub: an optional dummy
// error-code push, the vector-number push, and a near jump to the common
// entry stub.
const trampolineSize = 15

var trampolines [256][trampolineSize]byte

// hasHardwareErrorCode reports whether the CPU itself pushes an error code
// for this vector before invoking the gate, per the x86-64 exception table.
func hasHardwareErrorCode(vector InterruptNumber) bool {
	switch vector {
	case 8, 10, 11, 12, 13, 14, 17:
		return true
	default:
		return false
	}
}

// installGate records istOffset for intNumber's already-built gate
// descriptor. Safe to call after installIDT because editing a gate
// descriptor in place does not require reloading IDTR.
func installGate(intNumber InterruptNumber, istOffset uint8) {
	idtGates[intNumber].istIndex = istOffset & 0x7
}

// commonISRStubAddr returns the address of the shared entry trampoline tail
// that every generated per-vector stub jumps to; implemented in asm since
// Go offers no portable way to take a bodyless function's address.
func commonISRStubAddr() uintptr

// commonISRStub saves the general-purpose registers, calls dispatch with
// the vector and error code pushed by the per-vector stub ahead of it, then
// restores state and returns via IRETQ.
func commonISRStub()

// installIDT generates the 256 per-vector entry trampolines, builds their
// gate descriptors (selector = kernel code, DPL 0, present), and loads the
// table via LIDT.
func installIDT() {
	target := commonISRStubAddr()

	for v := 0; v < 256; v++ {
		vector := InterruptNumber(v)
		stub := trampolines[v][:0]

		if !hasHardwareErrorCode(vector) {
			stub = appendPushImm32(stub, 0)
		}
		stub = appendPushImm32(stub, uint32(v))
		stub = appendJmpRel32(stub, uintptr(unsafe.Pointer(&trampolines[v][len(stub)]))+5, target)

		entry := uintptr(unsafe.Pointer(&trampolines[v][0]))
		idtGates[v] = gateDescriptor{
			offsetLow:  uint16(entry),
			selector:   gdtKernelCodeSelector,
			istIndex:   0,
			typeAttr:   gateTypeAttr,
			offsetMid:  uint16(entry >> 16),
			offsetHigh: uint32(entry >> 32),
		}
	}

	ptr := idtPointer{
		limit: uint16(unsafe.Sizeof(idtGates) - 1),
		base:  uint64(uintptr(unsafe.Pointer(&idtGates[0]))),
	}
	loadIDTFn(uintptr(unsafe.Pointer(&ptr.limit)))
}

// gdtKernelCodeSelector mirrors gdt.SelKernCode without importing the gdt
// package, avoiding an import cycle risk between boot-time tables.
const gdtKernelCodeSelector = 0x08

// idtPointer holds the packed limit:base structure LIDT expects; the leading
// pad places limit at offset 6 so that &limit is immediately followed by
// base.
type idtPointer struct {
	_     [3]uint16
	limit uint16
	base  uint64
}

var loadIDTFn = cpu.LoadIDT

func appendPushImm32(buf []byte, v uint32) []byte {
	buf = append(buf, 0x68)
	return appendLE32(buf, v)
}

func appendJmpRel32(buf []byte, nextInstrAddr uintptr, target uintptr) []byte {
	rel := int32(int64(target) - int64(nextInstrAddr))
	buf = append(buf, 0xe9)
	return appendLE32(buf, uint32(rel))
}

func appendLE32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
