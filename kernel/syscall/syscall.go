// Package syscall configures the SYSCALL/SYSRET fast path and dispatches
// incoming syscalls to registered handlers. The entry trampoline itself is
// asm (syscall_amd64.s), following the same declared-in-Go,
// implemented-in-asm split used by kernel/cpu and kernel/cpu/idt; the
// dispatch table, argument convention and validation helpers are portable
// Go exercised directly by tests.
package syscall

import (
	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
	"github.com/ismobaga/fangaos-sub000/kernel/syscall/errno"
)

// MSR addresses configured once at boot to enable SYSCALL/SYSRET.
const (
	msrSTAR  = 0xC0000081
	msrLSTAR = 0xC0000082
	msrFMASK = 0xC0000084

	rflagsIF = 1 << 9
	rflagsTF = 1 << 8
	rflagsDF = 1 << 10
)

// Handler services one syscall number. args holds up to six arguments in
// System V order (rdi, rsi, rdx, r10, r8, r9 at the hardware boundary,
// already rearranged into this slice by the entry trampoline). The return
// value follows the kernel's convention: >=0 on success, a negated errno on
// failure.
type Handler func(args [6]uint64) int64

var dispatchTable = make(map[uint64]Handler)

// writeMSRFn is mocked by tests, which cannot execute WRMSR outside ring 0.
var writeMSRFn = cpu.WriteMSR

// Register installs handler for syscall number num, overwriting any
// previous registration.
func Register(num uint64, handler Handler) {
	dispatchTable[num] = handler
}

// Init configures IA32_STAR, IA32_LSTAR and IA32_FMASK so that a user-mode
// SYSCALL instruction enters entryAddr in ring 0 with IF, TF and DF cleared.
// userCodeSelector and kernelCodeSelector are GDT selectors; userCodeSelector
// must point at the same four-descriptor block SYSRET expects (user code
// immediately follows user data in the GDT layout this kernel builds).
func Init(entryAddr uintptr, kernelCodeSelector, userCodeSelector uint16) {
	star := (uint64(userCodeSelector) << 48) | (uint64(kernelCodeSelector) << 32)
	writeMSRFn(msrSTAR, star)
	writeMSRFn(msrLSTAR, uint64(entryAddr))
	writeMSRFn(msrFMASK, rflagsIF|rflagsTF|rflagsDF)
}

// Dispatch routes a syscall by number to its registered handler. An
// unrecognized number returns ENOSYS, matching the spec's jump-table
// policy.
func Dispatch(num uint64, args [6]uint64) int64 {
	h, ok := dispatchTable[num]
	if !ok {
		return errno.ENOSYS.Negated()
	}
	return h(args)
}

// OpenMax bounds the per-process file descriptor table (§3's "File
// descriptor (per-process table)"): ValidateFD accepts 0 through OpenMax-1.
const OpenMax = 64

// ValidateFD rejects negative file descriptors and ones at or beyond
// OpenMax, the one check the spec centralizes across every handler that
// takes one.
func ValidateFD(fd int64) (ok bool, rc int64) {
	if fd < 0 || fd >= OpenMax {
		return false, errno.EBADF.Negated()
	}
	return true, 0
}

// ValidateLength rejects a zero-length buffer/region argument.
func ValidateLength(length uint64) (ok bool, rc int64) {
	if length == 0 {
		return false, errno.EINVAL.Negated()
	}
	return true, 0
}

// ValidatePointer rejects a null user pointer.
func ValidatePointer(ptr uint64) (ok bool, rc int64) {
	if ptr == 0 {
		return false, errno.EFAULT.Negated()
	}
	return true, 0
}

// entryTrampoline is the SYSCALL entry point installed into IA32_LSTAR. It
// saves rcx (return RIP) and r11 (saved RFLAGS), saves callee-saved
// registers, copies the syscall number (rax) and the argument registers
// (rdi, rsi, rdx, r10, r8, r9; arg4 comes from r10 since rcx is clobbered by
// SYSCALL) into Dispatch's arguments, calls Dispatch, returns its result in
// rax, then restores registers and executes SYSRETQ.
func entryTrampoline()

// EntryAddr returns the address SYSCALL should jump to, for Init to program
// into IA32_LSTAR.
func EntryAddr() uintptr
