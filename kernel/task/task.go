// Package task defines the task control block and the enums describing its
// lifecycle. It has no teacher analogue (the retrieval pack's freestanding
// kernels stop at memory management), so its shape follows the register-
// snapshot vocabulary kernel/cpu/idt.Registers already established
// (plain flat struct, value semantics, no interfaces).
package task

import "github.com/ismobaga/fangaos-sub000/kernel/mem"

// ID identifies one task for the lifetime of the kernel; ids are never
// reused while a task's table slot is still Terminated-but-unreaped.
type ID uint64

// State is a task's position in its lifecycle.
type State uint8

const (
	Ready State = iota
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Priority is one of four fixed scheduling classes; higher values are
// scheduled first.
type Priority uint8

const (
	Idle Priority = iota
	Low
	Normal
	High

	// NumPriorities bounds the scheduler's ready-queue array.
	NumPriorities = 4
)

func (p Priority) String() string {
	switch p {
	case Idle:
		return "idle"
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Context is the register snapshot saved on a context switch: the
// callee-saved registers plus the stack pointer and instruction pointer a
// resumed task restarts from. Split out from Registers (kernel/cpu/idt)
// since a context switch is a cooperative save/restore, not an interrupt
// frame.
type Context struct {
	RSP, RBP uint64
	RBX      uint64
	R12, R13, R14, R15 uint64
	RIP      uint64

	// RAX carries a task's syscall return value across a context switch;
	// fork's child-sees-zero convention is expressed by setting it directly
	// rather than by threading a separate return-value field everywhere.
	RAX uint64
}

// Name is a fixed-capacity task name, avoiding a heap-backed string for a
// value copied every time a TCB moves between queues.
type Name [32]byte

// SetName copies s into n, truncating if necessary.
func (n *Name) SetName(s string) {
	*n = Name{}
	copy(n[:], s)
}

// String returns the name up to its first NUL byte.
func (n Name) String() string {
	for i, b := range n {
		if b == 0 {
			return string(n[:i])
		}
	}
	return string(n[:])
}

// TCB is one task's kernel-resident record.
type TCB struct {
	ID       ID
	State    State
	Priority Priority

	Context Context

	// KernelStackBase/Size describe the task's kernel stack, allocated by
	// the process manager at creation time.
	KernelStackBase uintptr
	KernelStackSize uintptr

	// PageTableRoot is the physical address of this task's PML4.
	PageTableRoot mem.PhysAddr

	Name     Name
	ExitCode int

	// Next chains this TCB into whichever intrusive queue currently owns
	// it (a scheduler ready queue, or nothing when Running/Blocked). Only
	// the scheduler touches this field.
	Next *TCB
}

// IsRunnable reports whether the task may be selected by the scheduler.
func (t *TCB) IsRunnable() bool {
	return t.State == Ready
}
