// Package thread defines thread control blocks: task.TCB's per-thread
// counterpart, parallel in shape but carrying ThreadAttributes (CPU
// affinity, RT policy, TLS) that a whole process's primary task does not
// need. Grounded on kernel/task.TCB's flat-struct, value-semantics style.
package thread

import "github.com/ismobaga/fangaos-sub000/kernel/task"

// ID identifies a thread for the lifetime of the owning process.
type ID uint64

// MaxAffinityCPU bounds the affinity bitmask to 64 logical CPUs.
const MaxAffinityCPU = 64

// Attributes describes scheduling-relevant thread properties beyond the
// embedded task.TCB's Priority field.
type Attributes struct {
	StackSize  uintptr
	KernelMode bool

	// Affinity is a bitmask; bit i set means the thread may run on CPU i
	// (i < MaxAffinityCPU). A zero mask means no affinity restriction.
	Affinity uint64

	// RTPolicy tags a real-time scheduling policy; the round-robin
	// scheduler does not interpret it beyond carrying it for callers that
	// do (e.g. a future SCHED_FIFO/SCHED_RR dispatcher).
	RTPolicy uint8
}

// CanRunOnCPU reports whether the thread may run on logical CPU i. Out of
// range CPUs are always false; an unset affinity mask permits any CPU.
func (a Attributes) CanRunOnCPU(i int) bool {
	if i < 0 || i >= MaxAffinityCPU {
		return false
	}
	if a.Affinity == 0 {
		return true
	}
	return a.Affinity&(1<<uint(i)) != 0
}

// TCB is one thread's kernel-resident record: a task.TCB plus the owning
// process id, thread-local storage base, and scheduling attributes.
type TCB struct {
	task.TCB

	ID       ID
	OwnerPID task.ID
	TLSBase  uintptr

	Attrs Attributes
}
