package ipc

import (
	"container/list"
	"math/bits"

	"github.com/ismobaga/fangaos-sub000/kernel"
)

// Standard signal numbers, Linux x86_64 numbering.
const (
	SIGHUP  = 1
	SIGINT  = 2
	SIGQUIT = 3
	SIGILL  = 4
	SIGTRAP = 5
	SIGABRT = 6
	SIGBUS  = 7
	SIGFPE  = 8
	SIGKILL = 9
	SIGUSR1 = 10
	SIGSEGV = 11
	SIGUSR2 = 12
	SIGPIPE = 13
	SIGALRM = 14
	SIGTERM = 15
	SIGCHLD = 17
	SIGCONT = 18
	SIGSTOP = 19
	SIGTSTP = 20

	// MaxStandardSignal is the highest standard signal number (1..31).
	MaxStandardSignal = 31
)

var errUnkillableSignal = &kernel.Error{Module: "ipc", Message: "SIGKILL and SIGSTOP cannot have their disposition changed"}

// SignalHandler is the basic per-task signal state: which signals are
// pending and which are blocked, each a bitmask over signals 1..31
// (bit index = signal number - 1).
type SignalHandler struct {
	pending uint32
	blocked uint32
}

// Send marks signal s pending.
func (h *SignalHandler) Send(s int) {
	h.pending |= 1 << uint(s-1)
}

// Clear removes signal s from the pending set; delivery is explicit, so
// callers must call this once they have acted on a signal NextUnblocked
// returned.
func (h *SignalHandler) Clear(s int) {
	h.pending &^= 1 << uint(s-1)
}

// IsPending reports whether signal s is currently pending.
func (h *SignalHandler) IsPending(s int) bool {
	return h.pending&(1<<uint(s-1)) != 0
}

// SetBlocked sets or clears signal s in the blocked mask.
func (h *SignalHandler) SetBlocked(s int, blocked bool) {
	if blocked {
		h.blocked |= 1 << uint(s-1)
	} else {
		h.blocked &^= 1 << uint(s-1)
	}
}

// NextUnblocked returns the lowest-numbered signal that is both pending
// and not blocked, or (0, false) if there is none.
func (h *SignalHandler) NextUnblocked() (int, bool) {
	deliverable := h.pending &^ h.blocked
	if deliverable == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(deliverable) + 1, true
}

// Disposition is the action a SigAction takes when its signal arrives.
type Disposition uint8

const (
	Default Disposition = iota
	Ignore
	Handler
	Core
)

// SigAction describes how one signal is handled: its disposition, the mask
// applied while the handler runs, and any extra flags (e.g. SA_RESTART).
type SigAction struct {
	Disposition Disposition
	HandlerAddr uintptr
	Mask        uint32
	Flags       uint32
}

// SignalInfo is one queued real-time signal: a signal number plus an
// opaque payload value (the siginfo si_value union in miniature).
type SignalInfo struct {
	Signal int
	Value  uintptr
}

// DefaultActionFor returns the fixed default disposition for a standard
// signal, per the POSIX default-action table.
func DefaultActionFor(s int) Disposition {
	switch s {
	case SIGKILL, SIGSTOP:
		return Default // terminate/stop; fixed, cannot be changed
	case SIGCHLD, SIGCONT:
		return Ignore
	case SIGQUIT, SIGILL, SIGABRT, SIGFPE, SIGSEGV, SIGBUS:
		return Core
	default:
		return Default // terminate
	}
}

// AdvancedSignalHandler extends SignalHandler with a sigaction table, a
// saved mask for sigsuspend/restore, and a FIFO of queued real-time
// signals, which are always drained ahead of standard signals.
type AdvancedSignalHandler struct {
	SignalHandler

	actions   [MaxStandardSignal + 1]SigAction
	savedMask uint32
	hasSaved  bool
	rtQueue   list.List
}

// SetAction installs a SigAction for signal s. Changing the disposition of
// SIGKILL or SIGSTOP is rejected.
func (h *AdvancedSignalHandler) SetAction(s int, action SigAction) *kernel.Error {
	if s == SIGKILL || s == SIGSTOP {
		return errUnkillableSignal
	}
	h.actions[s] = action
	return nil
}

// Action returns the SigAction currently installed for signal s.
func (h *AdvancedSignalHandler) Action(s int) SigAction {
	return h.actions[s]
}

// SaveMask stashes the current blocked mask (for sigsuspend), overwriting
// it with temp.
func (h *AdvancedSignalHandler) SaveMask(temp uint32) {
	h.savedMask = h.blocked
	h.hasSaved = true
	h.blocked = temp
}

// RestoreMask restores the mask stashed by SaveMask, if any.
func (h *AdvancedSignalHandler) RestoreMask() {
	if h.hasSaved {
		h.blocked = h.savedMask
		h.hasSaved = false
	}
}

// QueueRT appends a real-time signal to the FIFO.
func (h *AdvancedSignalHandler) QueueRT(info SignalInfo) {
	h.rtQueue.PushBack(info)
}

// NextRT pops the oldest queued real-time signal, if any.
func (h *AdvancedSignalHandler) NextRT() (SignalInfo, bool) {
	e := h.rtQueue.Front()
	if e == nil {
		return SignalInfo{}, false
	}
	h.rtQueue.Remove(e)
	return e.Value.(SignalInfo), true
}

// NextDeliverable returns the next signal to deliver: the oldest queued
// real-time signal if any, drained ahead of standard signals regardless of
// priority ordering; otherwise falls back to the lowest unblocked standard
// signal.
func (h *AdvancedSignalHandler) NextDeliverable() (rt SignalInfo, isRT bool, standard int, hasStandard bool) {
	if info, ok := h.NextRT(); ok {
		return info, true, 0, false
	}
	if s, ok := h.NextUnblocked(); ok {
		return SignalInfo{}, false, s, true
	}
	return SignalInfo{}, false, 0, false
}
