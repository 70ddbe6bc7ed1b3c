// Package diag collects the diagnostic state that never touches disk but
// outlives the moment that produced it: a bounded crash-dump ring, long-
// lived memory statistics counters, and an opt-in tick sampler. Grounded on
// original_source/task/coredump.rs, memory_stats.rs and
// profiling/sampler.rs, reshaped into the mocked-function/kernel.Error idiom
// the rest of this tree uses rather than a line-for-line port (§3
// "Supplemented features").
package diag

import (
	"encoding/binary"

	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// crashRecordWireSize is the fixed on-the-wire byte length of a marshaled
// CrashRecord: nine 8-byte fields (PID, TID, Timestamp, the five tracked
// registers, ExitCode) plus the 1-byte Reason tag, laid out in declaration
// order.
const crashRecordWireSize = 8*9 + 1

// MarshalBinary encodes rec the way the crash ring would persist it if a
// future backing store (§7 notes none exists today) ever wanted the bytes
// on disk — grounded on multiboot.go's raw-struct-over-memory convention,
// expressed here via encoding/binary instead of an unsafe pointer cast
// since the layout must be endian-stable rather than host-native.
func (rec CrashRecord) MarshalBinary() []byte {
	buf := make([]byte, crashRecordWireSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(rec.PID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(rec.TID))
	buf[16] = byte(rec.Reason)
	binary.LittleEndian.PutUint64(buf[17:], rec.Timestamp)
	binary.LittleEndian.PutUint64(buf[25:], rec.Regs.RIP)
	binary.LittleEndian.PutUint64(buf[33:], rec.Regs.RSP)
	binary.LittleEndian.PutUint64(buf[41:], rec.Regs.RBP)
	binary.LittleEndian.PutUint64(buf[49:], rec.Regs.RBX)
	binary.LittleEndian.PutUint64(buf[57:], rec.Regs.RAX)
	binary.LittleEndian.PutUint64(buf[65:], uint64(rec.ExitCode))
	return buf
}

// UnmarshalCrashRecord decodes the bytes MarshalBinary produced. It does
// not recover R12-R15, which are intentionally dropped from the wire
// format (§9 keeps FPU/extended register state off the critical path).
func UnmarshalCrashRecord(buf []byte) CrashRecord {
	var rec CrashRecord
	rec.PID = task.ID(binary.LittleEndian.Uint64(buf[0:]))
	rec.TID = task.ID(binary.LittleEndian.Uint64(buf[8:]))
	rec.Reason = CoreDumpReason(buf[16])
	rec.Timestamp = binary.LittleEndian.Uint64(buf[17:])
	rec.Regs.RIP = binary.LittleEndian.Uint64(buf[25:])
	rec.Regs.RSP = binary.LittleEndian.Uint64(buf[33:])
	rec.Regs.RBP = binary.LittleEndian.Uint64(buf[41:])
	rec.Regs.RBX = binary.LittleEndian.Uint64(buf[49:])
	rec.Regs.RAX = binary.LittleEndian.Uint64(buf[57:])
	rec.ExitCode = int(binary.LittleEndian.Uint64(buf[65:]))
	return rec
}

// CoreDumpReason names why a CrashRecord was captured, mirroring
// coredump.rs's CoreDumpReason.
type CoreDumpReason uint8

const (
	ReasonSegFault CoreDumpReason = iota
	ReasonIllegalInstruction
	ReasonFPException
	ReasonBusError
	ReasonAbort
	ReasonUserRequested
	ReasonOther
)

func (r CoreDumpReason) String() string {
	switch r {
	case ReasonSegFault:
		return "segmentation fault"
	case ReasonIllegalInstruction:
		return "illegal instruction"
	case ReasonFPException:
		return "floating point exception"
	case ReasonBusError:
		return "bus error"
	case ReasonAbort:
		return "abort signal"
	case ReasonUserRequested:
		return "user requested"
	default:
		return "unknown"
	}
}

// RegisterSnapshot is the register state captured at crash time, narrowed
// from coredump.rs's RegisterDump to the fields task.Context already
// tracks (this kernel keeps FPU/segment state off the critical path, §9).
type RegisterSnapshot struct {
	RIP, RSP, RBP uint64
	RBX           uint64
	R12, R13, R14, R15 uint64
	RAX           uint64
}

// CrashRecord is one entry of the bounded crash-dump ring (§7: "an
// in-memory ring is maintained (<=10 entries)").
type CrashRecord struct {
	PID       task.ID
	TID       task.ID
	Reason    CoreDumpReason
	Timestamp uint64
	Regs      RegisterSnapshot
	ExitCode  int
}

// MaxCrashRecords bounds the in-memory ring per §7.
const MaxCrashRecords = 10

// CrashRing is a fixed-capacity ring buffer of the most recent crash
// records; oldest entries fall off once MaxCrashRecords is reached. The
// zero value is disabled: Add drops records until Init (or Enable(true))
// has been called.
type CrashRing struct {
	lock ksync.Spinlock

	records []CrashRecord
	enabled bool
}

// Init enables the ring; records is pre-allocated to MaxCrashRecords
// capacity so Add never grows a slice from interrupt context.
func (r *CrashRing) Init() {
	r.records = make([]CrashRecord, 0, MaxCrashRecords)
	r.enabled = true
}

// Enable turns crash recording on or off without clearing existing entries.
func (r *CrashRing) Enable(on bool) {
	r.lock.Acquire()
	r.enabled = on
	r.lock.Release()
}

// Enabled reports whether the ring currently records new entries.
func (r *CrashRing) Enabled() bool {
	r.lock.Acquire()
	defer r.lock.Release()
	return r.enabled
}

// Add appends rec, evicting the oldest record first if the ring is full.
// A no-op when the ring is disabled.
func (r *CrashRing) Add(rec CrashRecord) {
	r.lock.Acquire()
	defer r.lock.Release()

	if !r.enabled {
		return
	}
	if len(r.records) >= MaxCrashRecords {
		copy(r.records, r.records[1:])
		r.records = r.records[:len(r.records)-1]
	}
	r.records = append(r.records, rec)
}

// Latest returns the most recently added record, if any.
func (r *CrashRing) Latest() (CrashRecord, bool) {
	r.lock.Acquire()
	defer r.lock.Release()

	if len(r.records) == 0 {
		return CrashRecord{}, false
	}
	return r.records[len(r.records)-1], true
}

// Snapshot returns a copy of every record currently held, oldest first.
func (r *CrashRing) Snapshot() []CrashRecord {
	r.lock.Acquire()
	defer r.lock.Release()

	out := make([]CrashRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns the number of records currently held.
func (r *CrashRing) Count() int {
	r.lock.Acquire()
	defer r.lock.Release()
	return len(r.records)
}

// Clear discards every held record.
func (r *CrashRing) Clear() {
	r.lock.Acquire()
	r.records = r.records[:0]
	r.lock.Release()
}

// DefaultCoreDumpSignals maps the core-dump-and-terminate standard signals
// (§4.9's SIGQUIT/SIGILL/SIGABRT/SIGFPE/SIGSEGV/SIGBUS) to the reason a
// CrashRecord should carry when delivery terminates the task.
var DefaultCoreDumpSignals = map[int]CoreDumpReason{
	3:  ReasonAbort,   // SIGQUIT
	4:  ReasonIllegalInstruction, // SIGILL
	6:  ReasonAbort,   // SIGABRT
	7:  ReasonBusError, // SIGBUS
	8:  ReasonFPException, // SIGFPE
	11: ReasonSegFault, // SIGSEGV
}
