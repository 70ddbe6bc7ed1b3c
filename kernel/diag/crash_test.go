package diag

import (
	"testing"

	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

func TestCrashRingEvictsOldestBeyondCapacity(t *testing.T) {
	var r CrashRing
	r.Init()

	for i := 0; i < MaxCrashRecords+5; i++ {
		r.Add(CrashRecord{PID: task.ID(i), Reason: ReasonAbort, Timestamp: uint64(i)})
	}

	if r.Count() != MaxCrashRecords {
		t.Fatalf("expected ring capped at %d, got %d", MaxCrashRecords, r.Count())
	}

	latest, ok := r.Latest()
	if !ok || latest.Timestamp != uint64(MaxCrashRecords+4) {
		t.Fatalf("expected latest record timestamp %d, got %+v ok=%v", MaxCrashRecords+4, latest, ok)
	}

	snap := r.Snapshot()
	if snap[0].Timestamp != 5 {
		t.Fatalf("expected oldest surviving record timestamp 5, got %d", snap[0].Timestamp)
	}
}

func TestCrashRingDisabledDropsRecords(t *testing.T) {
	var r CrashRing
	r.Init()
	r.Enable(false)

	r.Add(CrashRecord{Reason: ReasonSegFault})

	if r.Count() != 0 {
		t.Fatalf("expected no records while disabled, got %d", r.Count())
	}
}

func TestCrashRingClear(t *testing.T) {
	var r CrashRing
	r.Init()
	r.Add(CrashRecord{Reason: ReasonAbort})

	r.Clear()
	if r.Count() != 0 {
		t.Fatal("expected Clear to empty the ring")
	}
}

func TestCoreDumpReasonString(t *testing.T) {
	if got := ReasonSegFault.String(); got != "segmentation fault" {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestCrashRecordMarshalRoundTrip(t *testing.T) {
	rec := CrashRecord{
		PID:       task.ID(7),
		TID:       task.ID(9),
		Reason:    ReasonSegFault,
		Timestamp: 0xdeadbeef,
		Regs: RegisterSnapshot{
			RIP: 0x1000, RSP: 0x2000, RBP: 0x3000, RBX: 0x4000, RAX: 0x5000,
		},
		ExitCode: -11,
	}

	buf := rec.MarshalBinary()
	if len(buf) != crashRecordWireSize {
		t.Fatalf("expected %d bytes, got %d", crashRecordWireSize, len(buf))
	}

	got := UnmarshalCrashRecord(buf)
	if got.PID != rec.PID || got.TID != rec.TID || got.Reason != rec.Reason ||
		got.Timestamp != rec.Timestamp || got.ExitCode != rec.ExitCode || got.Regs != rec.Regs {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}
