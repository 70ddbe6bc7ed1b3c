package diag

import "testing"

func TestMemStatsPhysicalAccounting(t *testing.T) {
	var m MemStats
	m.SetTotalPhysical(1000)
	m.SetUsedPhysical(400)

	if got := m.FreePhysical(); got != 600 {
		t.Fatalf("expected 600 free bytes, got %d", got)
	}
}

func TestMemStatsHeapAllocFreeRoundTrip(t *testing.T) {
	var m MemStats
	m.SetTotalHeap(4096)

	m.RecordHeapAlloc(64)
	m.RecordHeapAlloc(32)
	if got := m.UsedHeap(); got != 96 {
		t.Fatalf("expected 96 used heap bytes, got %d", got)
	}
	if got := m.ActiveHeapAllocs(); got != 2 {
		t.Fatalf("expected 2 active allocations, got %d", got)
	}

	m.RecordHeapFree(64)
	if got := m.UsedHeap(); got != 32 {
		t.Fatalf("expected 32 used heap bytes after free, got %d", got)
	}
	if got := m.ActiveHeapAllocs(); got != 1 {
		t.Fatalf("expected 1 active allocation after free, got %d", got)
	}
	if got := m.FreeHeap(); got != 4064 {
		t.Fatalf("expected 4064 free heap bytes, got %d", got)
	}
}

func TestMemStatsPageAccounting(t *testing.T) {
	var m MemStats
	m.RecordPageAlloc()
	m.RecordPageAlloc()
	m.RecordPageAlloc()
	m.RecordPageFree()

	if got := m.ActivePageAllocs(); got != 2 {
		t.Fatalf("expected 2 active page allocations, got %d", got)
	}
}
