package limine

import "testing"

func TestParseCmdLineDefaults(t *testing.T) {
	cfg := ParseCmdLine("")

	if !cfg.ConsoleLogo {
		t.Fatal("expected console logo on by default")
	}
	if cfg.InitProgram != "/sbin/init" {
		t.Fatalf("unexpected default init program: %q", cfg.InitProgram)
	}
	if cfg.SchedQuantum != 10 {
		t.Fatalf("unexpected default quantum: %d", cfg.SchedQuantum)
	}
}

func TestParseCmdLineOverrides(t *testing.T) {
	cfg := ParseCmdLine("consoleLogo=off init=/bin/shell sched.quantum=25 nofoo")

	if cfg.ConsoleLogo {
		t.Fatal("expected console logo disabled")
	}
	if cfg.InitProgram != "/bin/shell" {
		t.Fatalf("unexpected init program: %q", cfg.InitProgram)
	}
	if cfg.SchedQuantum != 25 {
		t.Fatalf("unexpected quantum: %d", cfg.SchedQuantum)
	}
	if cfg.Raw["nofoo"] != "nofoo" {
		t.Fatalf("expected bare flag to map to itself, got %q", cfg.Raw["nofoo"])
	}
}

func TestParseCmdLineBadQuantumFallsBackToDefault(t *testing.T) {
	cfg := ParseCmdLine("sched.quantum=notanumber")

	if cfg.SchedQuantum != 10 {
		t.Fatalf("expected fallback to default quantum, got %d", cfg.SchedQuantum)
	}
}

func TestBootInfoHighestUsableAddress(t *testing.T) {
	info := BootInfo{
		MemoryMap: []MemoryMapEntry{
			{Base: 0x0, Length: 0x1000, Type: MemUsable},
			{Base: 0x100000, Length: 0x2000, Type: MemUsable},
			{Base: 0x500000, Length: 0x1000, Type: MemReserved},
		},
	}

	if got := info.HighestUsableAddress(); got != 0x501000 {
		t.Fatalf("expected highest address 0x501000, got 0x%x", got)
	}
}

func TestMemoryEntryTypeString(t *testing.T) {
	if got := MemUsable.String(); got != "usable" {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := MemoryEntryType(99).String(); got != "unknown" {
		t.Fatalf("expected unknown for out-of-range type, got %q", got)
	}
}
