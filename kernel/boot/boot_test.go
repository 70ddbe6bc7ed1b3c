package boot

import (
	"testing"
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel/boot/limine"
	"github.com/ismobaga/fangaos-sub000/kernel/hal"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
)

// fakeConsole is a minimal hal.Console that records writes instead of
// touching a framebuffer, the same test double device/tty and
// device/video/console use for their own hal.Console-shaped tests.
type fakeConsole struct {
	written []string
}

func (c *fakeConsole) Clear()                  {}
func (c *fakeConsole) SetPosition(x, y uint16) {}
func (c *fakeConsole) WriteString(s string)    { c.written = append(c.written, s) }
func (c *fakeConsole) RedrawLine(y uint16)     {}
func (c *fakeConsole) DrawCursor()             {}

var _ hal.Console = (*fakeConsole)(nil)

// newTestBootInfo builds a BootInfo backed entirely by real Go memory: the
// memory map's one usable region is a plain byte slice, addressed with
// hhdmOffset 0 so physical and host addresses coincide, like
// vmm.newTestMapper does for its own package.
func newTestBootInfo(t *testing.T, regionPages int) (*limine.BootInfo, mem.PhysAddr) {
	t.Helper()

	backing := make([]byte, (regionPages+1)*int(mem.PageSize))
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)

	info := &limine.BootInfo{
		BootloaderName: "test-loader",
		MemoryMap: []limine.MemoryMapEntry{
			{Base: uint64(aligned), Length: uint64(regionPages) * uint64(mem.PageSize), Type: limine.MemUsable},
		},
		HHDMOffset: 0,
		HasHHDM:    true,
		CmdLine:    "consoleLogo=off",
	}
	return info, mem.PhysAddr(aligned)
}

// newTestPML4 returns a zeroed, page-aligned frame for the root page table,
// backed by real Go memory the same way vmm.newTestMapper backs its PML4.
func newTestPML4(t *testing.T) mem.PhysAddr {
	t.Helper()
	raw := make([]byte, 2*int(mem.PageSize))
	aligned := (uintptr(unsafe.Pointer(&raw[0])) + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	return mem.PhysAddr(aligned)
}

// withMockedHeapBase redirects heapVirtBaseFn at a plain Go byte slice big
// enough for n pages, so Phase 3 can hand the heap a range this test process
// can actually dereference; restores the original on return. See boot.go's
// heapVirtBaseFn doc comment for why a fixed kernel-space constant cannot be
// used here.
func withMockedHeapBase(t *testing.T, pages int) {
	t.Helper()
	backing := make([]byte, (pages+1)*int(mem.PageSize))
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)

	orig := heapVirtBaseFn
	heapVirtBaseFn = func() mem.VirtAddr { return mem.VirtAddr(aligned) }
	t.Cleanup(func() { heapVirtBaseFn = orig })
}

func withMockedPrivilegedInit(t *testing.T) (gdtCalls, idtCalls *int, syscallArgs *[3]uint64) {
	t.Helper()

	origGDT, origIDT, origSyscall := gdtInitFn, idtInitFn, syscallInitFn
	t.Cleanup(func() {
		gdtInitFn, idtInitFn, syscallInitFn = origGDT, origIDT, origSyscall
	})

	gdtCalls, idtCalls = new(int), new(int)
	syscallArgs = new([3]uint64)

	gdtInitFn = func(uintptr) { *gdtCalls++ }
	idtInitFn = func() { *idtCalls++ }
	syscallInitFn = func(entry uintptr, kcs, ucs uint16) {
		syscallArgs[0] = uint64(entry)
		syscallArgs[1] = uint64(kcs)
		syscallArgs[2] = uint64(ucs)
	}

	return gdtCalls, idtCalls, syscallArgs
}

func TestRunWiresEverySubsystem(t *testing.T) {
	withMockedHeapBase(t, 4)
	gdtCalls, idtCalls, syscallArgs := withMockedPrivilegedInit(t)

	info, _ := newTestBootInfo(t, 32)
	console := &fakeConsole{}

	params := Params{
		KernelStackTop:     0xdead0000,
		InitialPML4:        newTestPML4(t),
		HeapPages:          2,
		MaxTasks:           8,
		SwapSlots:          4,
		LRUCapacity:        4,
		StackRegionStart:   mem.VirtAddr(0x2000_0000),
		StackGuardGap:      mem.Size(mem.PageSize),
		SyscallEntryAddr:   0x1234,
		KernelCodeSelector: 0x08,
		UserCodeSelector:   0x23,
		Console:            console,
	}

	k := Run(info, params)

	if *gdtCalls != 1 || *idtCalls != 1 {
		t.Fatalf("expected gdt/idt Init called once each; got %d/%d", *gdtCalls, *idtCalls)
	}
	if syscallArgs[0] != 0x1234 || syscallArgs[1] != 0x08 || syscallArgs[2] != 0x23 {
		t.Fatalf("unexpected syscall.Init args: %+v", *syscallArgs)
	}

	if got := k.PFA.TotalPages(); got == 0 {
		t.Fatal("expected PFA to report a non-zero page count")
	}

	if _, err := k.Heap.Alloc(32, 0); err != nil {
		t.Fatalf("expected heap handed to the kernel to be usable: %v", err)
	}

	if k.Scheduler.TaskCount() != 1 {
		t.Fatalf("expected phase 6 to have seeded exactly one demonstration task; got %d", k.Scheduler.TaskCount())
	}

	if len(console.written) == 0 {
		t.Fatal("expected the shell to have written a prompt to the console")
	}

	if len(k.Inventory) != 1 || k.Inventory[0].Type != limine.MemUsable {
		t.Fatalf("expected a one-entry usable inventory; got %+v", k.Inventory)
	}

	if hal.ActiveShell == nil || hal.ActiveKeyboard == nil {
		t.Fatal("expected phase 4/5 to publish hal.ActiveShell and hal.ActiveKeyboard")
	}

	if k.MemStats.TotalPhysical() == 0 {
		t.Fatal("expected memory stats to be published by phase 3")
	}
}

func TestExtendHeapGrowsWithoutLosingState(t *testing.T) {
	withMockedHeapBase(t, 8)

	info, _ := newTestBootInfo(t, 32)
	params := Params{
		InitialPML4: newTestPML4(t),
		HeapPages:   1,
		Console:     &fakeConsole{},
	}

	k := &Kernel{}
	phase3(k, info, params)

	ptr, err := k.Heap.Alloc(32, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := k.ExtendHeap(2); err != nil {
		t.Fatalf("unexpected error extending heap: %v", err)
	}

	// The pointer allocated before the extension must still be valid and
	// freeable: Extend must not have discarded the heap's existing state.
	if err := k.Heap.Free(ptr); err != nil {
		t.Fatalf("expected pre-extension allocation to remain valid: %v", err)
	}

	bigPtr, err := k.Heap.Alloc(uintptr(mem.PageSize)*2, 0)
	if err != nil {
		t.Fatalf("expected extended heap to satisfy a larger allocation: %v", err)
	}
	if bigPtr == nil {
		t.Fatal("expected non-nil pointer from extended heap")
	}
}

func TestPhase2AcceptsValidBootInfo(t *testing.T) {
	info, _ := newTestBootInfo(t, 4)
	// A valid BootInfo must not panic; if it did, this test would never
	// reach the following line (kfmt.Panic halts via cpu.Halt, which this
	// package does not mock since a fatal boot condition is never expected
	// to fire in this test).
	phase2(info)
}

func TestBuildInventorySortsByBase(t *testing.T) {
	entries := []limine.MemoryMapEntry{
		{Base: 0x2000, Length: 0x1000, Type: limine.MemUsable},
		{Base: 0x1000, Length: 0x1000, Type: limine.MemReserved},
	}

	inv := buildInventory(entries)
	if len(inv) != 2 || inv[0].Base != 0x1000 || inv[1].Base != 0x2000 {
		t.Fatalf("expected inventory sorted by base; got %+v", inv)
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0, 7); got != 7 {
		t.Fatalf("expected default 7 for zero input; got %d", got)
	}
	if got := orDefault(3, 7); got != 3 {
		t.Fatalf("expected explicit value 3 to win; got %d", got)
	}
}
