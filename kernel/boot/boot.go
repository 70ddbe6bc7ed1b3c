// Package boot implements the six-phase startup sequence (§4.11) that
// assembles every other subsystem in this tree from bootloader hand-off
// information: descriptor/interrupt tables first, then the Limine response
// validation, then memory management, then the device collaborators, then
// the scheduling/IPC layer, then a final demonstration seed. Grounded on
// the teacher's kernel/kmain.Kmain (the "single entry point that wires
// everything and never returns" shape) and kernel/hal.DetectHardware's
// probe-then-init ordering discipline.
package boot

import (
	"sort"

	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/boot/limine"
	"github.com/ismobaga/fangaos-sub000/kernel/cpu/gdt"
	"github.com/ismobaga/fangaos-sub000/kernel/cpu/idt"
	"github.com/ismobaga/fangaos-sub000/kernel/device/tty"
	"github.com/ismobaga/fangaos-sub000/kernel/diag"
	"github.com/ismobaga/fangaos-sub000/kernel/hal"
	"github.com/ismobaga/fangaos-sub000/kernel/kfmt"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	"github.com/ismobaga/fangaos-sub000/kernel/mem/heap"
	"github.com/ismobaga/fangaos-sub000/kernel/mem/pmm"
	"github.com/ismobaga/fangaos-sub000/kernel/mem/services"
	"github.com/ismobaga/fangaos-sub000/kernel/mem/vmm"
	"github.com/ismobaga/fangaos-sub000/kernel/syscall"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
	"github.com/ismobaga/fangaos-sub000/kernel/task/pgrp"
	"github.com/ismobaga/fangaos-sub000/kernel/task/proc"
	"github.com/ismobaga/fangaos-sub000/kernel/task/sched"
)

// defaultHeapPages is §9's Open Question flagged value ("the boot path
// allocates only three pages for the kernel heap by default"); kept as the
// starting allocation. Phase 3 does not grow the heap by itself: it grows
// only when a caller invokes ExtendHeap.
const defaultHeapPages = 3

// gdtInitFn, idtInitFn and syscallInitFn are mocked by tests: real GDT/IDT/
// MSR setup executes privileged instructions the test harness cannot run.
var (
	gdtInitFn     = gdt.Init
	idtInitFn     = idt.Init
	syscallInitFn = syscall.Init
)

// Params bundles the boot-time values that, on real hardware, come from the
// architecture-specific rt0 trampoline and are out of this module's scope
// (§1's "deliberately out of scope" collaborators do not include rt0, but no
// retrieved teacher file owns it either): the initial kernel stack top for
// the TSS, and the physical frame reserved for the root PML4.
type Params struct {
	KernelStackTop uintptr
	InitialPML4    mem.PhysAddr

	HeapPages        int
	MaxTasks         int
	SwapSlots        int
	LRUCapacity      int
	StackRegionStart mem.VirtAddr
	StackGuardGap    mem.Size

	SyscallEntryAddr   uintptr
	KernelCodeSelector uint16
	UserCodeSelector   uint16

	Console hal.Console
}

// Region is one entry of the published memory-region inventory (§4.11
// Phase 3), sorted by base address the way hal.DetectHardware sorts its
// drivers before use.
type Region struct {
	Base   uint64
	Length uint64
	Type   limine.MemoryEntryType
}

// Kernel owns every subsystem the orchestrator assembles. Per §9's "Global
// mutable state" note, this struct (constructed exactly once, here) is the
// only place these singletons are created; everything else holds a pointer
// into it.
type Kernel struct {
	PFA     pmm.Allocator
	Mapper  vmm.Mapper
	Heap    heap.Heap
	Cow     services.CowManager
	Demand  services.DemandPager
	Mmap    services.MmapManager
	Swap    services.SwapManager
	Protect services.ProtectManager

	Scheduler sched.Scheduler
	Procs     proc.Manager
	Groups    pgrp.Manager

	MemStats diag.MemStats
	Crashes  diag.CrashRing
	Sampler  diag.Sampler

	CmdLine   limine.Config
	Inventory []Region

	History    tty.History
	Shell      tty.Shell
	Keyboard   tty.KeyboardBridge
	LineEditor tty.LineEditor

	heapOffset uint64
}

const logModule = "boot"

func logPhase(name string) {
	kfmt.Printf("[%s] starting %s\n", logModule, name)
}

func logDone(name string) {
	kfmt.Printf("[%s] %s done\n", logModule, name)
}

// Run executes all six boot phases in order against info, the parsed
// Limine response set, and p, the rt0-supplied bootstrap values. A failure
// in Phase 2 or 3 panics (§4.11: "a failure in phase 2 or 3 is fatal");
// phases 4-6 degrade gracefully by logging and continuing rather than
// stopping the boot.
func Run(info *limine.BootInfo, p Params) *Kernel {
	k := &Kernel{}

	phase1(p.KernelStackTop)
	phase2(info)
	phase3(k, info, p)
	phase4(k, p)
	phase5(k, info, p)
	phase6(k)

	return k
}

// Phase 1: descriptor/interrupt tables. No serial port is configured here.
func phase1(kernelStackTop uintptr) {
	logPhase("phase 1: descriptor tables")
	gdtInitFn(kernelStackTop)
	idtInitFn()
	logDone("phase 1")
}

// Phase 2: validate the bootloader hand-off. Missing memory map or HHDM
// offset is fatal per §4.11.
func phase2(info *limine.BootInfo) {
	logPhase("phase 2: bootloader hand-off")

	kfmt.Assert(info != nil, logModule, "no bootloader response payload")
	kfmt.Assert(len(info.MemoryMap) > 0, logModule, "bootloader did not report a memory map")
	kfmt.Assert(info.HasHHDM, logModule, "bootloader did not report an HHDM offset")

	if info.Framebuffer == nil {
		kfmt.Printf("[%s] no framebuffer reported; console disabled\n", logModule)
	}

	logDone("phase 2")
}

// Phase 3: physical/virtual memory management.
func phase3(k *Kernel, info *limine.BootInfo, p Params) {
	logPhase("phase 3: memory management")

	regions := make([]pmm.Region, 0, len(info.MemoryMap))
	for _, e := range info.MemoryMap {
		if e.Type == limine.MemUsable {
			regions = append(regions, pmm.Region{Start: mem.PhysAddr(e.Base), Length: e.Length})
		}
	}
	if err := k.PFA.Init(info.HHDMOffset, regions); err != nil {
		kfmt.Panic(err)
	}

	k.Mapper.Init(info.HHDMOffset, p.InitialPML4)

	heapPages := p.HeapPages
	if heapPages <= 0 {
		heapPages = defaultHeapPages
	}
	heapBase, err := k.reserveHeapPages(heapPages)
	if err != nil {
		kfmt.Panic(err)
	}
	k.Heap.Init(uintptr(heapBase), uintptr(mem.Size(heapPages)*mem.PageSize))

	k.Cow.Init()
	k.Demand.Init(orDefault(p.LRUCapacity, 64))
	k.Mmap.Init(mem.VirtAddr(0x0000_1000_0000_0000), mem.VirtAddr(0x0000_2000_0000_0000))
	k.Swap.Init(orDefault(p.SwapSlots, 256))
	k.Protect.Init()

	k.Inventory = buildInventory(info.MemoryMap)

	k.MemStats.SetTotalPhysical(k.PFA.TotalPages() * uint64(mem.PageSize))
	k.MemStats.SetUsedPhysical(k.PFA.UsedPages() * uint64(mem.PageSize))
	k.MemStats.SetTotalHeap(uint64(heapPages) * uint64(mem.PageSize))

	k.Crashes.Init()

	logDone("phase 3")
}

// heapVirtBaseFn returns the fixed virtual base the kernel heap is mapped
// at. It is a package-level variable, not a constant, so tests can redirect
// it at a virtual range the test process can actually dereference — on real
// hardware this address only becomes live once Map below installs the page
// table entries backing it, something no unit test can rely on the MMU to
// do.
var heapVirtBaseFn = func() mem.VirtAddr { return mem.VirtAddr(0xFFFF_8000_1000_0000) }

// reserveHeapPages allocates n physical frames and maps them contiguously
// starting at heapVirtBaseFn()+k.heapOffset, returning the base virtual
// address of the newly mapped range and advancing k.heapOffset past it so a
// later call (ExtendHeap) never remaps the same range.
func (k *Kernel) reserveHeapPages(n int) (mem.VirtAddr, *kernel.Error) {
	base := heapVirtBaseFn() + mem.VirtAddr(k.heapOffset)

	for i := 0; i < n; i++ {
		phys, err := k.PFA.AllocFrame()
		if err != nil {
			return 0, err
		}
		virt := base + mem.VirtAddr(uint64(i)*uint64(mem.PageSize))
		allocFn := func() (mem.PhysAddr, *kernel.Error) { return k.PFA.AllocFrame() }
		if err := k.Mapper.Map(virt, phys, vmm.FlagPresent|vmm.FlagRW, allocFn); err != nil {
			return 0, err
		}
	}
	k.heapOffset += uint64(n) * uint64(mem.PageSize)
	return base, nil
}

// ExtendHeap grows the heap by n additional frames, mapped immediately
// after the heap's virtual range. This answers §9's Open Question about the
// fixed 3-page default: rather than leaving later unbounded allocations to
// fail, callers that observe heap exhaustion can call this to grow it.
func (k *Kernel) ExtendHeap(n int) *kernel.Error {
	extra, err := k.reserveHeapPages(n)
	if err != nil {
		return err
	}
	k.Heap.Extend(uintptr(extra), uintptr(mem.Size(n)*mem.PageSize))
	k.MemStats.SetTotalHeap(k.MemStats.TotalHeap() + uint64(n)*uint64(mem.PageSize))
	return nil
}

func buildInventory(entries []limine.MemoryMapEntry) []Region {
	out := make([]Region, len(entries))
	for i, e := range entries {
		out[i] = Region{Base: e.Base, Length: e.Length, Type: e.Type}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Phase 4: line editor and keyboard bridge. No timer IRQ handler is
// registered here or in Phase 1; the IDT keeps no tick counter.
func phase4(k *Kernel, p Params) {
	logPhase("phase 4: input devices")

	k.LineEditor.Init(p.Console, &k.History, nil)
	k.Keyboard.Init(&k.LineEditor)
	hal.ActiveKeyboard = &k.Keyboard

	logDone("phase 4")
}

// Phase 5: command line, history, shell, scheduler, process manager,
// process groups, sampler, syscall bindings and MSR setup, in that order.
// The line editor is set up in Phase 4; no timer bridge or power
// controller is started. (§4.11: "no subsystem in Phase 5 may allocate
// from Phase 3's heap during Phase 3" — true by construction, since Phase 5
// runs strictly after Phase 3 returns).
func phase5(k *Kernel, info *limine.BootInfo, p Params) {
	logPhase("phase 5: scheduling and shell")

	k.CmdLine = limine.ParseCmdLine(info.CmdLine)

	k.History.Init()
	k.Shell.Init(p.Console)
	hal.ActiveShell = &k.Shell

	k.Scheduler.Init(orDefault(p.MaxTasks, 256))
	k.Procs.Init(&k.Scheduler, p.StackRegionStart, p.StackGuardGap)
	k.Groups.Init()

	k.Sampler.Init(1024, 1)

	syscall.BindMemoryManager(
		func(addr, length uint64, prot, flags uint32) (uint64, *kernel.Error) {
			va, err := k.Mmap.Mmap(mem.VirtAddr(addr), mem.Size(length), services.Prot(prot), services.MmapFlags(flags))
			return uint64(va), err
		},
		func(addr, length uint64) *kernel.Error {
			return k.Mmap.Munmap(mem.VirtAddr(addr), mem.Size(length))
		},
	)
	syscall.BindProcessExit(func(code int64) {
		if t := k.Scheduler.Current(); t != nil {
			k.Procs.ExitProcess(t, int(code))
		}
	})

	syscallInitFn(p.SyscallEntryAddr, p.KernelCodeSelector, p.UserCodeSelector)

	logDone("phase 5")
}

// Phase 6: seed demonstration tasks and print a banner.
func phase6(k *Kernel) {
	logPhase("phase 6: demonstration tasks")

	if k.CmdLine.ConsoleLogo {
		kfmt.Printf("FangaOS booted: %d pages total, %d used, heap %d KiB\n",
			k.PFA.TotalPages(), k.PFA.UsedPages(), k.MemStats.TotalHeap()/1024)
	}

	idleEntry := uintptr(0)
	if _, err := k.Procs.CreateProcess(idleEntry, 16*mem.Kb, k.Mapper.PML4Phys(), task.Idle, "idle"); err != nil {
		kfmt.Printf("[%s] failed to seed idle task: %s\n", logModule, err.Error())
	}

	k.Shell.Start()

	logDone("phase 6")
}
