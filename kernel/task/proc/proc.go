// Package proc implements process lifecycle on top of the scheduler:
// create, fork and exit. It owns a simple linear allocator for kernel
// stack virtual addresses, the same bump-allocation discipline
// kernel/mem/services.MmapManager uses for its own address placement.
package proc

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
	"github.com/ismobaga/fangaos-sub000/kernel/task/sched"
)

// Manager creates and tears down processes against a scheduler, handing out
// kernel stack virtual addresses from a simple bump allocator.
type Manager struct {
	scheduler *sched.Scheduler

	stackRegionStart mem.VirtAddr
	nextStackAddr    mem.VirtAddr
	stackGuardGap    mem.Size
}

// Init binds the manager to scheduler and reserves [stackRegionStart, ...)
// for kernel stacks, each separated by guardGap bytes of unmapped space
// (intended to back a guard page against stack overflow).
func (m *Manager) Init(scheduler *sched.Scheduler, stackRegionStart mem.VirtAddr, guardGap mem.Size) {
	m.scheduler = scheduler
	m.stackRegionStart = stackRegionStart
	m.nextStackAddr = stackRegionStart
	m.stackGuardGap = guardGap
}

func (m *Manager) allocStackVA(size mem.Size) mem.VirtAddr {
	addr := m.nextStackAddr
	m.nextStackAddr = addr + mem.VirtAddr(size) + mem.VirtAddr(m.stackGuardGap)
	return addr
}

// CreateProcess allocates a kernel stack VA, builds a TCB for entry running
// against pageTable at the given priority, and adds it to the scheduler.
func (m *Manager) CreateProcess(entry uintptr, stackSize mem.Size, pageTable mem.PhysAddr, priority task.Priority, name string) (*task.TCB, *kernel.Error) {
	stackBase := m.allocStackVA(stackSize)

	t := &task.TCB{
		Priority:        priority,
		KernelStackBase: uintptr(stackBase),
		KernelStackSize: uintptr(stackSize),
		PageTableRoot:   pageTable,
	}
	t.Name.SetName(name)
	t.Context.RIP = uint64(entry)
	t.Context.RSP = uint64(stackBase) + uint64(stackSize)

	id, err := m.scheduler.AddTask(t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// ForkProcess duplicates parent's TCB and context into a new task: the
// child gets its own kernel stack VA, return value 0 in place of the
// parent's rax (the fork-return convention), and "_child" appended to the
// parent's name.
func (m *Manager) ForkProcess(parent *task.TCB) (*task.TCB, *kernel.Error) {
	child := *parent
	child.Next = nil

	stackBase := m.allocStackVA(mem.Size(parent.KernelStackSize))
	child.KernelStackBase = uintptr(stackBase)
	child.Context.RAX = 0

	childName := parent.Name.String() + "_child"
	child.Name.SetName(childName)

	id, err := m.scheduler.AddTask(&child)
	if err != nil {
		return nil, err
	}
	child.ID = id
	return &child, nil
}

// ExitProcess terminates pid via the scheduler with the given exit code.
// Resource reclamation beyond the scheduler's task-table slot is left to
// callers (filesystem/IPC cleanup lives above this layer).
func (m *Manager) ExitProcess(t *task.TCB, exitCode int) {
	m.scheduler.Terminate(t, exitCode)
}
