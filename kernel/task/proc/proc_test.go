package proc

import (
	"testing"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
	"github.com/ismobaga/fangaos-sub000/kernel/task/sched"
)

func newManager(t *testing.T) (*Manager, *sched.Scheduler) {
	t.Helper()
	var s sched.Scheduler
	s.Init(8)

	var m Manager
	m.Init(&s, mem.VirtAddr(0xffff800000000000), mem.PageSize)
	return &m, &s
}

func TestCreateProcessAddsRunnableTask(t *testing.T) {
	m, s := newManager(t)

	tcb, err := m.CreateProcess(0x1000, 16*mem.PageSize, mem.PhysAddr(0x2000), task.Normal, "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tcb.State != task.Ready {
		t.Fatalf("expected new process to be Ready; got %v", tcb.State)
	}
	if tcb.Context.RIP != 0x1000 {
		t.Fatalf("expected RIP set to entry point; got %#x", tcb.Context.RIP)
	}
	if _, ok := s.Lookup(tcb.ID); !ok {
		t.Fatal("expected the scheduler to know about the new task")
	}
}

func TestCreateProcessStackAddressesDoNotOverlap(t *testing.T) {
	m, _ := newManager(t)

	first, _ := m.CreateProcess(0x1000, 4*mem.PageSize, 0, task.Normal, "a")
	second, _ := m.CreateProcess(0x2000, 4*mem.PageSize, 0, task.Normal, "b")

	if second.KernelStackBase < first.KernelStackBase+first.KernelStackSize {
		t.Fatalf("expected non-overlapping stacks; first=[%#x,+%#x) second=%#x",
			first.KernelStackBase, first.KernelStackSize, second.KernelStackBase)
	}
}

func TestForkProcessClonesContextAndZeroesReturnValue(t *testing.T) {
	m, _ := newManager(t)

	parent, _ := m.CreateProcess(0x1000, 4*mem.PageSize, mem.PhysAddr(0x3000), task.Normal, "parent")
	parent.Context.RAX = 42

	child, err := m.ForkProcess(parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if child.ID == parent.ID {
		t.Fatal("expected the child to have a distinct task id")
	}
	if child.Context.RAX != 0 {
		t.Fatalf("expected the child's rax to be zeroed; got %d", child.Context.RAX)
	}
	if child.Context.RIP != parent.Context.RIP {
		t.Fatalf("expected the child to inherit the parent's instruction pointer")
	}
	if child.PageTableRoot != parent.PageTableRoot {
		t.Fatal("expected the child to inherit the parent's page table root")
	}
	if child.KernelStackBase == parent.KernelStackBase {
		t.Fatal("expected the child to get its own kernel stack")
	}
	if got, want := child.Name.String(), "parent_child"; got != want {
		t.Fatalf("expected child name %q; got %q", want, got)
	}
}

func TestExitProcessTerminatesViaScheduler(t *testing.T) {
	m, s := newManager(t)

	tcb, _ := m.CreateProcess(0x1000, 4*mem.PageSize, 0, task.Normal, "a")
	s.Schedule()

	m.ExitProcess(tcb, 3)
	if tcb.State != task.Terminated {
		t.Fatalf("expected Terminated; got %v", tcb.State)
	}
	if tcb.ExitCode != 3 {
		t.Fatalf("expected exit code 3; got %d", tcb.ExitCode)
	}
}

func TestCreateProcessTaskTableFull(t *testing.T) {
	var s sched.Scheduler
	s.Init(1)
	var m Manager
	m.Init(&s, mem.VirtAddr(0x1000), mem.PageSize)

	if _, err := m.CreateProcess(0x1000, mem.PageSize, 0, task.Normal, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.CreateProcess(0x1000, mem.PageSize, 0, task.Normal, "b"); err == nil {
		t.Fatal("expected an error once the task table is full")
	}
}
