package services

import (
	"testing"

	"github.com/ismobaga/fangaos-sub000/kernel/mem"
)

func TestCowManagerMarkAndRelease(t *testing.T) {
	var c CowManager
	c.Init()

	phys := mem.PhysAddr(0x1000)

	if c.IsShared(phys) {
		t.Fatal("untracked frame must not be reported as shared")
	}

	if n := c.MarkCoW(phys); n != 1 {
		t.Fatalf("expected count 1 after first mark; got %d", n)
	}
	if c.IsShared(phys) {
		t.Fatal("a single reference must not be shared")
	}

	if n := c.MarkCoW(phys); n != 2 {
		t.Fatalf("expected count 2 after second mark; got %d", n)
	}
	if !c.IsShared(phys) {
		t.Fatal("two references must be shared")
	}

	if last := c.ReleaseCoW(phys); last {
		t.Fatal("releasing one of two references must not report last")
	}
	if c.IsShared(phys) {
		t.Fatal("one remaining reference must not be shared")
	}

	if last := c.ReleaseCoW(phys); !last {
		t.Fatal("releasing the final reference must report last")
	}
	if got := c.RefCount(phys); got != 0 {
		t.Fatalf("expected ref count 0 after last release; got %d", got)
	}
}

func TestCowManagerReleaseUntracked(t *testing.T) {
	var c CowManager
	c.Init()

	if last := c.ReleaseCoW(mem.PhysAddr(0x2000)); !last {
		t.Fatal("releasing an untracked frame must report last")
	}
}
