package kfmt

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic prints err (if not nil) to the console and halts the CPU. Panic
// never returns. This is the only recovery path for a CPU exception taken
// outside of a task context (§7): there is no kernel-level recovery, so the
// machine stops.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}

// Assert panics with msg if cond is false. It is used at boot for
// invariants the orchestrator cannot proceed without (§4.11 phase 2/3).
func Assert(cond bool, module, msg string) {
	if !cond {
		Panic(&kernel.Error{Module: module, Message: msg})
	}
}
