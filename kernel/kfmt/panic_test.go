package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ismobaga/fangaos-sub000/kernel"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = func() {}
		outputSink = nil
	}()

	var cpuHaltCalled bool
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	specs := []struct {
		name string
		in   interface{}
		exp  string
	}{
		{
			"with *kernel.Error",
			&kernel.Error{Module: "test", Message: "panic test"},
			"\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"with error",
			errors.New("go error"),
			"\n-----------------------------------\n[rt] unrecoverable error: go error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"with string",
			"string error",
			"\n-----------------------------------\n[rt] unrecoverable error: string error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"without error",
			nil,
			"\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			cpuHaltCalled = false
			var buf bytes.Buffer
			SetOutputSink(&buf)

			Panic(spec.in)

			if got := buf.String(); got != spec.exp {
				t.Fatalf("expected to get:\n%q\ngot:\n%q", spec.exp, got)
			}

			if !cpuHaltCalled {
				t.Fatal("expected cpu.Halt() to be called by Panic")
			}
		})
	}
}

func TestAssert(t *testing.T) {
	defer func() {
		cpuHaltFn = func() {}
		outputSink = nil
	}()

	var cpuHaltCalled bool
	cpuHaltFn = func() { cpuHaltCalled = true }

	var buf bytes.Buffer
	SetOutputSink(&buf)

	Assert(true, "test", "should not fire")
	if cpuHaltCalled {
		t.Fatal("Assert with a true condition must not halt")
	}

	Assert(false, "test", "should fire")
	if !cpuHaltCalled {
		t.Fatal("Assert with a false condition must halt")
	}
}
