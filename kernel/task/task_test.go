package task

import "testing"

func TestNameSetAndString(t *testing.T) {
	var n Name
	n.SetName("init")
	if got := n.String(); got != "init" {
		t.Fatalf("expected %q; got %q", "init", got)
	}
}

func TestNameTruncates(t *testing.T) {
	var n Name
	long := "this-name-is-definitely-longer-than-32-bytes-total"
	n.SetName(long)
	if got := n.String(); got != long[:len(n)] {
		t.Fatalf("expected truncation to %d bytes; got %q (len %d)", len(n), got, len(got))
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Ready: "ready", Running: "running", Blocked: "blocked", Terminated: "terminated"}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("state %d: expected %q; got %q", state, want, got)
		}
	}
}

func TestPriorityString(t *testing.T) {
	cases := map[Priority]string{Idle: "idle", Low: "low", Normal: "normal", High: "high"}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("priority %d: expected %q; got %q", p, want, got)
		}
	}
}

func TestIsRunnable(t *testing.T) {
	tcb := &TCB{State: Ready}
	if !tcb.IsRunnable() {
		t.Fatal("a Ready task must be runnable")
	}
	tcb.State = Running
	if tcb.IsRunnable() {
		t.Fatal("a Running task must not be runnable")
	}
}
