package ipc

import "testing"

func TestSemaphoreWaitDecrementsValue(t *testing.T) {
	var s Semaphore
	s.Init(2)

	if !s.Wait(1) {
		t.Fatal("expected the first wait to succeed immediately")
	}
	if !s.Wait(2) {
		t.Fatal("expected the second wait to succeed immediately")
	}
	if s.Wait(3) {
		t.Fatal("expected the third wait to block")
	}
	if got := s.Value(); got != 0 {
		t.Fatalf("expected value 0; got %d", got)
	}
}

func TestSemaphoreSignalWakesWaiterBeforeIncrementing(t *testing.T) {
	var s Semaphore
	s.Init(0)
	s.Wait(1) // blocks, enqueued

	woken, ok := s.Signal()
	if !ok || woken != 1 {
		t.Fatalf("expected task 1 to be woken; got woken=%d ok=%v", woken, ok)
	}
	if got := s.Value(); got != 0 {
		t.Fatalf("expected value to remain 0 after handing off to a waiter; got %d", got)
	}
}

func TestSemaphoreSignalWithNoWaitersIncrements(t *testing.T) {
	var s Semaphore
	s.Init(0)

	if _, ok := s.Signal(); ok {
		t.Fatal("expected no one to be woken")
	}
	if got := s.Value(); got != 1 {
		t.Fatalf("expected value 1; got %d", got)
	}
}
