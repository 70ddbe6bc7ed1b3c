package ipc

import "testing"

func TestMutexTryLockAndUnlock(t *testing.T) {
	var m Mutex

	if !m.TryLock(1) {
		t.Fatal("expected the first lock attempt to succeed")
	}
	if m.TryLock(2) {
		t.Fatal("expected a second locker to be enqueued, not granted the lock")
	}

	woken, ok, err := m.Unlock(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || woken != 2 {
		t.Fatalf("expected ownership to transfer to task 2; got woken=%d ok=%v", woken, ok)
	}
	if !m.IsLocked() {
		t.Fatal("expected the mutex to remain locked, now owned by task 2")
	}
}

func TestMutexUnlockByNonOwnerFails(t *testing.T) {
	var m Mutex
	m.TryLock(1)

	if _, _, err := m.Unlock(2); err == nil {
		t.Fatal("expected an error unlocking a mutex owned by someone else")
	}
}

func TestMutexUnlockWithNoWaitersFreesLock(t *testing.T) {
	var m Mutex
	m.TryLock(1)

	woken, ok, err := m.Unlock(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || woken != 0 {
		t.Fatalf("expected no one to be woken; got woken=%d ok=%v", woken, ok)
	}
	if m.IsLocked() {
		t.Fatal("expected the mutex to be free")
	}
}
