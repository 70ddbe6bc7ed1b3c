package ipc

import "testing"

func TestMessageQueueSendAndReceiveFIFO(t *testing.T) {
	var q MessageQueue
	q.Init(4)

	q.Send(1, Message{Type: 1, Body: []byte("a")})
	q.Send(1, Message{Type: 2, Body: []byte("b")})

	msg, _, _, err := q.Receive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(msg.Body) != "a" {
		t.Fatalf("expected FIFO order, first message %q; got %q", "a", msg.Body)
	}
}

func TestMessageQueueReceiveEmptyFails(t *testing.T) {
	var q MessageQueue
	q.Init(4)

	if _, _, _, err := q.Receive(); err == nil {
		t.Fatal("expected an error receiving from an empty queue")
	}
}

func TestMessageQueueSendOverCapacityBlocks(t *testing.T) {
	var q MessageQueue
	q.Init(1)

	if blocked, err := q.Send(1, Message{Body: []byte("a")}); err != nil || blocked {
		t.Fatalf("expected the first send to succeed immediately; blocked=%v err=%v", blocked, err)
	}
	blocked, err := q.Send(2, Message{Body: []byte("b")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !blocked {
		t.Fatal("expected the second send to block once the queue is at capacity")
	}
}

func TestMessageQueueReceiveWakesBlockedSender(t *testing.T) {
	var q MessageQueue
	q.Init(1)

	q.Send(1, Message{Body: []byte("a")})
	q.Send(2, Message{Body: []byte("b")}) // blocks

	_, woken, hasWoken, err := q.Receive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasWoken || woken != 2 {
		t.Fatalf("expected sender 2 to be woken; got woken=%d hasWoken=%v", woken, hasWoken)
	}
}

func TestMessageQueueRejectsOversizedMessage(t *testing.T) {
	var q MessageQueue
	q.Init(4)

	big := make([]byte, MaxMessageSize+1)
	if _, err := q.Send(1, Message{Body: big}); err == nil {
		t.Fatal("expected an error sending a message over the size limit")
	}
}
