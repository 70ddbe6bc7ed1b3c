package ipc

import (
	"container/list"

	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// MaxMessageSize bounds a single message queue entry.
const MaxMessageSize = 256

var errMessageTooLarge = &kernel.Error{Module: "ipc", Message: "message exceeds the maximum message queue entry size"}
var errQueueEmpty = &kernel.Error{Module: "ipc", Message: "receive from an empty message queue"}

// Message is one queued entry, along with the type tag System V message
// queues key receives on.
type Message struct {
	Type uint64
	Body []byte
}

// MessageQueue is a bounded FIFO of Message; Send enqueues at the tail and
// Receive returns the oldest entry.
type MessageQueue struct {
	lock     ksync.Spinlock
	messages list.List
	capacity int
	waiters  waiterQueue
}

// Init prepares an empty queue holding up to capacity messages.
func (q *MessageQueue) Init(capacity int) {
	q.capacity = capacity
}

// Send enqueues msg. If the queue is already at capacity, tid is enqueued
// as a waiter instead and Send reports blocked=true.
func (q *MessageQueue) Send(tid task.ID, msg Message) (blocked bool, err *kernel.Error) {
	q.lock.Acquire()
	defer q.lock.Release()

	if len(msg.Body) > MaxMessageSize {
		return false, errMessageTooLarge
	}
	if q.messages.Len() >= q.capacity {
		q.waiters.pushBack(tid)
		return true, nil
	}
	q.messages.PushBack(msg)
	return false, nil
}

// Receive pops the oldest message. woken is a sender to unblock now that
// room has opened up, if any was waiting.
func (q *MessageQueue) Receive() (msg Message, woken task.ID, hasWoken bool, err *kernel.Error) {
	q.lock.Acquire()
	defer q.lock.Release()

	e := q.messages.Front()
	if e == nil {
		return Message{}, 0, false, errQueueEmpty
	}
	q.messages.Remove(e)

	woken, hasWoken = q.waiters.popFront()
	return e.Value.(Message), woken, hasWoken, nil
}

// Len returns the number of messages currently queued.
func (q *MessageQueue) Len() int {
	q.lock.Acquire()
	defer q.lock.Release()

	return q.messages.Len()
}
