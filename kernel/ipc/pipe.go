package ipc

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

// DefaultPipeCapacity is the ring buffer size used when a pipe's capacity
// is not given explicitly.
const DefaultPipeCapacity = 4096

var errBrokenPipe = &kernel.Error{Module: "ipc", Message: "write to a pipe with no readers"}

// Pipe is a bounded ring buffer connecting writers to readers. Partial
// writes are allowed: Write fills as much of the buffer as there is room
// for and reports how many bytes it actually wrote.
type Pipe struct {
	lock ksync.Spinlock

	buf        []byte
	start, len int

	readers, writers int
	readWaiters       waiterQueue
	writeWaiters      waiterQueue
}

// Init prepares a pipe with the given ring buffer capacity and starts it
// with one reader and one writer (the two ends of a freshly created pipe).
func (p *Pipe) Init(capacity int) {
	p.buf = make([]byte, capacity)
	p.start, p.len = 0, 0
	p.readers, p.writers = 1, 1
}

// AddReader/AddWriter and RemoveReader/RemoveWriter track how many open
// file descriptors reference each end, mirroring dup/close at the fd layer.
func (p *Pipe) AddReader() { p.lock.Acquire(); p.readers++; p.lock.Release() }
func (p *Pipe) AddWriter() { p.lock.Acquire(); p.writers++; p.lock.Release() }

func (p *Pipe) RemoveReader() {
	p.lock.Acquire()
	defer p.lock.Release()
	p.readers--
}

func (p *Pipe) RemoveWriter() {
	p.lock.Acquire()
	defer p.lock.Release()
	p.writers--
}

func (p *Pipe) capacity() int { return len(p.buf) }

// Write appends as much of data as fits into the ring buffer, returning
// the number of bytes actually written. If no readers remain, it fails
// with a broken-pipe error instead of writing anything. woken lists
// readers to unblock because data became available.
func (p *Pipe) Write(tid task.ID, data []byte) (n int, woken []task.ID, err *kernel.Error) {
	p.lock.Acquire()
	defer p.lock.Release()

	if p.readers == 0 {
		return 0, nil, errBrokenPipe
	}

	free := p.capacity() - p.len
	if free == 0 {
		p.writeWaiters.pushBack(tid)
		return 0, nil, nil
	}

	n = len(data)
	if n > free {
		n = free
	}
	writePos := (p.start + p.len) % p.capacity()
	for i := 0; i < n; i++ {
		p.buf[(writePos+i)%p.capacity()] = data[i]
	}
	p.len += n

	return n, p.readWaiters.drainAll(), nil
}

// Read copies up to len(dst) bytes out of the buffer into dst, returning
// the number of bytes read. A read of 0 with blocked=false means EOF: the
// pipe is empty and has no writers left. woken lists writers to
// unblock because room became available.
func (p *Pipe) Read(tid task.ID, dst []byte) (n int, woken []task.ID, blocked bool) {
	p.lock.Acquire()
	defer p.lock.Release()

	if p.len == 0 {
		if p.writers == 0 {
			return 0, nil, false // EOF, not a block
		}
		p.readWaiters.pushBack(tid)
		return 0, nil, true
	}

	n = len(dst)
	if n > p.len {
		n = p.len
	}
	for i := 0; i < n; i++ {
		dst[i] = p.buf[(p.start+i)%p.capacity()]
	}
	p.start = (p.start + n) % p.capacity()
	p.len -= n

	return n, p.writeWaiters.drainAll(), false
}
