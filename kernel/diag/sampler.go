package diag

import ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"

// Sample is one tick's worth of profiling data: just the running task id,
// deliberately thin per SPEC_FULL.md's "full symbolization is out of
// scope" — a fuller sampler (RIP/RSP/per-core, as in
// original_source/profiling/sampler.rs's ProfileSample) is left to the
// external shell collaborator that would consume this ring.
type Sample struct {
	Timestamp uint64
	TaskID    uint64
}

// SamplerState mirrors sampler.rs's ProfilerState.
type SamplerState uint8

const (
	SamplerStopped SamplerState = iota
	SamplerRunning
	SamplerPaused
)

// Sampler is an opt-in tick sampler: Tick is called from the timer IRQ path
// (already interrupt-context, so it must not block) and records the
// currently running task id into a bounded ring every SampleEvery ticks.
type Sampler struct {
	lock ksync.Spinlock

	state SamplerState

	// SampleEvery selects a subset of timer interrupts to record;
	// SampleEvery == 1 samples every tick.
	SampleEvery uint64

	ring     []Sample
	capacity int
	next     int
	count    int

	seenTicks uint64
}

// Init prepares a ring holding up to capacity samples, sampling every
// sampleEvery ticks once started.
func (s *Sampler) Init(capacity int, sampleEvery uint64) {
	if sampleEvery == 0 {
		sampleEvery = 1
	}
	s.ring = make([]Sample, capacity)
	s.capacity = capacity
	s.SampleEvery = sampleEvery
	s.state = SamplerStopped
}

// Start begins recording samples, clearing anything previously collected.
func (s *Sampler) Start() {
	s.lock.Acquire()
	defer s.lock.Release()

	s.state = SamplerRunning
	s.next = 0
	s.count = 0
	s.seenTicks = 0
}

// Stop halts recording without clearing the ring.
func (s *Sampler) Stop() {
	s.lock.Acquire()
	s.state = SamplerStopped
	s.lock.Release()
}

// Pause and Resume toggle between Running and Paused without clearing.
func (s *Sampler) Pause() {
	s.lock.Acquire()
	if s.state == SamplerRunning {
		s.state = SamplerPaused
	}
	s.lock.Release()
}

func (s *Sampler) Resume() {
	s.lock.Acquire()
	if s.state == SamplerPaused {
		s.state = SamplerRunning
	}
	s.lock.Release()
}

// State returns the sampler's current run state.
func (s *Sampler) State() SamplerState {
	s.lock.Acquire()
	defer s.lock.Release()
	return s.state
}

// Tick is called on every timer interrupt; it records a sample only while
// running and only on every SampleEvery'th call.
func (s *Sampler) Tick(timestamp uint64, runningTaskID uint64) {
	s.lock.Acquire()
	defer s.lock.Release()

	if s.state != SamplerRunning {
		return
	}
	s.seenTicks++
	if s.seenTicks%s.SampleEvery != 0 {
		return
	}

	s.ring[s.next] = Sample{Timestamp: timestamp, TaskID: runningTaskID}
	s.next = (s.next + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
}

// Snapshot returns every collected sample in recording order (oldest
// first), for the external shell to dump.
func (s *Sampler) Snapshot() []Sample {
	s.lock.Acquire()
	defer s.lock.Release()

	out := make([]Sample, s.count)
	start := (s.next - s.count + s.capacity) % s.capacity
	for i := 0; i < s.count; i++ {
		out[i] = s.ring[(start+i)%s.capacity]
	}
	return out
}
