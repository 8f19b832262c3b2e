package pipeline

import "sync"

// RingCapacity is the PCM ring's fixed capacity (spec.md §5: "bounded,
// capacity 64 frames, drop-oldest-on-full policy").
const RingCapacity = 64

// PCMRing is the bounded ring buffer between the audio callback (producer)
// and the STT worker's consumer goroutine (spec.md §4.B step 1). Slots are
// pre-allocated so Push never allocates on the hot path — only a memcpy and
// an index update, matching the teacher's own preference for a single short
// critical section around a shared resource rather than a hand-rolled
// lock-free structure (see pkg/orchestrator/managed_stream.go's ms.mu
// discipline in the teacher repo this was adapted from).
type PCMRing struct {
	mu       sync.Mutex
	slots    [RingCapacity]PcmFrame
	head     int // next write position
	tail     int // next read position
	size     int
	overflow uint64 // count of frames dropped due to a full ring
}

func NewPCMRing() *PCMRing {
	return &PCMRing{}
}

// Push copies frame into the next slot. Never blocks. On overflow, the
// oldest unread frame is dropped (newest wins) and the overflow counter is
// incremented.
func (r *PCMRing) Push(frame *PcmFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[r.head] = *frame // single copy, no allocation
	r.head = (r.head + 1) % RingCapacity

	if r.size == RingCapacity {
		// full: the write above just overwrote the oldest slot; advance
		// tail to match and count the drop.
		r.tail = (r.tail + 1) % RingCapacity
		r.overflow++
		return
	}
	r.size++
}

// Pop removes and returns the oldest frame, or ok=false if the ring is
// empty. The STT worker's consumer calls this with a short poll timeout
// (spec.md §5: "blocks with a short timeout (≤100ms)"); PCMRing itself is
// non-blocking, the timeout is implemented by the caller's poll loop.
func (r *PCMRing) Pop() (PcmFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return PcmFrame{}, false
	}
	frame := r.slots[r.tail]
	r.tail = (r.tail + 1) % RingCapacity
	r.size--
	return frame, true
}

// Len reports the number of frames currently queued. Always ≤ RingCapacity
// (spec.md §8 quantified invariant).
func (r *PCMRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Overflow reports the cumulative number of frames dropped for being
// pushed into a full ring.
func (r *PCMRing) Overflow() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflow
}
