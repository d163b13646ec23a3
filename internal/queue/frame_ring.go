// Package queue provides a bounded frame queue for fire-and-forget dispatch.
package queue

import (
	"sync"
	"sync/atomic"
)

// FrameRing is a fixed-capacity FIFO of encoded wire frames with a drop-oldest
// overflow policy: pushing into a full ring evicts the oldest frame instead of
// blocking or growing. This bounds the memory held on behalf of a producer
// that outruns the consumer.
//
// FrameRing is safe for concurrent use by multiple producers and one consumer.
type FrameRing struct {
	mu       sync.Mutex
	frames   [][]byte
	head     int
	size     int
	dropped  atomic.Uint64
	notifyCh chan struct{}
}

// NewFrameRing creates a FrameRing holding at most capacity frames.
// A capacity below 1 is raised to 1.
func NewFrameRing(capacity int) *FrameRing {
	if capacity < 1 {
		capacity = 1
	}

	return &FrameRing{
		frames:   make([][]byte, capacity),
		notifyCh: make(chan struct{}, 1),
	}
}

// Push appends frame to the tail of the ring. When the ring is full, the
// oldest frame is evicted to make room; Push never blocks.
//
// It returns true if an older frame was dropped to admit this one.
func (r *FrameRing) Push(frame []byte) bool {
	r.mu.Lock()

	evicted := false
	if r.size == len(r.frames) {
		// full: overwrite the slot at head and advance it
		r.head = (r.head + 1) % len(r.frames)
		r.size--
		evicted = true
	}

	tail := (r.head + r.size) % len(r.frames)
	r.frames[tail] = frame
	r.size++

	r.mu.Unlock()

	if evicted {
		r.dropped.Add(1)
	}

	// non-blocking wakeup; a pending signal already covers this push
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}

	return evicted
}

// Pop removes and returns the frame at the head of the ring.
// It returns false when the ring is empty.
func (r *FrameRing) Pop() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil, false
	}

	frame := r.frames[r.head]
	r.frames[r.head] = nil
	r.head = (r.head + 1) % len(r.frames)
	r.size--

	return frame, true
}

// Notify returns a channel that receives a signal after frames are pushed.
// The channel has a capacity of one; a single signal may cover several pushes,
// so the consumer should drain the ring with Pop after each wakeup.
func (r *FrameRing) Notify() <-chan struct{} {
	return r.notifyCh
}

// Len returns the number of frames currently queued.
func (r *FrameRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}

// Dropped returns the total number of frames evicted by the drop-oldest policy.
func (r *FrameRing) Dropped() uint64 {
	return r.dropped.Load()
}
