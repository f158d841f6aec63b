package monitor

import (
	"sync"

	"github.com/halcyard/motiongate/internal/gate"
)

// History is a bounded ring buffer of published snapshots. The poller's
// snapshot hook writes from the polling goroutine while HTTP handlers read
// concurrently, so access is serialised with a mutex.
type History struct {
	mu       sync.Mutex
	snaps    []gate.Snapshot
	capacity int
	head     int // Points to next write position
	size     int // Current number of snapshots stored
}

// NewHistory creates a snapshot ring with the specified capacity. The
// default holds one minute of 25Hz polling.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1500 // Default
	}
	return &History{
		snaps:    make([]gate.Snapshot, capacity),
		capacity: capacity,
		head:     0,
		size:     0,
	}
}

// Add stores a new snapshot, overwriting the oldest if at capacity.
func (h *History) Add(snap gate.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snaps[h.head] = snap
	h.head = (h.head + 1) % h.capacity
	if h.size < h.capacity {
		h.size++
	}
}

// Recent returns up to n of the newest snapshots in chronological order
// (oldest first). n < 1 or n > size returns everything stored.
func (h *History) Recent(n int) []gate.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n < 1 || n > h.size {
		n = h.size
	}
	out := make([]gate.Snapshot, 0, n)
	for i := n; i >= 1; i-- {
		// head-1 is most recent, head-2 is one before, etc.
		idx := (h.head - i + h.capacity) % h.capacity
		out = append(out, h.snaps[idx])
	}
	return out
}

// Size returns the current number of snapshots in history.
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Capacity returns the maximum number of snapshots that can be stored.
func (h *History) Capacity() int {
	return h.capacity
}

// Clear removes all snapshots from history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.snaps {
		h.snaps[i] = gate.Snapshot{}
	}
	h.head = 0
	h.size = 0
}
