// Package gate holds the consumer side of the pipeline: the snapshot cell
// the polling loop publishes into, and the policy an input executor asks
// before running queued actions.
package gate

import (
	"sync"
	"time"

	"github.com/halcyard/motiongate/internal/motion"
)

// Snapshot is one published view of the classifier: the stable state, the
// speeds behind it, and the two predicates executors gate on. Values are
// immutable once published.
type Snapshot struct {
	State          motion.Movement `json:"state"`
	Horizontal     float32         `json:"horizontal"`
	VZ             float32         `json:"vz"`
	Airborne       bool            `json:"airborne"`
	LandedRecently bool            `json:"landed_recently"`
	At             time.Time       `json:"at"`
}

// Cell is the single cross-goroutine surface of the pipeline: the poller
// publishes a fresh Snapshot after every tick and any number of consumers
// load the latest. Consumers never block the poller for longer than the
// copy under the mutex.
type Cell struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCell returns a Cell preloaded with an Idle snapshot so consumers get a
// sane value before the first poll completes.
func NewCell() *Cell {
	return &Cell{snap: Snapshot{State: motion.MovementIdle}}
}

// Publish replaces the held snapshot.
func (c *Cell) Publish(s Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Load returns the most recently published snapshot.
func (c *Cell) Load() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
