// Package pipeline drives the classification loop: one goroutine polls the
// telemetry source at a fixed cadence, folds each sample through the motion
// tracker, and publishes the resulting snapshot to the gate cell. Nothing
// else writes classifier state.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/halcyard/motiongate/internal/gate"
	"github.com/halcyard/motiongate/internal/motion"
	"github.com/halcyard/motiongate/internal/telemetry"
)

// Config holds the poller's runtime parameters.
type Config struct {
	// Interval is the polling cadence. The telemetry region updates at
	// roughly 25Hz, so the default is 40ms.
	Interval time.Duration

	// LogEvery is how often accumulated anomalies (read failures, stale
	// ticks, guarded steps) are reported. Zero disables the report.
	LogEvery time.Duration
}

// DefaultConfig returns the standard poller cadence.
func DefaultConfig() Config {
	return Config{
		Interval: 40 * time.Millisecond,
		LogEvery: 10 * time.Second,
	}
}

// Poller owns a tracker and drives it off a ticker until the context is
// cancelled. Snapshot and transition hooks run on the polling goroutine and
// must return quickly.
type Poller struct {
	cfg     Config
	src     telemetry.Source
	tracker *motion.Tracker
	cell    *gate.Cell

	onSnapshot   []func(gate.Snapshot)
	onTransition []func(from, to motion.Movement, at time.Time)

	lastStats motion.TrackerStats
}

// NewPoller wires a poller over the given source, tracker and publish cell.
func NewPoller(cfg Config, src telemetry.Source, tracker *motion.Tracker, cell *gate.Cell) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 40 * time.Millisecond
	}
	return &Poller{
		cfg:     cfg,
		src:     src,
		tracker: tracker,
		cell:    cell,
	}
}

// OnSnapshot registers a hook invoked with every published snapshot.
func (p *Poller) OnSnapshot(fn func(gate.Snapshot)) {
	p.onSnapshot = append(p.onSnapshot, fn)
}

// OnTransition registers a hook invoked whenever the stable state changes.
func (p *Poller) OnTransition(fn func(from, to motion.Movement, at time.Time)) {
	p.onTransition = append(p.onTransition, fn)
}

// Run polls until ctx is cancelled. It always returns nil after a clean
// shutdown; the context's cause is the caller's to inspect.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if p.cfg.LogEvery > 0 {
		statsTicker := time.NewTicker(p.cfg.LogEvery)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}

	log.Printf("[Pipeline] polling %s every %v", p.src.Name(), p.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Pipeline] stopped")
			return nil
		case now := <-ticker.C:
			p.Step(now)
		case <-statsC:
			p.logAnomalies()
		}
	}
}

// Step runs one poll cycle at the given time. Exposed so tests and the
// probe tool can drive the poller without a ticker.
func (p *Poller) Step(now time.Time) gate.Snapshot {
	prev := p.tracker.State()
	state := p.tracker.UpdateWith(p.src, now)

	spd, _ := p.tracker.LastSpeed()
	snap := gate.Snapshot{
		State:          state,
		Horizontal:     spd.Horizontal,
		VZ:             spd.VZ,
		Airborne:       p.tracker.IsAirborne(),
		LandedRecently: p.tracker.LandedRecently(now),
		At:             now,
	}
	p.cell.Publish(snap)

	for _, fn := range p.onSnapshot {
		fn(snap)
	}
	if state != prev {
		log.Printf("[Pipeline] state %s -> %s (h=%.0f vz=%.0f)", prev, state, spd.Horizontal, spd.VZ)
		for _, fn := range p.onTransition {
			fn(prev, state, now)
		}
	}
	return snap
}

// logAnomalies reports tracker anomalies accumulated since the last report.
func (p *Poller) logAnomalies() {
	s := p.tracker.Stats()
	failures := s.Failures - p.lastStats.Failures
	stale := s.StaleTicks - p.lastStats.StaleTicks
	guarded := s.Guarded - p.lastStats.Guarded
	p.lastStats = s

	if failures == 0 && stale == 0 && guarded == 0 {
		return
	}
	log.Printf("[Pipeline] anomalies in last %v: %d read failures, %d stale ticks, %d guarded steps (%d reads total)",
		p.cfg.LogEvery, failures, stale, guarded, s.Reads)
}
