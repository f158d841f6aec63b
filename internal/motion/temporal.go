package motion

import (
	"fmt"
	"time"

	"github.com/halcyard/motiongate/internal/config"
)

// TemporalConfig holds the windowing, trend and hysteresis parameters for
// the temporal classifier.
type TemporalConfig struct {
	Window      time.Duration // averaging window (default 300ms)
	VoteSamples int           // tail samples in the majority vote (default 5)

	FallAccelGate float32 // vz trend at or below this forces Falling, u/s² (default -350)
	FallAvgVz     float32 // ...but only when avg vz is already below this (default -80)

	GlideLockVzMin float32       // widened glidey band lower edge, |vz| (default 60)
	GlideLockVzMax float32       // widened glidey band upper edge, |vz| (default 170)
	GlideLockDwell time.Duration // lock extension per glidey sample (default 180ms)

	DwellIn  time.Duration // tail evidence a cross-family switch needs (default 120ms)
	DwellOut time.Duration // minimum time between cross-family switches (default 160ms)
}

// DefaultTemporalConfig returns a TemporalConfig loaded from the canonical
// tuning defaults file. Panics if the file cannot be found.
func DefaultTemporalConfig() TemporalConfig {
	return TemporalConfigFromTuning(config.MustLoadDefaultConfig())
}

// TemporalConfigFromTuning builds a TemporalConfig from a loaded TuningConfig.
func TemporalConfigFromTuning(cfg *config.TuningConfig) TemporalConfig {
	return TemporalConfig{
		Window:      cfg.GetWindow(),
		VoteSamples: cfg.GetVoteSamples(),

		FallAccelGate: float32(cfg.GetFallAccelGate()),
		FallAvgVz:     float32(cfg.GetFallAvgVz()),

		GlideLockVzMin: float32(cfg.GetGlideLockVzMin()),
		GlideLockVzMax: float32(cfg.GetGlideLockVzMax()),
		GlideLockDwell: cfg.GetGlideLockDwell(),

		DwellIn:  cfg.GetDwellIn(),
		DwellOut: cfg.GetDwellOut(),
	}
}

// Validate checks if the configuration is valid.
func (c TemporalConfig) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("Window must be positive, got %v", c.Window)
	}
	if c.VoteSamples < 1 {
		return fmt.Errorf("VoteSamples must be at least 1, got %d", c.VoteSamples)
	}
	if c.FallAccelGate >= 0 {
		return fmt.Errorf("FallAccelGate must be negative, got %f", c.FallAccelGate)
	}
	if c.GlideLockVzMin >= c.GlideLockVzMax {
		return fmt.Errorf("GlideLockVzMin (%f) must be below GlideLockVzMax (%f)", c.GlideLockVzMin, c.GlideLockVzMax)
	}
	if c.GlideLockDwell <= 0 {
		return fmt.Errorf("GlideLockDwell must be positive, got %v", c.GlideLockDwell)
	}
	if c.DwellIn <= 0 || c.DwellOut <= 0 {
		return fmt.Errorf("DwellIn and DwellOut must be positive, got %v / %v", c.DwellIn, c.DwellOut)
	}
	return nil
}

type timedSpeed struct {
	at    time.Time
	speed Speed
}

// TemporalClassifier stabilizes the instant classifier's output over a
// sliding window: it averages the buffered speeds, votes over the tail,
// watches the vertical-velocity trend for sudden drops, and runs a
// dwell-based hysteresis so per-sample wobbles never reach consumers.
// Not safe for concurrent use.
type TemporalClassifier struct {
	cfg TemporalConfig
	cls *Classifier

	history          []timedSpeed
	state            Movement
	lastSwitch       time.Time
	glideLockedUntil time.Time
}

// NewTemporalClassifier creates a TemporalClassifier in the Idle state.
// now anchors the hysteresis clock and should be the same time source later
// passed to Update.
func NewTemporalClassifier(cfg TemporalConfig, cls *Classifier, now time.Time) *TemporalClassifier {
	return &TemporalClassifier{
		cfg:              cfg,
		cls:              cls,
		history:          make([]timedSpeed, 0, 16),
		state:            MovementIdle,
		lastSwitch:       now,
		glideLockedUntil: now,
	}
}

// State returns the current stable Movement without updating anything.
func (tc *TemporalClassifier) State() Movement {
	return tc.state
}

// LastSwitch returns the time of the most recent committed state change.
func (tc *TemporalClassifier) LastSwitch() time.Time {
	return tc.lastSwitch
}

// Update folds one Speed into the window and returns the stable state, which
// may lag the instant classification by design. facing applies to the whole
// tail when voting; using the current facing for slightly older samples is
// acceptable at polling cadence.
func (tc *TemporalClassifier) Update(now time.Time, sp Speed, facing *Vec2) Movement {
	tc.push(now, sp)

	avg := tc.average(sp.DtS)
	avgLabel := tc.cls.Classify(avg, facing)

	accelFall := tc.vzTrend() <= tc.cfg.FallAccelGate && avg.VZ < tc.cfg.FallAvgVz

	// Extend the glide lock while the averaged descent looks glidey; cancel
	// it the moment the descent is clearly beyond the envelope or the
	// acceleration gate fires.
	absVz := abs32(avg.VZ)
	if avg.VZ < 0 && absVz >= tc.cfg.GlideLockVzMin && absVz <= tc.cfg.GlideLockVzMax {
		tc.glideLockedUntil = now.Add(tc.cfg.GlideLockDwell)
	}
	beyondGlide := avg.VZ < -(tc.cls.cfg.GlideVzMax + tc.cls.cfg.FallGlideMargin)
	if accelFall || beyondGlide {
		tc.glideLockedUntil = now
	}

	proposed := avgLabel
	if avgLabel == MovementOther {
		// The averaged sample can land between bands while the individual
		// samples are unambiguous; let the vote rescue those.
		if vote := tc.vote(facing); vote != MovementOther {
			proposed = vote
		}
	}
	if accelFall {
		proposed = MovementFalling
	}

	if now.Before(tc.glideLockedUntil) {
		// Mid-turn facing swings can push single samples to Other while the
		// character is plainly still gliding; the lock bridges those.
		proposed = tc.cls.SnapGlide(avg.Horizontal)
	} else if tc.state.Glide() && proposed == MovementOther {
		proposed = tc.cls.SnapGlide(avg.Horizontal)
	}

	if proposed != tc.state {
		if tc.state.Airborne() && proposed.Airborne() {
			// Switches within the airborne family are cheap: steering from
			// glide-back to glide-forward must not feel sticky.
			tc.state = proposed
			tc.lastSwitch = now
		} else if tc.tailDwell(proposed, facing, now) >= tc.cfg.DwellIn &&
			now.Sub(tc.lastSwitch) >= tc.cfg.DwellOut {
			tc.state = proposed
			tc.lastSwitch = now
		}
	}

	return tc.state
}

// push appends the sample and evicts entries older than the window.
func (tc *TemporalClassifier) push(now time.Time, sp Speed) {
	tc.history = append(tc.history, timedSpeed{at: now, speed: sp})

	drop := 0
	for drop < len(tc.history) && now.Sub(tc.history[drop].at) > tc.cfg.Window {
		drop++
	}
	if drop > 0 {
		n := copy(tc.history, tc.history[drop:])
		tc.history = tc.history[:n]
	}
}

// WindowAverages returns the mean horizontal and vertical speed of the
// buffered window, for consumers annotating state changes.
func (tc *TemporalClassifier) WindowAverages() (h, vz float64) {
	avg := tc.average(0)
	return float64(avg.Horizontal), float64(avg.VZ)
}

// average returns the arithmetic mean of the buffered Speed components.
// Horizontal and Magnitude are averaged as stored rather than recomputed
// from the averaged axes, so opposing velocities don't cancel into a fake
// standstill.
func (tc *TemporalClassifier) average(latestDt float32) Speed {
	var sum Speed
	for _, e := range tc.history {
		sum.VX += e.speed.VX
		sum.VY += e.speed.VY
		sum.VZ += e.speed.VZ
		sum.Horizontal += e.speed.Horizontal
		sum.Magnitude += e.speed.Magnitude
	}
	n := float32(len(tc.history))
	if n == 0 {
		n = 1
	}
	return Speed{
		VX:         sum.VX / n,
		VY:         sum.VY / n,
		VZ:         sum.VZ / n,
		Horizontal: sum.Horizontal / n,
		Magnitude:  sum.Magnitude / n,
		DtS:        latestDt,
	}
}

// vote classifies the newest VoteSamples entries individually and returns
// the plurality label. Ties resolve to the label that reached the winning
// count first, counting from the newest sample backwards, which keeps the
// result deterministic.
func (tc *TemporalClassifier) vote(facing *Vec2) Movement {
	k := tc.cfg.VoteSamples
	if k > len(tc.history) {
		k = len(tc.history)
	}
	if k == 0 {
		return MovementOther
	}

	counts := make(map[Movement]int, k)
	best := MovementOther
	bestN := 0
	for i := len(tc.history) - 1; i >= len(tc.history)-k; i-- {
		label := tc.cls.Classify(tc.history[i].speed, facing)
		counts[label]++
		if counts[label] > bestN {
			best = label
			bestN = counts[label]
		}
	}
	return best
}

// vzTrend returns the slope of vz across the window endpoints in u/s².
func (tc *TemporalClassifier) vzTrend() float32 {
	if len(tc.history) < 2 {
		return 0
	}
	first := tc.history[0]
	last := tc.history[len(tc.history)-1]
	dt := float32(last.at.Sub(first.at).Seconds())
	if dt < 1e-3 {
		dt = 1e-3
	}
	return (last.speed.VZ - first.speed.VZ) / dt
}

// tailDwell measures how long the newest contiguous run of samples has
// matched the proposed label.
func (tc *TemporalClassifier) tailDwell(proposed Movement, facing *Vec2, now time.Time) time.Duration {
	var dwell time.Duration
	lastT := now
	for i := len(tc.history) - 1; i >= 0; i-- {
		if tc.cls.Classify(tc.history[i].speed, facing) != proposed {
			break
		}
		dwell += lastT.Sub(tc.history[i].at)
		lastT = tc.history[i].at
	}
	return dwell
}
