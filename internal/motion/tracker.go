package motion

import (
	"fmt"
	"time"

	"github.com/halcyard/motiongate/internal/config"
)

// TrackerConfig bundles the per-component configurations with the tracker's
// own runtime parameters.
type TrackerConfig struct {
	Estimator  EstimatorConfig
	Classifier ClassifierConfig
	Temporal   TemporalConfig

	// LandingGrace is how long after touching ground LandedRecently stays
	// true, covering the landing animation lock-out (default 250ms).
	LandingGrace time.Duration
}

// DefaultTrackerConfig returns a TrackerConfig loaded from the canonical
// tuning defaults file. Panics if the file cannot be found — intended for
// tests and binaries that have already validated config availability.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromTuning(config.MustLoadDefaultConfig())
}

// TrackerConfigFromTuning builds a TrackerConfig from a loaded TuningConfig.
func TrackerConfigFromTuning(cfg *config.TuningConfig) TrackerConfig {
	return TrackerConfig{
		Estimator:    EstimatorConfigFromTuning(cfg),
		Classifier:   ClassifierConfigFromTuning(cfg),
		Temporal:     TemporalConfigFromTuning(cfg),
		LandingGrace: cfg.GetLandingGrace(),
	}
}

// Validate checks if the configuration is valid.
func (c TrackerConfig) Validate() error {
	if err := c.Estimator.Validate(); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Temporal.Validate(); err != nil {
		return fmt.Errorf("temporal: %w", err)
	}
	if c.LandingGrace < 0 {
		return fmt.Errorf("LandingGrace must be non-negative, got %v", c.LandingGrace)
	}
	return nil
}

// TrackerStats counts per-tick outcomes since the tracker was created.
// Reads counts successful source reads; StaleTicks and Guarded are the
// subsets of those that were dropped before reaching the classifier.
type TrackerStats struct {
	Reads      uint64
	Failures   uint64
	StaleTicks uint64
	Guarded    uint64
}

// Tracker is the runtime shim a polling loop drives: one source read per
// tick, folded through the estimator and the temporal classifier, with the
// stable state and its derived predicates held across ticks. A failed or
// stale read leaves the state untouched — the tracker degrades to the last
// known good state rather than resetting or erroring. Not safe for
// concurrent use.
type Tracker struct {
	est      *Estimator
	temporal *TemporalClassifier

	state      Movement
	lastChange time.Time
	grace      time.Duration

	lastTick uint32
	haveTick bool

	lastSpeed Speed
	haveSpeed bool

	stats TrackerStats
}

// NewTracker creates a Tracker in the Idle state. now anchors the landing
// grace clock and should be the same time source later passed to UpdateWith.
func NewTracker(cfg TrackerConfig, now time.Time) *Tracker {
	cls := NewClassifier(cfg.Classifier)
	return &Tracker{
		est:        NewEstimator(cfg.Estimator),
		temporal:   NewTemporalClassifier(cfg.Temporal, cls, now),
		state:      MovementIdle,
		lastChange: now,
		grace:      cfg.LandingGrace,
	}
}

// UpdateWith reads one sample from src and folds it into the classifier,
// returning the (possibly unchanged) stable state. Reads that fail, repeat
// the previous tick counter, or fall into an estimator guard all leave the
// state as-is; the per-tick anomaly is invisible to consumers.
func (t *Tracker) UpdateWith(src Source, now time.Time) Movement {
	sample, err := src.ReadMotion()
	if err != nil {
		t.stats.Failures++
		return t.state
	}
	t.stats.Reads++

	// An unchanged tick means the region was not rewritten since the last
	// read; skipping it keeps a stalled client from smoothing velocity
	// toward zero while the character hasn't actually stopped.
	if t.haveTick && sample.Tick == t.lastTick {
		t.stats.StaleTicks++
		return t.state
	}
	t.lastTick = sample.Tick
	t.haveTick = true

	spd, ok := t.est.Step(sample.WorldPosition(), now)
	if !ok {
		t.stats.Guarded++
		return t.state
	}
	t.lastSpeed = spd
	t.haveSpeed = true

	facing := sample.FacingXY()
	state := t.temporal.Update(now, spd, &facing)
	if state != t.state {
		t.state = state
		t.lastChange = now
	}
	return t.state
}

// State returns the current stable Movement.
func (t *Tracker) State() Movement {
	return t.state
}

// LastSpeed returns the most recent accepted velocity estimate.
// The second return value is false until the estimator has produced one.
func (t *Tracker) LastSpeed() (Speed, bool) {
	return t.lastSpeed, t.haveSpeed
}

// LastChange returns the time of the most recent stable state change.
func (t *Tracker) LastChange() time.Time {
	return t.lastChange
}

// IsAirborne reports whether the stable state is one of the glide or
// falling variants.
func (t *Tracker) IsAirborne() bool {
	return t.state.Airborne()
}

// LandedRecently reports whether the character is grounded and the last
// state change happened within the landing grace period. External gates use
// this to hold queued input through the landing animation.
func (t *Tracker) LandedRecently(now time.Time) bool {
	return !t.state.Airborne() && now.Sub(t.lastChange) <= t.grace
}

// WindowAverages exposes the temporal window means behind the current
// state. Polling-goroutine callers only, like UpdateWith.
func (t *Tracker) WindowAverages() (h, vz float64) {
	return t.temporal.WindowAverages()
}

// Stats returns the per-tick outcome counters.
func (t *Tracker) Stats() TrackerStats {
	return t.stats
}
