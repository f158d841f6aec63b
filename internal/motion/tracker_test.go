package motion

import (
	"testing"
	"time"
)

// scriptedSource returns whatever sample (or error) the test last planted.
type scriptedSource struct {
	sample MotionSample
	err    error
}

func (s *scriptedSource) ReadMotion() (MotionSample, error) {
	if s.err != nil {
		return MotionSample{}, s.err
	}
	return s.sample, nil
}

func testTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Estimator:    testEstimatorConfig(),
		Classifier:   testClassifierConfig(),
		Temporal:     testTemporalConfig(),
		LandingGrace: 250 * time.Millisecond,
	}
}

func TestTrackerConfigValidate(t *testing.T) {
	if err := testTrackerConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := testTrackerConfig()
	bad.Estimator.SmoothingAlpha = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for broken estimator config")
	}

	bad = testTrackerConfig()
	bad.LandingGrace = -time.Second
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative LandingGrace")
	}
}

func TestTrackerReadFailureKeepsState(t *testing.T) {
	base := time.Now()
	tr := NewTracker(testTrackerConfig(), base)
	src := &scriptedSource{err: ErrNoSample}

	if got := tr.UpdateWith(src, base.Add(40*time.Millisecond)); got != MovementIdle {
		t.Errorf("state after failed read = %s, want %s", got, MovementIdle)
	}
	if _, ok := tr.LastSpeed(); ok {
		t.Error("LastSpeed reported a speed before any successful read")
	}

	// A failure mid-run leaves the previously committed state visible.
	tr.state = MovementGlideNeutral
	if got := tr.UpdateWith(src, base.Add(80*time.Millisecond)); got != MovementGlideNeutral {
		t.Errorf("state after failed read = %s, want %s preserved", got, MovementGlideNeutral)
	}

	if got := tr.Stats().Failures; got != 2 {
		t.Errorf("Stats().Failures = %d, want 2", got)
	}
}

func TestTrackerStaleTickSkipped(t *testing.T) {
	base := time.Now()
	tr := NewTracker(testTrackerConfig(), base)
	src := &scriptedSource{}

	// First read establishes the reference position.
	src.sample = MotionSample{Position: [3]float32{0, 0, 0}, Tick: 1}
	tr.UpdateWith(src, base)

	// Same tick with a wildly different position: the region wasn't
	// rewritten, so this garbage must not touch the estimator. If it did,
	// the teleport guard would advance the reference to 50m and the next
	// genuine step would be rejected too.
	src.sample = MotionSample{Position: [3]float32{50, 0, 0}, Tick: 1}
	tr.UpdateWith(src, base.Add(40*time.Millisecond))

	src.sample = MotionSample{Position: [3]float32{0.16, 0, 0}, Tick: 2}
	tr.UpdateWith(src, base.Add(80*time.Millisecond))

	spd, ok := tr.LastSpeed()
	if !ok {
		t.Fatal("genuine step after a stale read produced no speed")
	}
	// 0.16m over 80ms is 2 m/s; one smoothing step at alpha 0.35 in game
	// units is 0.35 * 2 * 39.37.
	want := float32(0.35 * 2 * 39.37)
	if spd.VX < want-0.5 || spd.VX > want+0.5 {
		t.Errorf("VX = %f, want about %f", spd.VX, want)
	}

	stats := tr.Stats()
	if stats.Reads != 3 || stats.StaleTicks != 1 {
		t.Errorf("Stats() = %+v, want 3 reads with 1 stale tick", stats)
	}
}

func TestTrackerAirborneAndLandingGrace(t *testing.T) {
	base := time.Now()
	tr := NewTracker(testTrackerConfig(), base)

	tr.state = MovementGlideNeutral
	if !tr.IsAirborne() {
		t.Error("IsAirborne() = false for a glide state")
	}
	if tr.LandedRecently(base) {
		t.Error("LandedRecently() = true while airborne")
	}

	tr.state = MovementWalk
	tr.lastChange = base
	if !tr.LandedRecently(base.Add(250 * time.Millisecond)) {
		t.Error("LandedRecently() = false inside the grace period")
	}
	if tr.LandedRecently(base.Add(251 * time.Millisecond)) {
		t.Error("LandedRecently() = true after the grace period")
	}
}

func TestTrackerGlideFlightAndLanding(t *testing.T) {
	base := time.Now()
	tr := NewTracker(testTrackerConfig(), base)
	src := &scriptedSource{}

	at := func(i int) time.Time { return base.Add(time.Duration(i) * 40 * time.Millisecond) }

	// Neutral glide heading east: 7.467 m/s horizontal and -2.54 m/s
	// vertical are the band-center speeds (294 and -100 game units).
	// Samples carry the upstream axis order, vertical in the middle.
	var last [3]float32
	tick := uint32(0)
	for i := 0; i < 20; i++ {
		tick++
		last = [3]float32{0.29868 * float32(i), -0.1016 * float32(i), 0}
		src.sample = MotionSample{Position: last, Facing: [3]float32{1, 0, 0}, Tick: tick}
		tr.UpdateWith(src, at(i))
	}

	if got := tr.State(); got != MovementGlideNeutral {
		t.Fatalf("state after sustained glide = %s, want %s", got, MovementGlideNeutral)
	}
	if !tr.IsAirborne() {
		t.Error("IsAirborne() = false during glide")
	}
	if tr.LandedRecently(at(19)) {
		t.Error("LandedRecently() = true while still airborne")
	}

	// Touchdown: position freezes while the tick keeps advancing, so the
	// smoothed velocity decays toward zero and the state settles to Idle.
	for i := 20; i < 40; i++ {
		tick++
		src.sample = MotionSample{Position: last, Facing: [3]float32{1, 0, 0}, Tick: tick}
		tr.UpdateWith(src, at(i))
	}

	if got := tr.State(); got != MovementIdle {
		t.Fatalf("state after landing = %s, want %s", got, MovementIdle)
	}
	if tr.IsAirborne() {
		t.Error("IsAirborne() = true after landing")
	}

	landed := tr.LastChange()
	if !tr.LandedRecently(landed.Add(200 * time.Millisecond)) {
		t.Error("LandedRecently() = false within the grace period after touchdown")
	}
	if tr.LandedRecently(landed.Add(300 * time.Millisecond)) {
		t.Error("LandedRecently() = true beyond the grace period")
	}

	if _, ok := tr.LastSpeed(); !ok {
		t.Error("LastSpeed() reported no estimate after a full flight")
	}
}
