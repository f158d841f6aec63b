package motion

import (
	"math"
	"testing"
	"time"
)

func testEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		SmoothingAlpha:  0.35,
		MinStepInterval: 1 * time.Millisecond,
		MaxStepInterval: 500 * time.Millisecond,
		MaxStepMeters:   30,
		UnitsPerMeter:   39.37,
		ZeroEpsilon:     0.00001,
	}
}

func TestEstimatorConfigValidate(t *testing.T) {
	if err := testEstimatorConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := testEstimatorConfig()
	bad.SmoothingAlpha = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for SmoothingAlpha > 1")
	}

	bad = testEstimatorConfig()
	bad.MaxStepInterval = bad.MinStepInterval
	if err := bad.Validate(); err == nil {
		t.Error("expected error for MaxStepInterval <= MinStepInterval")
	}

	bad = testEstimatorConfig()
	bad.UnitsPerMeter = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero UnitsPerMeter")
	}
}

func TestEstimatorFirstSampleEstablishesReference(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	if _, ok := e.Step(Vec3{X: 1, Y: 2, Z: 3}, now); ok {
		t.Fatal("first sample must not produce a Speed")
	}

	// The second sample measures from the first.
	spd, ok := e.Step(Vec3{X: 1.08, Y: 2, Z: 3}, now.Add(40*time.Millisecond))
	if !ok {
		t.Fatal("second sample should produce a Speed")
	}
	if spd.VX <= 0 {
		t.Errorf("VX = %f, want positive", spd.VX)
	}
}

func TestEstimatorZeroDtIsIdempotent(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()
	pos := Vec3{X: 5, Y: 5, Z: 0}

	e.Step(pos, now)
	e.Step(Vec3{X: 5.08, Y: 5, Z: 0}, now.Add(40*time.Millisecond))

	// Feeding the identical (position, time) pair twice must not produce a
	// Speed or disturb the accumulator either time.
	at := now.Add(80 * time.Millisecond)
	p2 := Vec3{X: 5.16, Y: 5, Z: 0}
	e.Step(p2, at)
	before := e.smooth

	if _, ok := e.Step(p2, at); ok {
		t.Error("zero-dt sample produced a Speed")
	}
	if e.smooth != before {
		t.Errorf("zero-dt sample disturbed the accumulator: %+v -> %+v", before, e.smooth)
	}
	if _, ok := e.Step(p2, at); ok {
		t.Error("repeated zero-dt sample produced a Speed")
	}
}

func TestEstimatorIntervalGuards(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)

	// Oversample: under the minimum interval.
	if _, ok := e.Step(Vec3{X: 0.001}, now.Add(500*time.Microsecond)); ok {
		t.Error("sub-millisecond interval produced a Speed")
	}

	// Pause / load screen: over the maximum interval.
	if _, ok := e.Step(Vec3{X: 0.002}, now.Add(700*time.Millisecond)); ok {
		t.Error("oversized interval produced a Speed")
	}

	// The guard updated the reference, so a normal follow-up works.
	if _, ok := e.Step(Vec3{X: 0.082}, now.Add(740*time.Millisecond)); !ok {
		t.Error("sample after guarded interval should produce a Speed")
	}
}

func TestEstimatorTeleportRejected(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)

	// 50 meters in 40ms is a waypoint, not motion.
	jump := Vec3{X: 50}
	if _, ok := e.Step(jump, now.Add(40*time.Millisecond)); ok {
		t.Fatal("teleport-scale displacement produced a Speed")
	}

	// The reference must have moved to the teleported position: the next
	// sample measures a small step, not a second teleport.
	spd, ok := e.Step(Vec3{X: 50.1}, now.Add(80*time.Millisecond))
	if !ok {
		t.Fatal("sample after teleport should produce a Speed")
	}
	// 0.1m over 40ms = 2.5 m/s raw; one smoothing step from zero.
	want := 0.35 * 2.5 * 39.37
	if math.Abs(float64(spd.VX)-want) > 0.5 {
		t.Errorf("post-teleport VX = %f, want ~%f", spd.VX, want)
	}
}

func TestEstimatorSmoothingConvergesWithoutOvershoot(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	// Constant 2 m/s along X at 40ms cadence.
	const mps = 2.0
	const dt = 40 * time.Millisecond
	target := float32(mps * 39.37)

	var prev float32
	for i := 0; i <= 30; i++ {
		pos := Vec3{X: float32(mps * dt.Seconds() * float64(i))}
		spd, ok := e.Step(pos, now.Add(time.Duration(i)*dt))
		if i == 0 {
			continue
		}
		if !ok {
			t.Fatalf("sample %d produced no Speed", i)
		}
		if spd.VX > target+0.01 {
			t.Fatalf("sample %d overshot: VX = %f > %f", i, spd.VX, target)
		}
		if spd.VX < prev {
			t.Fatalf("sample %d not monotonic: VX = %f < %f", i, spd.VX, prev)
		}
		prev = spd.VX
	}
	if prev < target*0.998 {
		t.Errorf("smoothed VX = %f, want within 0.2%% of %f", prev, target)
	}
}

func TestEstimatorUnitConversion(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)
	// 1 m/s raw; first accepted step blends 35% of it.
	spd, ok := e.Step(Vec3{X: 0.04}, now.Add(40*time.Millisecond))
	if !ok {
		t.Fatal("no Speed produced")
	}
	want := 0.35 * 1.0 * 39.37
	if math.Abs(float64(spd.VX)-want) > 0.01 {
		t.Errorf("VX = %f, want %f", spd.VX, want)
	}
	if math.Abs(float64(spd.Horizontal-spd.VX)) > 1e-4 {
		t.Errorf("Horizontal = %f, want %f with motion on X only", spd.Horizontal, spd.VX)
	}
	if spd.DtS < 0.039 || spd.DtS > 0.041 {
		t.Errorf("DtS = %f, want ~0.04", spd.DtS)
	}
}

func TestEstimatorSnapsNoiseToZero(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)
	// Sub-micron drift: raw velocity far below the epsilon after conversion.
	spd, ok := e.Step(Vec3{X: 1e-9}, now.Add(40*time.Millisecond))
	if !ok {
		t.Fatal("no Speed produced")
	}
	if spd.VX != 0 || spd.VY != 0 || spd.VZ != 0 {
		t.Errorf("noise floor not snapped: %+v", spd)
	}
	if spd.Horizontal != 0 || spd.Magnitude != 0 {
		t.Errorf("magnitudes not zero: h=%f mag=%f", spd.Horizontal, spd.Magnitude)
	}
}

func TestEstimatorSpeedInvariants(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)
	for i := 1; i <= 10; i++ {
		pos := Vec3{X: 0.12 * float32(i), Y: 0.05 * float32(i), Z: -0.08 * float32(i)}
		spd, ok := e.Step(pos, now.Add(time.Duration(i)*40*time.Millisecond))
		if !ok {
			t.Fatalf("sample %d produced no Speed", i)
		}
		h := math.Sqrt(float64(spd.VX*spd.VX + spd.VY*spd.VY))
		if math.Abs(h-float64(spd.Horizontal)) > 1e-3 {
			t.Errorf("sample %d: Horizontal = %f, want %f", i, spd.Horizontal, h)
		}
		mag := math.Sqrt(h*h + float64(spd.VZ*spd.VZ))
		if math.Abs(mag-float64(spd.Magnitude)) > 1e-3 {
			t.Errorf("sample %d: Magnitude = %f, want %f", i, spd.Magnitude, mag)
		}
		if spd.DtS <= 0 {
			t.Errorf("sample %d: DtS = %f, want positive", i, spd.DtS)
		}
	}
}

func TestEstimatorReset(t *testing.T) {
	e := NewEstimator(testEstimatorConfig())
	now := time.Now()

	e.Step(Vec3{}, now)
	e.Step(Vec3{X: 0.3}, now.Add(40*time.Millisecond))
	e.Reset()

	// After a reset the next sample is a reference sample again.
	if _, ok := e.Step(Vec3{X: 9}, now.Add(80*time.Millisecond)); ok {
		t.Error("first sample after Reset produced a Speed")
	}
	spd, ok := e.Step(Vec3{X: 9.04}, now.Add(120*time.Millisecond))
	if !ok {
		t.Fatal("second sample after Reset produced no Speed")
	}
	want := 0.35 * 1.0 * 39.37 // accumulator restarted from zero
	if math.Abs(float64(spd.VX)-want) > 0.01 {
		t.Errorf("post-reset VX = %f, want %f", spd.VX, want)
	}
}
