package motion

import (
	"fmt"
	"time"

	"github.com/halcyard/motiongate/internal/config"
)

// EstimatorConfig holds the velocity estimator's guard thresholds and
// smoothing parameters.
type EstimatorConfig struct {
	SmoothingAlpha  float32       // weight of the new observation (default 0.35)
	MinStepInterval time.Duration // intervals below this are oversamples (default 1ms)
	MaxStepInterval time.Duration // intervals above this are pauses/load screens (default 500ms)
	MaxStepMeters   float32       // per-step displacement ceiling; teleport guard (default 30)
	UnitsPerMeter   float32       // game units per meter (default 39.37)
	ZeroEpsilon     float32       // components below this snap to exactly zero (default 1e-5)
}

// DefaultEstimatorConfig returns an EstimatorConfig loaded from the canonical
// tuning defaults file. Panics if the file cannot be found — intended for
// tests and binaries that have already validated config availability.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfigFromTuning(config.MustLoadDefaultConfig())
}

// EstimatorConfigFromTuning builds an EstimatorConfig from a loaded
// TuningConfig. Use this in production code where the TuningConfig is
// already loaded.
func EstimatorConfigFromTuning(cfg *config.TuningConfig) EstimatorConfig {
	return EstimatorConfig{
		SmoothingAlpha:  float32(cfg.GetSmoothingAlpha()),
		MinStepInterval: cfg.GetMinStepInterval(),
		MaxStepInterval: cfg.GetMaxStepInterval(),
		MaxStepMeters:   float32(cfg.GetMaxStepMeters()),
		UnitsPerMeter:   float32(cfg.GetUnitsPerMeter()),
		ZeroEpsilon:     float32(cfg.GetZeroEpsilon()),
	}
}

// Validate checks if the configuration is valid.
func (c EstimatorConfig) Validate() error {
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("SmoothingAlpha must be in (0, 1], got %f", c.SmoothingAlpha)
	}
	if c.MinStepInterval <= 0 {
		return fmt.Errorf("MinStepInterval must be positive, got %v", c.MinStepInterval)
	}
	if c.MaxStepInterval <= c.MinStepInterval {
		return fmt.Errorf("MaxStepInterval (%v) must exceed MinStepInterval (%v)", c.MaxStepInterval, c.MinStepInterval)
	}
	if c.MaxStepMeters <= 0 {
		return fmt.Errorf("MaxStepMeters must be positive, got %f", c.MaxStepMeters)
	}
	if c.UnitsPerMeter <= 0 {
		return fmt.Errorf("UnitsPerMeter must be positive, got %f", c.UnitsPerMeter)
	}
	if c.ZeroEpsilon < 0 {
		return fmt.Errorf("ZeroEpsilon must be non-negative, got %f", c.ZeroEpsilon)
	}
	return nil
}

// Estimator turns consecutive position samples into smoothed velocity.
// Positions arrive in meters in the internal frame; emitted speeds are in
// game units per second. The exponential smoothing runs per axis in m/s
// before unit conversion. Not safe for concurrent use; an Estimator is
// owned by one polling loop.
type Estimator struct {
	cfg EstimatorConfig

	havePrev bool
	prevPos  Vec3
	prevAt   time.Time
	smooth   Vec3 // smoothed velocity, m/s
}

// NewEstimator creates an Estimator with the given configuration.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Step folds one position sample into the velocity estimate. The second
// return value is false when the sample only re-establishes the reference
// point: the first sample ever, an interval outside the accepted range, or a
// teleport-scale displacement. The reference point advances on every call so
// a single anomalous sample never desyncs the estimator — the sample after a
// waypoint jump measures from the new position, not across it.
func (e *Estimator) Step(pos Vec3, now time.Time) (Speed, bool) {
	if !e.havePrev {
		e.prevPos = pos
		e.prevAt = now
		e.havePrev = true
		return Speed{}, false
	}

	dt := now.Sub(e.prevAt)
	delta := pos.Sub(e.prevPos)
	e.prevPos = pos
	e.prevAt = now

	if dt < e.cfg.MinStepInterval || dt > e.cfg.MaxStepInterval {
		return Speed{}, false
	}
	if delta.Norm() > e.cfg.MaxStepMeters {
		return Speed{}, false
	}

	dtS := float32(dt.Seconds())
	raw := delta.Scale(1 / dtS)

	// Alpha is the weight of the new observation.
	a := e.cfg.SmoothingAlpha
	e.smooth = Vec3{
		X: (1-a)*e.smooth.X + a*raw.X,
		Y: (1-a)*e.smooth.Y + a*raw.Y,
		Z: (1-a)*e.smooth.Z + a*raw.Z,
	}

	v := e.smooth.Scale(e.cfg.UnitsPerMeter)
	vx := snapZero(v.X, e.cfg.ZeroEpsilon)
	vy := snapZero(v.Y, e.cfg.ZeroEpsilon)
	vz := snapZero(v.Z, e.cfg.ZeroEpsilon)

	horizontal := Vec2{X: vx, Y: vy}.Norm()
	magnitude := Vec3{X: vx, Y: vy, Z: vz}.Norm()

	return Speed{
		VX:         vx,
		VY:         vy,
		VZ:         vz,
		Horizontal: horizontal,
		Magnitude:  magnitude,
		DtS:        dtS,
	}, true
}

// Reset forgets the reference point and the smoothing accumulator, as if the
// estimator were freshly constructed. Used when a session boundary is known
// externally (map change, character swap).
func (e *Estimator) Reset() {
	e.havePrev = false
	e.smooth = Vec3{}
}

func snapZero(v, eps float32) float32 {
	if abs32(v) < eps {
		return 0
	}
	return v
}
