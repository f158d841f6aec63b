// Package motion implements the movement classification pipeline: a velocity
// estimator over raw position telemetry, a banded instant classifier, a
// windowed temporal classifier with hysteresis, and the tracker that ties
// them to a polling loop. Nothing in this package is safe for concurrent
// use; a pipeline instance is owned by exactly one goroutine and publishes
// results through a snapshot cell.
package motion

import (
	"errors"
	"math"
)

// ErrNoSample reports that the telemetry source had no sample available
// this tick (region unmapped, game not running, replay exhausted).
var ErrNoSample = errors.New("motion: no sample available")

// Source provides raw motion samples from an external telemetry region.
// Implementations live outside this package; the classifier only ever
// reads, never writes back.
type Source interface {
	ReadMotion() (MotionSample, error)
}

// MotionSample is one raw telemetry reading. Position and Facing carry the
// upstream axis order (x, vertical, depth): index 1 is the vertical axis and
// index 2 the second horizontal axis, and positions are in meters. Tick is a
// monotonically increasing frame counter; an unchanged Tick means the region
// was not rewritten since the previous read.
type MotionSample struct {
	Position [3]float32 `json:"position"`
	Facing   [3]float32 `json:"facing"`
	Tick     uint32     `json:"tick"`
}

// remapAxes converts an upstream (x, vertical, depth) triplet into the
// internal frame (x, y horizontal, z vertical). Every consumer of raw
// telemetry must go through this once, at read time; the classification
// thresholds all assume the internal frame.
func remapAxes(v [3]float32) Vec3 {
	return Vec3{X: v[0], Y: v[2], Z: v[1]}
}

// WorldPosition returns the sample position in the internal frame, in meters.
func (s MotionSample) WorldPosition() Vec3 {
	return remapAxes(s.Position)
}

// FacingXY returns the unit horizontal facing direction of the sample.
// A front vector with no horizontal component (looking straight up or down,
// or an all-zero read) falls back to north so callers always get a usable
// direction.
func (s MotionSample) FacingXY() Vec2 {
	f := remapAxes(s.Facing)
	n := float32(math.Sqrt(float64(f.X*f.X + f.Y*f.Y)))
	if n > 1e-3 {
		return Vec2{X: f.X / n, Y: f.Y / n}
	}
	return Vec2{X: 0, Y: 1}
}

// Speed is one smoothed velocity estimate in game units per second.
// Horizontal is the XY-plane magnitude, Magnitude the full 3D magnitude,
// and DtS the seconds between the two samples that produced it. DtS is
// always positive: degenerate intervals are filtered before a Speed is
// constructed.
type Speed struct {
	VX         float32 `json:"vx"`
	VY         float32 `json:"vy"`
	VZ         float32 `json:"vz"`
	Horizontal float32 `json:"horizontal"`
	Magnitude  float32 `json:"magnitude"`
	DtS        float32 `json:"dt_s"`
}
