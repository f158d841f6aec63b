package telemetry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/halcyard/motiongate/internal/motion"
)

// Segment is one leg of a scripted trajectory: a constant velocity and
// facing held for a duration.
type Segment struct {
	Duration time.Duration
	Velocity motion.Vec3 // metres per second, internal frame (Z up)
	Facing   motion.Vec2 // horizontal facing; zero means keep travelling north
	Jitter   float64     // metres, uniform per-axis noise on the emitted position
}

// SyntheticSource generates samples along a scripted trajectory for dev mode
// and tests. Each read advances the trajectory by one polling interval, so
// the caller is expected to poll it at that same cadence. When the script
// runs out the source returns motion.ErrNoSample unless Loop is set.
type SyntheticSource struct {
	Loop bool

	name     string
	interval time.Duration
	segments []Segment

	pos        motion.Vec3
	tick       uint32
	segIdx     int
	segElapsed time.Duration

	rng *rand.Rand
}

// NewSyntheticSource creates a generator over the given script. interval is
// the simulated polling cadence (default 40ms when zero).
func NewSyntheticSource(name string, interval time.Duration, segments []Segment) *SyntheticSource {
	if interval <= 0 {
		interval = 40 * time.Millisecond
	}
	return &SyntheticSource{
		name:     name,
		interval: interval,
		segments: segments,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ReadMotion advances the trajectory one interval and returns the sample.
func (g *SyntheticSource) ReadMotion() (motion.MotionSample, error) {
	if g.segIdx >= len(g.segments) {
		return motion.MotionSample{}, motion.ErrNoSample
	}
	seg := g.segments[g.segIdx]

	dt := float32(g.interval.Seconds())
	g.pos.X += seg.Velocity.X * dt
	g.pos.Y += seg.Velocity.Y * dt
	g.pos.Z += seg.Velocity.Z * dt
	g.tick++

	g.segElapsed += g.interval
	if g.segElapsed >= seg.Duration {
		g.segIdx++
		g.segElapsed = 0
		if g.segIdx >= len(g.segments) && g.Loop {
			g.segIdx = 0
		}
	}

	sample := motion.MotionSample{
		Position: g.nativePosition(seg.Jitter),
		Facing:   nativeFacing(seg.Facing),
		Tick:     g.tick,
	}
	return sample, nil
}

// Name identifies the script in logs.
func (g *SyntheticSource) Name() string {
	return fmt.Sprintf("synthetic:%s", g.name)
}

// nativePosition converts the internal-frame position back to the upstream
// axis order (x, vertical, depth), with optional uniform noise.
func (g *SyntheticSource) nativePosition(jitter float64) [3]float32 {
	p := g.pos
	if jitter > 0 {
		p.X += float32((g.rng.Float64()*2 - 1) * jitter)
		p.Y += float32((g.rng.Float64()*2 - 1) * jitter)
		p.Z += float32((g.rng.Float64()*2 - 1) * jitter)
	}
	return [3]float32{p.X, p.Z, p.Y}
}

func nativeFacing(f motion.Vec2) [3]float32 {
	if f.Norm() < 1e-6 {
		f = motion.Vec2{X: 0, Y: 1}
	}
	return [3]float32{f.X, 0, f.Y}
}

// FlightProfile is the canned dev-mode script: walk up to speed, sprint,
// launch into a neutral glide, drop into a dive, then stand still. The
// velocities are the band centres expressed in metres per second.
func FlightProfile() []Segment {
	east := motion.Vec2{X: 1, Y: 0}
	return []Segment{
		{Duration: 2 * time.Second, Velocity: motion.Vec3{}, Facing: east},
		{Duration: 3 * time.Second, Velocity: motion.Vec3{X: 2.032}, Facing: east, Jitter: 0.003},
		{Duration: 4 * time.Second, Velocity: motion.Vec3{X: 7.467}, Facing: east, Jitter: 0.003},
		{Duration: 5 * time.Second, Velocity: motion.Vec3{X: 7.467, Z: -2.54}, Facing: east},
		{Duration: 2 * time.Second, Velocity: motion.Vec3{X: 1, Z: -12}, Facing: east},
		{Duration: 3 * time.Second, Velocity: motion.Vec3{}, Facing: east},
	}
}
