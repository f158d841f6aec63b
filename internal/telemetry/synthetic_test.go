package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyard/motiongate/internal/motion"
)

func TestSyntheticIntegratesVelocity(t *testing.T) {
	t.Parallel()

	east := motion.Vec2{X: 1, Y: 0}
	src := NewSyntheticSource("walk", 40*time.Millisecond, []Segment{
		{Duration: 120 * time.Millisecond, Velocity: motion.Vec3{X: 1}, Facing: east},
	})

	for i := 1; i <= 3; i++ {
		s, err := src.ReadMotion()
		require.NoError(t, err)
		assert.Equal(t, uint32(i), s.Tick)
		assert.InDelta(t, 0.04*float64(i), float64(s.Position[0]), 1e-6)
		assert.Equal(t, [3]float32{1, 0, 0}, s.Facing)
	}

	// Script exhausted without Loop: parked.
	_, err := src.ReadMotion()
	assert.True(t, errors.Is(err, motion.ErrNoSample))
}

func TestSyntheticVerticalAxisOrder(t *testing.T) {
	t.Parallel()

	src := NewSyntheticSource("drop", 40*time.Millisecond, []Segment{
		{Duration: time.Second, Velocity: motion.Vec3{Z: -2}},
	})

	s, err := src.ReadMotion()
	require.NoError(t, err)
	// The emitted sample carries the upstream axis order: vertical in the
	// middle slot, so the internal-frame Z comes back out of the remap.
	assert.InDelta(t, -0.08, float64(s.Position[1]), 1e-6)
	assert.InDelta(t, -0.08, float64(s.WorldPosition().Z), 1e-6)
	assert.Zero(t, s.Position[0])
	assert.Zero(t, s.Position[2])
}

func TestSyntheticLoopWrapsSegments(t *testing.T) {
	t.Parallel()

	src := NewSyntheticSource("loop", 40*time.Millisecond, []Segment{
		{Duration: 40 * time.Millisecond, Velocity: motion.Vec3{X: 1}},
		{Duration: 40 * time.Millisecond, Velocity: motion.Vec3{Y: 1}},
	})
	src.Loop = true

	var lastTick uint32
	var pos motion.Vec3
	for i := 0; i < 10; i++ {
		s, err := src.ReadMotion()
		require.NoError(t, err)
		require.Greater(t, s.Tick, lastTick, "ticks must be strictly increasing")
		lastTick = s.Tick
		pos = s.WorldPosition()
	}
	// Five X legs and five Y legs of 0.04m each.
	assert.InDelta(t, 0.2, float64(pos.X), 1e-5)
	assert.InDelta(t, 0.2, float64(pos.Y), 1e-5)
}

func TestSyntheticJitterStaysBounded(t *testing.T) {
	t.Parallel()

	src := NewSyntheticSource("noisy", 40*time.Millisecond, []Segment{
		{Duration: 10 * time.Second, Velocity: motion.Vec3{X: 2}, Jitter: 0.01},
	})

	for i := 1; i <= 100; i++ {
		s, err := src.ReadMotion()
		require.NoError(t, err)
		ideal := 2 * 0.04 * float64(i)
		assert.LessOrEqual(t, math.Abs(float64(s.Position[0])-ideal), 0.0101,
			"jitter exceeded its bound at read %d", i)
	}
}

func TestSyntheticFacingFallsBackNorth(t *testing.T) {
	t.Parallel()

	src := NewSyntheticSource("bare", 40*time.Millisecond, []Segment{
		{Duration: time.Second, Velocity: motion.Vec3{Y: 1}},
	})

	s, err := src.ReadMotion()
	require.NoError(t, err)
	facing := s.FacingXY()
	assert.InDelta(t, 0, float64(facing.X), 1e-6)
	assert.InDelta(t, 1, float64(facing.Y), 1e-6)
}

func TestNewSourceFactory(t *testing.T) {
	t.Parallel()

	t.Run("replay needs a path", func(t *testing.T) {
		t.Parallel()
		_, err := NewSource("replay", "", 40*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("replay", func(t *testing.T) {
		t.Parallel()
		path := writeCapture(t, `{"position":[0,0,0],"facing":[0,0,1],"tick":1}`)
		src, err := NewSource("replay", path, 40*time.Millisecond)
		require.NoError(t, err)
		assert.IsType(t, &ReplaySource{}, src)
	})

	t.Run("synthetic loops the flight profile", func(t *testing.T) {
		t.Parallel()
		src, err := NewSource("synthetic", "", 40*time.Millisecond)
		require.NoError(t, err)
		syn, ok := src.(*SyntheticSource)
		require.True(t, ok)
		assert.True(t, syn.Loop)
		assert.Equal(t, "synthetic:flight", syn.Name())
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		_, err := NewSource("carrier-pigeon", "", 40*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "carrier-pigeon")
	})
}

func TestFlightProfileShape(t *testing.T) {
	t.Parallel()

	segs := FlightProfile()
	require.GreaterOrEqual(t, len(segs), 4)

	// Starts at rest and contains at least one descending leg.
	assert.Equal(t, motion.Vec3{}, segs[0].Velocity)
	descends := false
	for _, s := range segs {
		if s.Velocity.Z < 0 {
			descends = true
		}
	}
	assert.True(t, descends, "flight profile never descends")
}
