package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyard/motiongate/internal/motion"
)

func openTestStore(t *testing.T, stride int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), stride)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

// msec returns a time with millisecond precision, matching what the store
// persists.
func msec(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 1)
	require.NoError(t, store.Migrate())
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 1)
	base := msec(time.Now())

	sess, err := store.BeginSession("replay:glide.jsonl", "band check", base)
	require.NoError(t, err)
	_, err = uuid.Parse(sess.ID)
	require.NoError(t, err, "session ID must be a UUID")

	speeds := []motion.Speed{
		{VX: 1.5, VY: -2.25, VZ: -100, Horizontal: 2.75, Magnitude: 100.5},
		{VX: 294, VY: 0, VZ: -100, Horizontal: 294, Magnitude: 310.5},
		{VX: 0, VY: 0, VZ: -400, Horizontal: 0, Magnitude: 400},
	}
	states := []motion.Movement{motion.MovementGlideNeutral, motion.MovementGlideNeutral, motion.MovementFalling}
	for i := range speeds {
		at := base.Add(time.Duration(i) * 40 * time.Millisecond)
		require.NoError(t, store.RecordSample(sess.ID, at, speeds[i], states[i]))
	}
	require.NoError(t, store.RecordTransition(
		sess.ID, base.Add(80*time.Millisecond),
		motion.MovementGlideNeutral, motion.MovementFalling, 98, -200))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
	assert.Equal(t, "replay:glide.jsonl", sessions[0].Source)
	assert.Equal(t, "band check", sessions[0].Notes)
	assert.True(t, sessions[0].StartedAt.Equal(base))

	rows, err := store.SamplesForSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, speeds[i], r.Speed, "sample %d speed", i)
		assert.Equal(t, states[i], r.State, "sample %d state", i)
		assert.True(t, r.At.Equal(base.Add(time.Duration(i)*40*time.Millisecond)), "sample %d time", i)
	}

	trans, err := store.TransitionsForSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, trans, 1)
	assert.Equal(t, motion.MovementGlideNeutral, trans[0].From)
	assert.Equal(t, motion.MovementFalling, trans[0].To)
	assert.Equal(t, 98.0, trans[0].AvgH)
	assert.Equal(t, -200.0, trans[0].AvgVz)

	sum, err := store.SessionSummary(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Samples)
	assert.Equal(t, 1, sum.Transitions)
	assert.True(t, sum.First.Equal(base))
	assert.True(t, sum.Last.Equal(base.Add(80*time.Millisecond)))
	assert.Equal(t, map[motion.Movement]int{
		motion.MovementGlideNeutral: 2,
		motion.MovementFalling:      1,
	}, sum.States)
}

func TestSampleThrottling(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 3)
	base := msec(time.Now())

	sess, err := store.BeginSession("synthetic:flight", "", base)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		at := base.Add(time.Duration(i) * 40 * time.Millisecond)
		require.NoError(t, store.RecordSample(sess.ID, at, motion.Speed{VX: float32(i)}, motion.MovementWalk))
	}

	rows, err := store.SamplesForSession(sess.ID)
	require.NoError(t, err)
	// Offers 0, 3, 6 and 9 survive a stride of 3.
	require.Len(t, rows, 4)
	assert.Equal(t, float32(0), rows[0].Speed.VX)
	assert.Equal(t, float32(3), rows[1].Speed.VX)
	assert.Equal(t, float32(6), rows[2].Speed.VX)
	assert.Equal(t, float32(9), rows[3].Speed.VX)
}

func TestBeginSessionResetsThrottle(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 2)
	base := msec(time.Now())

	a, err := store.BeginSession("synthetic:flight", "", base)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordSample(a.ID, base.Add(time.Duration(i)*time.Millisecond), motion.Speed{}, motion.MovementIdle))
	}

	b, err := store.BeginSession("synthetic:flight", "", base.Add(time.Second))
	require.NoError(t, err)
	// The first offer of a fresh session is always kept.
	require.NoError(t, store.RecordSample(b.ID, base.Add(time.Second), motion.Speed{VX: 7}, motion.MovementWalk))

	rows, err := store.SamplesForSession(b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float32(7), rows[0].Speed.VX)
}

func TestListSessionsNewestFirst(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 1)
	base := msec(time.Now())

	older, err := store.BeginSession("replay:a.jsonl", "", base)
	require.NoError(t, err)
	newer, err := store.BeginSession("replay:b.jsonl", "", base.Add(time.Minute))
	require.NoError(t, err)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.Equal(t, older.ID, sessions[1].ID)
}

func TestSessionSummaryUnknownSession(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, 1)

	_, err := store.SessionSummary("no-such-session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
