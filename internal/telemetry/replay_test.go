package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyard/motiongate/internal/motion"
)

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpenReplayPlaysInFileOrder(t *testing.T) {
	t.Parallel()

	path := writeCapture(t, `{"position":[1,0,0],"facing":[1,0,0],"tick":1}
{"position":[2,0,0],"facing":[1,0,0],"tick":2}

{"position":[3,0,0],"facing":[1,0,0],"tick":3}
`)

	src, err := OpenReplay(path)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())
	assert.Equal(t, "replay:capture.jsonl", src.Name())

	for i := uint32(1); i <= 3; i++ {
		s, err := src.ReadMotion()
		require.NoError(t, err)
		assert.Equal(t, i, s.Tick)
		assert.Equal(t, float32(i), s.Position[0])
	}

	// Exhausted captures park: every further read is ErrNoSample.
	for i := 0; i < 3; i++ {
		_, err := src.ReadMotion()
		assert.True(t, errors.Is(err, motion.ErrNoSample))
	}

	src.Rewind()
	s, err := src.ReadMotion()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.Tick)
}

func TestOpenReplayErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := OpenReplay(filepath.Join(t.TempDir(), "nope.jsonl"))
		assert.Error(t, err)
	})

	t.Run("malformed line reported with its number", func(t *testing.T) {
		t.Parallel()
		path := writeCapture(t, `{"position":[1,0,0],"facing":[1,0,0],"tick":1}
not json
`)
		_, err := OpenReplay(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("empty capture", func(t *testing.T) {
		t.Parallel()
		_, err := OpenReplay(writeCapture(t, "\n\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no samples")
	})
}
