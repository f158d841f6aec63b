package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/halcyard/motiongate/internal/motion"
)

// ReplaySource plays back a JSONL capture, one sample object per line, in
// file order. After the last sample every read returns motion.ErrNoSample,
// matching a character that has stopped producing telemetry.
type ReplaySource struct {
	name    string
	samples []motion.MotionSample
	pos     int
}

// OpenReplay loads the capture at path. The whole file is parsed up front
// so malformed lines fail at open time rather than mid-run; blank lines are
// skipped.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	var samples []motion.MotionSample
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var s motion.MotionSample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("replay %s line %d: %w", filepath.Base(path), line, err)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay %s: %w", filepath.Base(path), err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("replay %s: no samples", filepath.Base(path))
	}

	return &ReplaySource{
		name:    "replay:" + filepath.Base(path),
		samples: samples,
	}, nil
}

// ReadMotion returns the next sample in file order.
func (r *ReplaySource) ReadMotion() (motion.MotionSample, error) {
	if r.pos >= len(r.samples) {
		return motion.MotionSample{}, motion.ErrNoSample
	}
	s := r.samples[r.pos]
	r.pos++
	return s, nil
}

// Name identifies the capture in logs.
func (r *ReplaySource) Name() string {
	return r.name
}

// Len returns the total number of samples in the capture.
func (r *ReplaySource) Len() int {
	return len(r.samples)
}

// Rewind restarts playback from the first sample.
func (r *ReplaySource) Rewind() {
	r.pos = 0
}
