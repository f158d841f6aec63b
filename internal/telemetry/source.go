// Package telemetry provides the motion sample sources the pipeline polls:
// a JSONL replay of recorded gameplay and a scripted synthetic generator.
// The real shared-memory mapping is an external ABI owned by the host
// process; everything here stands in behind the same read contract.
package telemetry

import (
	"github.com/halcyard/motiongate/internal/motion"
)

// Source is a readable telemetry backend. ReadMotion returns the current
// sample or motion.ErrNoSample when the backend has nothing this tick;
// Name identifies the backend in logs.
type Source interface {
	ReadMotion() (motion.MotionSample, error)
	Name() string
}
