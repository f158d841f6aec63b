package telemetry

import (
	"fmt"
	"time"
)

// NewSource selects a telemetry backend by kind: "replay" plays the JSONL
// capture at path, "synthetic" runs the canned flight profile. interval is
// the polling cadence the synthetic generator should simulate.
func NewSource(kind, path string, interval time.Duration) (Source, error) {
	switch kind {
	case "replay":
		if path == "" {
			return nil, fmt.Errorf("replay source needs a capture path")
		}
		return OpenReplay(path)
	case "synthetic":
		src := NewSyntheticSource("flight", interval, FlightProfile())
		src.Loop = true
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q (want replay or synthetic)", kind)
	}
}
