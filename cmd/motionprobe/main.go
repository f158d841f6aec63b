// motionprobe prints one classification line per poll for live band tuning:
// the smoothed speed components, the instant label, and the stable state,
// plus a log line on every stable transition.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyard/motiongate/internal/config"
	"github.com/halcyard/motiongate/internal/motion"
	"github.com/halcyard/motiongate/internal/telemetry"
)

func main() {
	var sourceKind string
	var replayPath string
	var configPath string
	var devMode bool

	flag.StringVar(&sourceKind, "source", "synthetic", "telemetry source kind (replay|synthetic)")
	flag.StringVar(&replayPath, "replay", "", "replay capture path, required with -source replay")
	flag.StringVar(&configPath, "config", "", "tuning config JSON (built-in defaults when empty)")
	flag.BoolVar(&devMode, "dev", false, "run against the canned synthetic flight profile")
	flag.Parse()

	cfg := config.DefaultTuningConfig()
	if configPath != "" {
		loaded, err := config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	if devMode {
		sourceKind = "synthetic"
	}
	src, err := telemetry.NewSource(sourceKind, replayPath, cfg.GetPollInterval())
	if err != nil {
		log.Fatalf("create source: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := probe(ctx, src, cfg); err != nil {
		log.Fatalf("probe: %v", err)
	}
}

// probe polls the source until it is exhausted or the context is cancelled,
// classifying each sample and printing the result.
func probe(ctx context.Context, src telemetry.Source, cfg *config.TuningConfig) error {
	now := time.Now()
	est := motion.NewEstimator(motion.EstimatorConfigFromTuning(cfg))
	cls := motion.NewClassifier(motion.ClassifierConfigFromTuning(cfg))
	temporal := motion.NewTemporalClassifier(motion.TemporalConfigFromTuning(cfg), cls, now)

	log.Printf("probing %s every %v", src.Name(), cfg.GetPollInterval())

	ticker := time.NewTicker(cfg.GetPollInterval())
	defer ticker.Stop()

	var lastTick uint32
	var haveTick bool
	stable := temporal.State()
	stableSince := now

	for {
		select {
		case <-ctx.Done():
			return nil
		case now = <-ticker.C:
		}

		sample, err := src.ReadMotion()
		if errors.Is(err, motion.ErrNoSample) {
			log.Printf("source exhausted, final state %s", stable)
			return nil
		}
		if err != nil {
			log.Printf("read: %v", err)
			continue
		}

		if haveTick && sample.Tick == lastTick {
			continue
		}
		lastTick = sample.Tick
		haveTick = true

		sp, ok := est.Step(sample.WorldPosition(), now)
		if !ok {
			continue
		}
		facing := sample.FacingXY()
		inst := cls.Classify(sp, &facing)
		next := temporal.Update(now, sp, &facing)

		fmt.Printf("h=%7.1f vz=%7.1f 3d=%7.1f inst=%-16s stable=%s\n",
			sp.Horizontal, sp.VZ, sp.Magnitude, inst, next)

		if next != stable {
			log.Printf("transition: %s -> %s (held %v)", stable, next, now.Sub(stableSince).Round(time.Millisecond))
			stable = next
			stableSince = now
		}
	}
}
