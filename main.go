package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/halcyard/motiongate/internal/config"
	"github.com/halcyard/motiongate/internal/gate"
	"github.com/halcyard/motiongate/internal/monitor"
	"github.com/halcyard/motiongate/internal/motion"
	"github.com/halcyard/motiongate/internal/pipeline"
	"github.com/halcyard/motiongate/internal/recorder"
	"github.com/halcyard/motiongate/internal/telemetry"
	"github.com/halcyard/motiongate/internal/version"
)

var (
	sourceKind = flag.String("source", "synthetic", "telemetry source kind (replay|synthetic)")
	replayPath = flag.String("replay", "", "replay capture path, required with -source replay")
	listen     = flag.String("listen", "127.0.0.1:8421", "monitor listen address")
	dbPath     = flag.String("db", "db/motiongate.db", "recording database path")
	record     = flag.Bool("record", false, "record samples and transitions to the database")
	configPath = flag.String("config", "", "tuning config JSON (built-in defaults when empty)")
	debug      = flag.Bool("debug", false, "log every published snapshot")
	devMode    = flag.Bool("dev", false, "run against the canned synthetic flight profile")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("motiongate %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	kind := *sourceKind
	if *devMode {
		kind = "synthetic"
	}
	src, err := telemetry.NewSource(kind, *replayPath, cfg.GetPollInterval())
	if err != nil {
		log.Fatalf("create source: %v", err)
	}

	now := time.Now()
	tracker := motion.NewTracker(motion.TrackerConfigFromTuning(cfg), now)
	cell := gate.NewCell()

	pollerCfg := pipeline.DefaultConfig()
	pollerCfg.Interval = cfg.GetPollInterval()
	poller := pipeline.NewPoller(pollerCfg, src, tracker, cell)

	web := monitor.NewWebServer(monitor.Config{
		Address:    *listen,
		Cell:       cell,
		History:    monitor.NewHistory(cfg.GetHistorySize()),
		GateRoutes: NewServer(cell).ServeMux(),
	})
	poller.OnSnapshot(web.Record)

	if *debug {
		poller.OnSnapshot(func(s gate.Snapshot) {
			log.Printf("h=%7.1f vz=%7.1f state=%-16s airborne=%v", s.Horizontal, s.VZ, s.State, s.Airborne)
		})
	}

	if *record {
		store, err := recorder.Open(*dbPath, cfg.GetSampleStride())
		if err != nil {
			log.Fatalf("open recording db: %v", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			log.Fatalf("migrate recording db: %v", err)
		}

		session, err := store.BeginSession(src.Name(), "", now)
		if err != nil {
			log.Fatalf("begin session: %v", err)
		}
		log.Printf("recording session %s to %s (stride %d)", session.ID, *dbPath, cfg.GetSampleStride())

		// Hooks run on the polling goroutine, so reading the tracker
		// from them is safe.
		poller.OnSnapshot(func(s gate.Snapshot) {
			spd, ok := tracker.LastSpeed()
			if !ok {
				return
			}
			if err := store.RecordSample(session.ID, s.At, spd, s.State); err != nil {
				log.Printf("record sample: %v", err)
			}
		})
		poller.OnTransition(func(from, to motion.Movement, at time.Time) {
			avgH, avgVz := tracker.WindowAverages()
			if err := store.RecordTransition(session.ID, at, from, to, avgH, avgVz); err != nil {
				log.Printf("record transition: %v", err)
			}
		})
	}

	// Create a wait group for the poller and web server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("poller stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := web.Start(ctx); err != nil {
			log.Printf("web server stopped: %v", err)
		}
	}()

	wg.Wait()
	log.Print("shutdown complete")
}
