// motioncal recalibrates classifier bands from a recorded session. It
// computes per-state speed percentiles, prints a suggested band table next
// to the configured values, and renders a speed trace PNG for inspection.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/halcyard/motiongate/internal/config"
	"github.com/halcyard/motiongate/internal/motion"
	"github.com/halcyard/motiongate/internal/recorder"
)

var stateOrder = []motion.Movement{
	motion.MovementIdle,
	motion.MovementWalk,
	motion.MovementBackpedal,
	motion.MovementStrafe,
	motion.MovementRunForward,
	motion.MovementGlideBack,
	motion.MovementGlideNeutral,
	motion.MovementGlideForward,
	motion.MovementFalling,
	motion.MovementFallingTerminal,
	motion.MovementOther,
}

// stateSeries collects the per-sample speed components recorded under one
// stable state.
type stateSeries struct {
	horizontal []float64
	vertical   []float64
	magnitude  []float64
}

func main() {
	var dbPath string
	var sessionID string
	var outPath string
	var configPath string

	flag.StringVar(&dbPath, "db", "db/motiongate.db", "path to recording database")
	flag.StringVar(&sessionID, "session", "", "session id (defaults to the most recent)")
	flag.StringVar(&outPath, "out", "speed_trace.png", "speed trace PNG path (empty disables the plot)")
	flag.StringVar(&configPath, "config", "", "tuning config JSON to compare against (defaults to built-ins)")
	flag.Parse()

	cfg := config.DefaultTuningConfig()
	if configPath != "" {
		loaded, err := config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	store, err := recorder.Open(dbPath, 1)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		log.Fatalf("migrate db: %v", err)
	}

	if sessionID == "" {
		sessions, err := store.ListSessions()
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatalf("no sessions recorded in %s", dbPath)
		}
		sessionID = sessions[0].ID
	}

	summary, err := store.SessionSummary(sessionID)
	if err != nil {
		log.Fatalf("session summary: %v", err)
	}
	samples, err := store.SamplesForSession(sessionID)
	if err != nil {
		log.Fatalf("load samples: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("session %s has no samples", sessionID)
	}

	fmt.Printf("Session %s (%s)\n", summary.Session.ID, summary.Session.Source)
	fmt.Printf("  started %s, %d samples, %d transitions, %s span\n",
		summary.Session.StartedAt.Format(time.RFC3339), summary.Samples,
		summary.Transitions, summary.Last.Sub(summary.First).Round(time.Second))

	profiles := groupByState(samples)
	printPercentiles(profiles)
	printBandTable(profiles, cfg)

	if outPath != "" {
		if err := renderTrace(samples, sessionID, outPath); err != nil {
			log.Fatalf("render trace: %v", err)
		}
		fmt.Printf("\n✓ wrote %s\n", outPath)
	}
}

func groupByState(samples []recorder.SampleRow) map[motion.Movement]*stateSeries {
	profiles := make(map[motion.Movement]*stateSeries)
	for _, s := range samples {
		series := profiles[s.State]
		if series == nil {
			series = &stateSeries{}
			profiles[s.State] = series
		}
		series.horizontal = append(series.horizontal, float64(s.Speed.Horizontal))
		series.vertical = append(series.vertical, float64(s.Speed.VZ))
		series.magnitude = append(series.magnitude, float64(s.Speed.Magnitude))
	}
	return profiles
}

// quantiles returns p05/p25/p50/p75/p95 of the values.
func quantiles(values []float64) [5]float64 {
	var out [5]float64
	if len(values) == 0 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for i, p := range []float64{0.05, 0.25, 0.50, 0.75, 0.95} {
		out[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return out
}

func formatQuantiles(q [5]float64) string {
	return fmt.Sprintf("%7.1f %7.1f %7.1f %7.1f %7.1f", q[0], q[1], q[2], q[3], q[4])
}

func printPercentiles(profiles map[motion.Movement]*stateSeries) {
	fmt.Println("\nPer-state speed percentiles, p05/p25/p50/p75/p95 (u/s):")
	fmt.Printf("  %-17s %6s  %-39s  %-39s\n", "state", "n", "horizontal", "vz")
	for _, state := range stateOrder {
		series := profiles[state]
		if series == nil {
			continue
		}
		fmt.Printf("  %-17s %6d  %s  %s\n", state, len(series.horizontal),
			formatQuantiles(quantiles(series.horizontal)),
			formatQuantiles(quantiles(series.vertical)))
	}
}

// bandRow ties a banded state to the speed component its band matches on
// and the configured center and tolerance.
type bandRow struct {
	state  motion.Movement
	metric string
	center float64
	tol    float64
}

func configuredBands(cfg *config.TuningConfig) []bandRow {
	return []bandRow{
		{motion.MovementWalk, "magnitude", cfg.GetWalkSpeed(), cfg.GetWalkTolerance()},
		{motion.MovementBackpedal, "horizontal", cfg.GetBackpedalSpeed(), cfg.GetBackpedalTolerance()},
		{motion.MovementStrafe, "horizontal", cfg.GetStrafeSpeed(), cfg.GetStrafeTolerance()},
		{motion.MovementRunForward, "horizontal", cfg.GetRunForwardSpeed(), cfg.GetRunTolerance()},
		{motion.MovementGlideBack, "horizontal", cfg.GetGlideBackSpeed(), cfg.GetGlideBandTolerance()},
		{motion.MovementGlideNeutral, "horizontal", cfg.GetGlideNeutralSpeed(), cfg.GetGlideBandTolerance()},
		{motion.MovementGlideForward, "horizontal", cfg.GetGlideForwardSpeed(), cfg.GetGlideBandTolerance()},
	}
}

func printBandTable(profiles map[motion.Movement]*stateSeries, cfg *config.TuningConfig) {
	fmt.Println("\nSuggested bands vs configured (suggested center = p50, tolerance = half the p05..p95 spread):")
	fmt.Printf("  %-17s %-10s %6s  %18s  %18s\n", "state", "metric", "n", "suggested", "configured")
	for _, band := range configuredBands(cfg) {
		series := profiles[band.state]
		if series == nil {
			fmt.Printf("  %-17s %-10s %6d  %18s  %10.1f ± %5.1f\n", band.state, band.metric, 0, "no data", band.center, band.tol)
			continue
		}
		values := series.horizontal
		if band.metric == "magnitude" {
			values = series.magnitude
		}
		q := quantiles(values)
		center := q[2]
		tol := (q[4] - q[0]) / 2
		fmt.Printf("  %-17s %-10s %6d  %10.1f ± %5.1f  %10.1f ± %5.1f\n",
			band.state, band.metric, len(values), center, tol, band.center, band.tol)
	}
}

// renderTrace writes the horizontal and vertical speed series as a PNG.
func renderTrace(samples []recorder.SampleRow, sessionID, outPath string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s speed trace", sessionID)
	p.X.Label.Text = "Seconds"
	p.Y.Label.Text = "Speed (u/s)"

	first := samples[0].At
	hPts := make(plotter.XYs, 0, len(samples))
	vzPts := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		x := s.At.Sub(first).Seconds()
		hPts = append(hPts, plotter.XY{X: x, Y: float64(s.Speed.Horizontal)})
		vzPts = append(vzPts, plotter.XY{X: x, Y: float64(s.Speed.VZ)})
	}

	hLine, err := plotter.NewLine(hPts)
	if err != nil {
		return fmt.Errorf("horizontal line: %w", err)
	}
	hLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	hLine.Width = vg.Points(1)
	p.Add(hLine)
	p.Legend.Add("horizontal", hLine)

	vzLine, err := plotter.NewLine(vzPts)
	if err != nil {
		return fmt.Errorf("vz line: %w", err)
	}
	vzLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	vzLine.Width = vg.Points(1)
	p.Add(vzLine)
	p.Legend.Add("vz", vzLine)

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	return nil
}
