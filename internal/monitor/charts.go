package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/halcyard/motiongate/internal/motion"
)

// echartsAssetsPrefix points chart pages at the public go-echarts asset
// host so the daemon serves no static files of its own.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// stateLevels orders movement states vertically for the chart overlay:
// ground states low, airborne states high.
var stateLevels = map[motion.Movement]int{
	motion.MovementOther:           0,
	motion.MovementIdle:            1,
	motion.MovementWalk:            2,
	motion.MovementBackpedal:       3,
	motion.MovementStrafe:          4,
	motion.MovementRunForward:      5,
	motion.MovementGlideBack:       6,
	motion.MovementGlideNeutral:    7,
	motion.MovementGlideForward:    8,
	motion.MovementFalling:         9,
	motion.MovementFallingTerminal: 10,
}

const stateLevelLegend = "state levels: other=0 idle=1 walk=2 backpedal=3 strafe=4 run_forward=5 " +
	"glide_back=6 glide_neutral=7 glide_forward=8 falling=9 falling_terminal=10"

// handleSpeedChart renders the history ring as a line chart (HTML) using
// go-echarts: horizontal and vertical speed on the left axis, the stable
// state as a stepped level on the right axis.
// Query params:
//   - points (optional) - newest N snapshots; defaults to everything stored
func (ws *WebServer) handleSpeedChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	points := 0
	if v := r.URL.Query().Get("points"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			points = parsed
		}
	}

	snaps := ws.history.Recent(points)
	if len(snaps) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no snapshots recorded yet")
		return
	}

	x := make([]string, 0, len(snaps))
	horizontal := make([]opts.LineData, 0, len(snaps))
	vertical := make([]opts.LineData, 0, len(snaps))
	states := make([]opts.LineData, 0, len(snaps))
	for _, s := range snaps {
		x = append(x, s.At.Format("15:04:05.000"))
		horizontal = append(horizontal, opts.LineData{Value: s.Horizontal})
		vertical = append(vertical, opts.LineData{Value: s.VZ})
		states = append(states, opts.LineData{Value: stateLevels[s.State]})
	}

	newest := snaps[len(snaps)-1]
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Motion Speed Trace", Theme: "dark", Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Motion speed trace",
			Subtitle: fmt.Sprintf("%d snapshots ending %s (%s)\n%s", len(snaps), newest.At.Format(time.RFC3339), newest.State, stateLevelLegend),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "speed (units/s)", NameLocation: "middle", NameGap: 40}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "state", Min: 0, Max: 11})

	line.SetXAxis(x).
		AddSeries("horizontal", horizontal).
		AddSeries("vertical", vertical).
		AddSeries("state", states, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
