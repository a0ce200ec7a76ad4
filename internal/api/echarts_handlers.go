package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/bev.report/internal/httputil"
)

// frameChart renders an HTML line chart of recent frame processing from the
// publish log. Debugging-only endpoint for a quick look at pipeline health
// without a separate UI.
// Query params:
//   - limit (optional; default 500) number of log rows to plot
func (s *Server) frameChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "frame log not configured")
		return
	}

	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}

	records, err := s.store.RecentFrames(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(records) == 0 {
		httputil.NotFound(w, "no frames logged yet")
		return
	}

	// RecentFrames returns newest first; plot oldest to newest.
	labels := make([]string, 0, len(records))
	processMs := make([]opts.LineData, 0, len(records))
	viewsUsed := make([]opts.LineData, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		labels = append(labels, rec.Stamp.Format(time.TimeOnly))
		processMs = append(processMs, opts.LineData{Value: float64(rec.ProcessMicros) / 1000.0})
		viewsUsed = append(viewsUsed, opts.LineData{Value: rec.ViewsUsed})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "BEV Frame Log", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Composite Frame Processing", Subtitle: fmt.Sprintf("last %d frames", len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "process (ms) / views"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("process ms", processMs)
	line.AddSeries("views used", viewsUsed)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
