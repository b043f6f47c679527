package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts the journal's debug pages on mux: a live SQL
// console, the session list and a pacing chart.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://compositor.db", db.DB, &tailsql.DBOptions{
		Label: "Compositor journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("sessions", "Recorded compositor sessions (JSON)", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := db.Sessions()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sessions)
	})

	debug.HandleFunc("pacing", "Engine pacing hints per cycle (chart)", db.handlePacingChart)
	return nil
}

// handlePacingChart renders the pacing hint of a session's recent cycles.
// Query params:
//   - session (optional; defaults to the latest session)
//   - limit (optional; default 500)
func (db *DB) handlePacingChart(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		latest, err := db.LatestSession()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		sessionID = latest
	}
	limit := 500
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 10000 {
		limit = v
	}

	cycles, err := db.RecentCycles(sessionID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(cycles) == 0 {
		http.Error(w, ErrNoCycles.Error(), http.StatusNotFound)
		return
	}

	x := make([]string, 0, len(cycles))
	pacing := make([]opts.LineData, 0, len(cycles))
	decoded := make([]opts.LineData, 0, len(cycles))
	for _, c := range cycles {
		x = append(x, strconv.FormatUint(c.Cycle, 10))
		pacing = append(pacing, opts.LineData{Value: c.PacingMs})
		decoded = append(decoded, opts.LineData{Value: c.Decoded})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Compositor pacing", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Next-frame hint", Subtitle: fmt.Sprintf("session=%s cycles=%d", sessionID, len(cycles))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	line.SetXAxis(x).
		AddSeries("pacing_ms", pacing).
		AddSeries("decoded", decoded)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
