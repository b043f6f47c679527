// Command pacing-report plots the engine pacing hints recorded in a
// compositor cycle journal and prints a summary of the session.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/compositor/internal/compositor"
	"github.com/banshee-data/compositor/internal/db"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	dbPath  = flag.String("db", "compositor.db", "Cycle journal SQLite path")
	session = flag.String("session", "", "Session id (defaults to the latest session)")
	out     = flag.String("out", "pacing.png", "Output image path (.png, .svg or .pdf)")
	limit   = flag.Int("limit", 2000, "Maximum number of cycles to plot")
)

func main() {
	flag.Parse()

	journal, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer journal.Close()

	id := *session
	if id == "" {
		if id, err = journal.LatestSession(); err != nil {
			log.Fatalf("no session to report: %v", err)
		}
	}

	cycles, err := journal.RecentCycles(id, *limit)
	if err != nil {
		log.Fatalf("failed to read cycles: %v", err)
	}
	if len(cycles) == 0 {
		log.Fatalf("session %s has no recorded cycles", id)
	}
	sum, err := journal.PacingSummary(id)
	if err != nil {
		log.Fatalf("failed to summarise session: %v", err)
	}

	if err := savePacingPlot(cycles, sum, *out); err != nil {
		log.Fatalf("failed to write plot: %v", err)
	}
	fmt.Fprintf(os.Stdout, "session %s: %d cycles, %d units decoded, %d decode errors\n",
		id, sum.Cycles, sum.Decoded, sum.DecodeErrors)
	fmt.Fprintf(os.Stdout, "pacing mean=%.1fms stddev=%.1fms p50=%.1fms p95=%.1fms max=%.1fms\n",
		sum.MeanMs, sum.StdDevMs, sum.P50Ms, sum.P95Ms, sum.MaxMs)
	fmt.Fprintf(os.Stdout, "wrote %s\n", *out)
}

// savePacingPlot draws the pacing hint per cycle with the session mean as
// a reference line. The format follows the extension of path.
func savePacingPlot(cycles []compositor.CycleStats, sum db.PacingSummary, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pacing, session %s", sum.SessionID)
	p.X.Label.Text = "cycle"
	p.Y.Label.Text = "next frame (ms)"

	pts := make(plotter.XYs, 0, len(cycles))
	var failed plotter.XYs
	for _, c := range cycles {
		pt := plotter.XY{X: float64(c.Cycle), Y: float64(c.PacingMs)}
		pts = append(pts, pt)
		if c.DecodeErr != "" {
			failed = append(failed, pt)
		}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("pacing", line)

	mean, err := plotter.NewLine(plotter.XYs{
		{X: pts[0].X, Y: sum.MeanMs},
		{X: pts[len(pts)-1].X, Y: sum.MeanMs},
	})
	if err != nil {
		return err
	}
	mean.Width = vg.Points(1)
	mean.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(mean)
	p.Legend.Add("mean", mean)

	if len(failed) > 0 {
		sc, err := plotter.NewScatter(failed)
		if err != nil {
			return err
		}
		p.Add(sc)
		p.Legend.Add("decode error", sc)
	}

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
