package db

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PacingSummary describes the engine's next-frame hints over a session.
type PacingSummary struct {
	SessionID    string  `json:"session_id"`
	Cycles       int     `json:"cycles"`
	Decoded      int     `json:"decoded"`
	DecodeErrors int     `json:"decode_errors"`
	MeanMs       float64 `json:"mean_ms"`
	StdDevMs     float64 `json:"stddev_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	MaxMs        float64 `json:"max_ms"`
}

// PacingSummary aggregates every recorded cycle of sessionID.
func (db *DB) PacingSummary(sessionID string) (PacingSummary, error) {
	rows, err := db.Query(
		`SELECT pacing_ms, decoded, decode_error IS NOT NULL FROM cycles WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return PacingSummary{}, err
	}
	defer rows.Close()

	sum := PacingSummary{SessionID: sessionID}
	var pacing []float64
	for rows.Next() {
		var (
			ms, decoded int
			failed      bool
		)
		if err := rows.Scan(&ms, &decoded, &failed); err != nil {
			return PacingSummary{}, err
		}
		pacing = append(pacing, float64(ms))
		sum.Decoded += decoded
		if failed {
			sum.DecodeErrors++
		}
	}
	if err := rows.Err(); err != nil {
		return PacingSummary{}, err
	}
	if len(pacing) == 0 {
		return PacingSummary{}, ErrNoCycles
	}

	sum.Cycles = len(pacing)
	summarisePacing(&sum, pacing)
	return sum, nil
}

func summarisePacing(sum *PacingSummary, pacing []float64) {
	sort.Float64s(pacing)
	if len(pacing) > 1 {
		sum.MeanMs, sum.StdDevMs = stat.MeanStdDev(pacing, nil)
	} else {
		sum.MeanMs = pacing[0]
	}
	sum.P50Ms = stat.Quantile(0.5, stat.Empirical, pacing, nil)
	sum.P95Ms = stat.Quantile(0.95, stat.Empirical, pacing, nil)
	sum.MaxMs = pacing[len(pacing)-1]
}
