package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	"github.com/banshee-data/compositor/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePacingPlot(t *testing.T) {
	now := time.Now()
	cycles := []compositor.CycleStats{
		{SessionID: "s1", Cycle: 1, PacingMs: 33, At: now},
		{SessionID: "s1", Cycle: 2, PacingMs: 30, At: now},
		{SessionID: "s1", Cycle: 3, PacingMs: 0, DecodeErr: "corrupt", At: now},
	}
	sum := db.PacingSummary{SessionID: "s1", Cycles: 3, MeanMs: 21}

	for _, name := range []string{"pacing.png", "pacing.svg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, savePacingPlot(cycles, sum, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

func TestSavePacingPlot_UnknownFormat(t *testing.T) {
	cycles := []compositor.CycleStats{{SessionID: "s1", Cycle: 1, PacingMs: 33}}
	err := savePacingPlot(cycles, db.PacingSummary{SessionID: "s1"}, filepath.Join(t.TempDir(), "pacing.bmp"))
	assert.Error(t, err)
}
