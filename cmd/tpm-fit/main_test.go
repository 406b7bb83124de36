package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpm.report/internal/db"
	"github.com/banshee-data/tpm.report/internal/export"
	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

// gridCSV returns a 4x4 grid of readings whose TPM is an exact quadratic in
// temperature and capacitance.
func gridCSV() string {
	var b strings.Builder
	b.WriteString("GooseTemp,GooseCapHex,GooseTPM\n")
	for _, temp := range []float64{20, 60, 100, 140} {
		for _, c := range []int64{0xC80000, 0xCE28A0, 0xD00000, 0xD80000} {
			tpm := 2 + 0.05*temp + 1e-6*float64(c) + 1e-4*temp*temp
			fmt.Fprintf(&b, "%g,%X,%.12g\n", temp, c, tpm)
		}
	}
	return b.String()
}

func TestOverride(t *testing.T) {
	assert.Equal(t, "flag", override("flag", "config"))
	assert.Equal(t, "config", override("", "config"))
}

func TestRun(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("metrics.csv", []byte(gridCSV()))
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	var stdout bytes.Buffer
	err := run(context.Background(), fsys, options{
		Input:    "metrics.csv",
		Out:      "out/coef.csv",
		DB:       dbPath,
		HTMLPath: "out/fit.html",
	}, &stdout)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Rows used: 16")
	assert.Contains(t, out, "R²   = 1.000000")
	assert.Contains(t, out, "Run recorded as ")

	f, err := fsys.Open("out/coef.csv")
	require.NoError(t, err)
	defer f.Close()
	cs, err := export.ReadCoefficients(f, model.RawLinear)
	require.NoError(t, err)
	assert.InDelta(t, 2, cs.Intercept, 1e-3)
	assert.InDelta(t, 1e-6, cs.Terms[0], 1e-9)
	assert.InDelta(t, 0.05, cs.Terms[1], 1e-6)
	assert.InDelta(t, 1e-4, cs.Terms[4], 1e-8)

	html, err := fsys.ReadFile("out/fit.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "TPM raw linear fit")

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.LatestRun(context.Background(), model.RawLinear)
	require.NoError(t, err)
	assert.Equal(t, 16, latest.RowCount)
	assert.Equal(t, "metrics.csv", latest.InputPath)
	assert.Equal(t, 20.0, latest.TempMin)
}

func TestRun_TooFewRows(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("metrics.csv", []byte("GooseTemp,GooseCapHex,GooseTPM\n20,A,10\n30,14,20\n40,1E,30\n"))

	var stdout bytes.Buffer
	err := run(context.Background(), fsys, options{Input: "metrics.csv"}, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit failed")
	assert.Empty(t, stdout.String())
}

func TestRun_MissingInput(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	err := run(context.Background(), fsys, options{Input: "nope.csv"}, &bytes.Buffer{})
	assert.Error(t, err)
}
