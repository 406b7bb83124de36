// Package export writes and reads fitted coefficient tables as two-column
// CSV files (label, value), α0..α5 for the raw-scale model.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/model"
)

// Header columns of the coefficient table.
var Header = []string{"Coeficiente", "Valor"}

// WriteCoefficients writes cs as a labelled table, intercept first.
func WriteCoefficients(w io.Writer, cs model.CoefficientSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	labels := cs.Scheme.Labels()
	for i, v := range cs.Values() {
		if err := cw.Write([]string{labels[i], strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCoefficients parses a table written by WriteCoefficients. Rows may
// appear in any order but every label of the scheme must be present once.
func ReadCoefficients(r io.Reader, scheme model.Scheme) (model.CoefficientSet, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return model.CoefficientSet{}, fmt.Errorf("error reading coefficient table: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 || strings.TrimSpace(rows[0][0]) != Header[0] {
		return model.CoefficientSet{}, fmt.Errorf("coefficient table must start with header %v", Header)
	}

	labels := scheme.Labels()
	position := make(map[string]int, len(labels))
	for i, l := range labels {
		position[l] = i
	}

	values := make([]float64, len(labels))
	seen := make([]bool, len(labels))
	for n, row := range rows[1:] {
		if len(row) < 2 {
			return model.CoefficientSet{}, fmt.Errorf("row %d: expected 2 fields, got %d", n+2, len(row))
		}
		label := strings.TrimSpace(row[0])
		i, ok := position[label]
		if !ok {
			return model.CoefficientSet{}, fmt.Errorf("row %d: unknown coefficient %q for %s", n+2, label, scheme)
		}
		if seen[i] {
			return model.CoefficientSet{}, fmt.Errorf("row %d: duplicate coefficient %q", n+2, label)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return model.CoefficientSet{}, fmt.Errorf("row %d: failed to parse %s: %w", n+2, label, err)
		}
		values[i] = v
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return model.CoefficientSet{}, fmt.Errorf("coefficient %s missing", labels[i])
		}
	}
	return model.NewCoefficientSet(scheme, values)
}

// SaveCoefficients writes cs to path on fsys, creating parent directories.
func SaveCoefficients(fsys fsutil.FileSystem, path string, cs model.CoefficientSet) (err error) {
	if err := fsutil.EnsureParent(fsys, path); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %s: %w", path, closeErr)
		}
	}()
	return WriteCoefficients(f, cs)
}

// LoadCoefficients reads a coefficient table from path on fsys.
func LoadCoefficients(fsys fsutil.FileSystem, path string, scheme model.Scheme) (model.CoefficientSet, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return model.CoefficientSet{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCoefficients(f, scheme)
}
