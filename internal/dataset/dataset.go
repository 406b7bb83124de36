// Package dataset loads Goose sensor readings and exposes them as an
// immutable, decoded record set with frozen min/max bounds.
package dataset

import (
	"fmt"
	"math"
	"math/big"

	"github.com/banshee-data/tpm.report/internal/hexcap"
	"github.com/banshee-data/tpm.report/internal/scaling"
)

// Record is one row of the input file.
type Record struct {
	CapacitanceHex string
	Temperature    float64
	TPM            float64
}

// DecodedRecord is a Record with its capacitance decoded from hex.
type DecodedRecord struct {
	Record
	Capacitance *big.Int
}

// CapacitanceFloat returns the decoded capacitance as a float64.
func (r DecodedRecord) CapacitanceFloat() float64 {
	return hexcap.Float(r.Capacitance)
}

// Decode decodes r's capacitance.
func Decode(r Record) (DecodedRecord, error) {
	c, err := hexcap.Decode(r.CapacitanceHex)
	if err != nil {
		return DecodedRecord{}, err
	}
	return DecodedRecord{Record: r, Capacitance: c}, nil
}

// Bounds are the observed extremes of a dataset.
type Bounds struct {
	TempMin float64
	TempMax float64
	CapMin  float64
	CapMax  float64
}

// TempRange returns the temperature bounds as a scaling range.
func (b Bounds) TempRange() scaling.Range {
	return scaling.Range{Min: b.TempMin, Max: b.TempMax}
}

// CapRange returns the capacitance bounds as a scaling range.
func (b Bounds) CapRange() scaling.Range {
	return scaling.Range{Min: b.CapMin, Max: b.CapMax}
}

// Dataset is an ordered, read-only collection of decoded records.
// Bounds are computed once at construction.
type Dataset struct {
	records []DecodedRecord
	temps   []float64
	caps    []float64
	tpms    []float64
	bounds  Bounds
}

// New decodes every record and computes the dataset bounds. The first
// malformed capacitance aborts construction.
func New(records []Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}

	ds := &Dataset{
		records: make([]DecodedRecord, len(records)),
		temps:   make([]float64, len(records)),
		caps:    make([]float64, len(records)),
		tpms:    make([]float64, len(records)),
		bounds: Bounds{
			TempMin: math.Inf(1), TempMax: math.Inf(-1),
			CapMin: math.Inf(1), CapMax: math.Inf(-1),
		},
	}
	for i, r := range records {
		dr, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !isFinite(r.Temperature) || !isFinite(r.TPM) {
			return nil, fmt.Errorf("row %d: temperature %v, TPM %v: %w", i+1, r.Temperature, r.TPM, ErrNonFinite)
		}
		if c := dr.CapacitanceFloat(); math.IsInf(c, 0) {
			return nil, fmt.Errorf("row %d: capacitance %s exceeds float64 range: %w", i+1, r.CapacitanceHex, ErrNonFinite)
		}
		ds.records[i] = dr
		ds.temps[i] = r.Temperature
		ds.caps[i] = dr.CapacitanceFloat()
		ds.tpms[i] = r.TPM

		ds.bounds.TempMin = math.Min(ds.bounds.TempMin, r.Temperature)
		ds.bounds.TempMax = math.Max(ds.bounds.TempMax, r.Temperature)
		ds.bounds.CapMin = math.Min(ds.bounds.CapMin, ds.caps[i])
		ds.bounds.CapMax = math.Max(ds.bounds.CapMax, ds.caps[i])
	}
	return ds, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Bounds returns the frozen dataset bounds.
func (d *Dataset) Bounds() Bounds { return d.bounds }

// Record returns the i-th decoded record.
func (d *Dataset) Record(i int) DecodedRecord { return d.records[i] }

// Temperatures returns a copy of the temperature column.
func (d *Dataset) Temperatures() []float64 { return append([]float64(nil), d.temps...) }

// Capacitances returns a copy of the decoded capacitance column as float64.
func (d *Dataset) Capacitances() []float64 { return append([]float64(nil), d.caps...) }

// TPMs returns a copy of the measured TPM column.
func (d *Dataset) TPMs() []float64 { return append([]float64(nil), d.tpms...) }

// Scaled returns both columns min-max scaled against the given ranges,
// which need not be this dataset's own bounds.
func (d *Dataset) Scaled(temp, capacitance scaling.Range) (tScaled, cScaled []float64, err error) {
	if tScaled, err = scaling.ScaleAll(d.temps, temp); err != nil {
		return nil, nil, fmt.Errorf("temperature: %w", err)
	}
	if cScaled, err = scaling.ScaleAll(d.caps, capacitance); err != nil {
		return nil, nil, fmt.Errorf("capacitance: %w", err)
	}
	return tScaled, cScaled, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
