package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/monitoring"
)

// Column names expected in the input header.
const (
	ColumnCapacitanceHex = "GooseCapHex"
	ColumnTemperature    = "GooseTemp"
	ColumnTPM            = "GooseTPM"
)

// RequiredColumns lists the header fields every input must provide.
var RequiredColumns = []string{ColumnCapacitanceHex, ColumnTemperature, ColumnTPM}

// MissingColumnError is returned when a required column is absent from the
// header or empty in a row.
type MissingColumnError struct {
	Column string
	Row    int // 0 when the header itself lacks the column
}

func (e *MissingColumnError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("row %d: missing value for column %q", e.Row, e.Column)
}

// ReadRecords parses CSV input with a header row. Column order is free and
// extra columns are ignored.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &MissingColumnError{Column: col}
		}
	}

	var records []Record
	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row %d: %w", rowNum, err)
		}
		if isBlank(row) {
			continue
		}

		field := func(col string) (string, error) {
			i := index[col]
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				return "", &MissingColumnError{Column: col, Row: rowNum}
			}
			return strings.TrimSpace(row[i]), nil
		}

		capHex, err := field(ColumnCapacitanceHex)
		if err != nil {
			return nil, err
		}
		tempStr, err := field(ColumnTemperature)
		if err != nil {
			return nil, err
		}
		tpmStr, err := field(ColumnTPM)
		if err != nil {
			return nil, err
		}

		temp, err := parseFinite(tempStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to parse %s: %w", rowNum, ColumnTemperature, err)
		}
		tpm, err := parseFinite(tpmStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to parse %s: %w", rowNum, ColumnTPM, err)
		}

		records = append(records, Record{CapacitanceHex: capHex, Temperature: temp, TPM: tpm})
	}
	return records, nil
}

// Load reads and decodes the CSV file at path.
func Load(fsys fsutil.FileSystem, path string) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds, err := New(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("loaded %d rows from %s", ds.Len(), path)
	return ds, nil
}

// ErrNonFinite is returned for NaN or infinite measurements.
var ErrNonFinite = errors.New("value is not a finite number")

// parseFinite is strconv.ParseFloat without NaN and Inf, which would
// otherwise poison the dataset bounds.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", s, ErrNonFinite)
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
