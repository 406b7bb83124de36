package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/model"
)

func TestWriteCoefficients(t *testing.T) {
	cs, err := model.NewCoefficientSet(model.RawLinear, []float64{-1775.454, 1.275336e-04, -5.891628e-07, 9.436783e-08, 2.46143e-13, -3.036403e-03})
	if err != nil {
		t.Fatalf("NewCoefficientSet: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCoefficients(&buf, cs); err != nil {
		t.Fatalf("WriteCoefficients: %v", err)
	}

	want := strings.Join([]string{
		"Coeficiente,Valor",
		"α0,-1775.454",
		"α1,0.0001275336",
		"α2,-5.891628e-07",
		"α3,9.436783e-08",
		"α4,2.46143e-13",
		"α5,-0.003036403",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	back, err := ReadCoefficients(&buf, model.RawLinear)
	if err != nil {
		t.Fatalf("ReadCoefficients: %v", err)
	}
	if diff := cmp.Diff(cs, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCoefficients_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no header", "α0,1\n"},
		{"missing label", "Coeficiente,Valor\nα0,1\nα1,2\nα2,3\nα3,4\nα4,5\n"},
		{"duplicate label", "Coeficiente,Valor\nα0,1\nα0,1\nα1,2\nα2,3\nα3,4\nα4,5\n"},
		{"foreign label", "Coeficiente,Valor\nθ1,1\n"},
		{"bad value", "Coeficiente,Valor\nα0,abc\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadCoefficients(strings.NewReader(tc.input), model.RawLinear); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReadCoefficients_AnyOrder(t *testing.T) {
	input := "Coeficiente,Valor\nθ6,6\nθ1,1\nθ3,3\nθ2,2\nθ5,5\nθ4,4\n"
	cs, err := ReadCoefficients(strings.NewReader(input), model.NormalizedQuadratic)
	if err != nil {
		t.Fatalf("ReadCoefficients: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5, 6}, cs.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoadCoefficients(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	cs, _ := model.NewCoefficientSet(model.RawLinear, []float64{1, 2, 3, 4, 5, 6})

	if err := SaveCoefficients(mfs, "/out/coeficientes_TPM_modelo.csv", cs); err != nil {
		t.Fatalf("SaveCoefficients: %v", err)
	}
	info, err := mfs.Stat("/out")
	if err != nil || !info.IsDir() {
		t.Errorf("parent directory not created: %v", err)
	}

	back, err := LoadCoefficients(mfs, "/out/coeficientes_TPM_modelo.csv", model.RawLinear)
	if err != nil {
		t.Fatalf("LoadCoefficients: %v", err)
	}
	if diff := cmp.Diff(cs, back); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadCoefficients(mfs, "/out/missing.csv", model.RawLinear); err == nil {
		t.Error("expected error for missing file")
	}
}
