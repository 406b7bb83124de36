package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/tpm.report/internal/hexcap"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/scaling"
)


// RawLinearCoefficients are the α0..α5 weights of the raw-scale model
// TPM = α0 + α1·C + α2·T + α3·C·T + α4·C² + α5·T².
type RawLinearCoefficients struct {
	Alpha0 float64 `json:"alpha0"`
	Alpha1 float64 `json:"alpha1"`
	Alpha2 float64 `json:"alpha2"`
	Alpha3 float64 `json:"alpha3"`
	Alpha4 float64 `json:"alpha4"`
	Alpha5 float64 `json:"alpha5"`
}

// CoefficientSet converts the table into a RawLinear coefficient set.
func (c RawLinearCoefficients) CoefficientSet() model.CoefficientSet {
	return model.CoefficientSet{
		Scheme:    model.RawLinear,
		Intercept: c.Alpha0,
		Terms:     [model.NumTerms]float64{c.Alpha1, c.Alpha2, c.Alpha3, c.Alpha4, c.Alpha5},
	}
}

// QuadraticSurfaceCoefficients are the θ1..θ6 weights of the normalized
// surface TPM = θ1 + θ2·T_s + θ3·C_s + θ4·T_s² + θ5·C_s² + θ6·T_s·C_s.
type QuadraticSurfaceCoefficients struct {
	Theta1 float64 `json:"theta1"`
	Theta2 float64 `json:"theta2"`
	Theta3 float64 `json:"theta3"`
	Theta4 float64 `json:"theta4"`
	Theta5 float64 `json:"theta5"`
	Theta6 float64 `json:"theta6"`
}

// CoefficientSet converts the table into a NormalizedQuadratic coefficient set.
func (c QuadraticSurfaceCoefficients) CoefficientSet() model.CoefficientSet {
	return model.CoefficientSet{
		Scheme:    model.NormalizedQuadratic,
		Intercept: c.Theta1,
		Terms:     [model.NumTerms]float64{c.Theta2, c.Theta3, c.Theta4, c.Theta5, c.Theta6},
	}
}

// SurfaceBounds fixes the scaling ranges of the quadratic surface. When
// unset, the tools scale against the loaded dataset's own min/max.
type SurfaceBounds struct {
	Temperature scaling.Range `json:"temperature"`
	Capacitance scaling.Range `json:"capacitance"`
}

// ModelConfig is the root configuration for the TPM tools. Pointer fields
// are optional; the Get* methods supply defaults for anything omitted.
type ModelConfig struct {
	// Input and output paths
	InputPath       *string `json:"input_path,omitempty"`
	CoefficientsOut *string `json:"coefficients_out,omitempty"`
	DBPath          *string `json:"db_path,omitempty"`
	PlotPath        *string `json:"plot_path,omitempty"`
	HTMLPath        *string `json:"html_path,omitempty"`

	// Fitted coefficient tables
	RawLinear        *RawLinearCoefficients        `json:"raw_linear,omitempty"`
	QuadraticSurface *QuadraticSurfaceCoefficients `json:"quadratic_surface,omitempty"`
	SurfaceBounds    *SurfaceBounds                `json:"surface_bounds,omitempty"`

	// Manual test point for the surface tool
	TestTemperature    *float64 `json:"test_temperature,omitempty"`
	TestCapacitanceHex *string  `json:"test_capacitance_hex,omitempty"`

	// Random verification subset
	SubsetSize *int    `json:"subset_size,omitempty"`
	SubsetSeed *uint64 `json:"subset_seed,omitempty"`
}

// Default coefficient tables, as fitted on the reference metrics.csv capture.
var (
	DefaultRawLinear = RawLinearCoefficients{
		Alpha0: -1.775454e+03,
		Alpha1: 1.275336e-04,
		Alpha2: -5.891628e-07,
		Alpha3: 9.436783e-08,
		Alpha4: 2.461430e-13,
		Alpha5: -3.036403e-03,
	}
	DefaultQuadraticSurface = QuadraticSurfaceCoefficients{
		Theta1: -76.16391930260264,
		Theta2: -1.4556770920304842,
		Theta3: 6.917343053617422,
		Theta4: 168.92273573166048,
		Theta5: 95.86741996935297,
		Theta6: -85.54864868707303,
	}
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyModelConfig returns a ModelConfig with all fields set to nil.
func EmptyModelConfig() *ModelConfig {
	return &ModelConfig{}
}

// DefaultModelConfig returns a ModelConfig with every field populated from
// the built-in defaults.
func DefaultModelConfig() *ModelConfig {
	raw := DefaultRawLinear
	quad := DefaultQuadraticSurface
	return &ModelConfig{
		InputPath:          ptrString("metrics.csv"),
		CoefficientsOut:    ptrString("coeficientes_TPM_modelo.csv"),
		DBPath:             ptrString(""),
		PlotPath:           ptrString(""),
		HTMLPath:           ptrString(""),
		RawLinear:          &raw,
		QuadraticSurface:   &quad,
		TestTemperature:    ptrFloat64(110.0),
		TestCapacitanceHex: ptrString("CE28A0"),
		SubsetSize:         ptrInt(100),
		SubsetSeed:         ptrUint64(42),
	}
}

// LoadModelConfig loads a ModelConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to defaults through the Get* methods.
func LoadModelConfig(path string) (*ModelConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyModelConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when non-empty and otherwise returns the
// built-in defaults.
func LoadOrDefault(path string) (*ModelConfig, error) {
	if path == "" {
		return DefaultModelConfig(), nil
	}
	return LoadModelConfig(path)
}

// Validate checks that the configured values are usable.
func (c *ModelConfig) Validate() error {
	if c.TestCapacitanceHex != nil {
		if _, err := hexcap.Decode(*c.TestCapacitanceHex); err != nil {
			return fmt.Errorf("test_capacitance_hex: %w", err)
		}
	}
	if c.SubsetSize != nil && *c.SubsetSize < 0 {
		return fmt.Errorf("subset_size must be non-negative, got %d", *c.SubsetSize)
	}
	if c.SurfaceBounds != nil {
		if err := c.SurfaceBounds.Temperature.Validate(); err != nil {
			return fmt.Errorf("surface_bounds.temperature: %w", err)
		}
		if err := c.SurfaceBounds.Capacitance.Validate(); err != nil {
			return fmt.Errorf("surface_bounds.capacitance: %w", err)
		}
	}
	return nil
}

// GetInputPath returns the dataset path or the default.
func (c *ModelConfig) GetInputPath() string {
	if c.InputPath == nil || *c.InputPath == "" {
		return "metrics.csv"
	}
	return *c.InputPath
}

// GetCoefficientsOut returns the coefficient export path or the default.
func (c *ModelConfig) GetCoefficientsOut() string {
	if c.CoefficientsOut == nil || *c.CoefficientsOut == "" {
		return "coeficientes_TPM_modelo.csv"
	}
	return *c.CoefficientsOut
}

// GetDBPath returns the run history database path; empty disables history.
func (c *ModelConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlotPath returns the PNG chart path; empty disables the chart.
func (c *ModelConfig) GetPlotPath() string {
	if c.PlotPath == nil {
		return ""
	}
	return *c.PlotPath
}

// GetHTMLPath returns the HTML chart path; empty disables the chart.
func (c *ModelConfig) GetHTMLPath() string {
	if c.HTMLPath == nil {
		return ""
	}
	return *c.HTMLPath
}

// GetRawLinear returns the α table or DefaultRawLinear.
func (c *ModelConfig) GetRawLinear() RawLinearCoefficients {
	if c.RawLinear == nil {
		return DefaultRawLinear
	}
	return *c.RawLinear
}

// GetQuadraticSurface returns the θ table or DefaultQuadraticSurface.
func (c *ModelConfig) GetQuadraticSurface() QuadraticSurfaceCoefficients {
	if c.QuadraticSurface == nil {
		return DefaultQuadraticSurface
	}
	return *c.QuadraticSurface
}

// GetSurfaceBounds returns the fixed surface bounds, or nil to use the
// dataset's own bounds.
func (c *ModelConfig) GetSurfaceBounds() *SurfaceBounds {
	return c.SurfaceBounds
}

// GetTestTemperature returns the manual test temperature or the default.
func (c *ModelConfig) GetTestTemperature() float64 {
	if c.TestTemperature == nil {
		return 110.0
	}
	return *c.TestTemperature
}

// GetTestCapacitanceHex returns the manual test capacitance or the default.
func (c *ModelConfig) GetTestCapacitanceHex() string {
	if c.TestCapacitanceHex == nil || *c.TestCapacitanceHex == "" {
		return "CE28A0"
	}
	return *c.TestCapacitanceHex
}

// GetSubsetSize returns the random verification subset size or the default.
func (c *ModelConfig) GetSubsetSize() int {
	if c.SubsetSize == nil {
		return 100
	}
	return *c.SubsetSize
}

// GetSubsetSeed returns the random subset seed or the default.
func (c *ModelConfig) GetSubsetSeed() uint64 {
	if c.SubsetSeed == nil {
		return 42
	}
	return *c.SubsetSeed
}
