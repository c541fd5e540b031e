package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical threshold defaults file.
const DefaultConfigPath = "config/thresholds.defaults.json"

// Default classification thresholds. These match config/thresholds.defaults.json.
const (
	DefaultTemperatureAllowedMeanDiff      = 0.5
	DefaultTemperatureUltraPrecisionStdDev = 3.0
	DefaultTemperatureVeryPrecisionStdDev  = 5.0
	DefaultHumidityAllowedDiff             = 1.0
	DefaultMonoxideAllowedDiff             = 3.0
)

// Thresholds holds the five classification limits used by the sensor criteria.
// Fields omitted from a JSON file stay nil and fall back to the defaults
// through the Get* accessors, so partial files are safe.
type Thresholds struct {
	// Thermometer params
	TemperatureAllowedMeanDiff      *float64 `json:"temperature_allowed_mean_diff,omitempty"`
	TemperatureUltraPrecisionStdDev *float64 `json:"temperature_ultra_precision_std_dev,omitempty"`
	TemperatureVeryPrecisionStdDev  *float64 `json:"temperature_very_precision_std_dev,omitempty"`

	// Humidity / monoxide params
	HumidityAllowedDiff *float64 `json:"humidity_allowed_diff,omitempty"`
	MonoxideAllowedDiff *float64 `json:"monoxide_allowed_diff,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }

// EmptyThresholds returns Thresholds with all fields set to nil.
func EmptyThresholds() *Thresholds {
	return &Thresholds{}
}

// DefaultThresholds returns Thresholds with every field populated from the
// package defaults.
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		TemperatureAllowedMeanDiff:      ptrFloat64(DefaultTemperatureAllowedMeanDiff),
		TemperatureUltraPrecisionStdDev: ptrFloat64(DefaultTemperatureUltraPrecisionStdDev),
		TemperatureVeryPrecisionStdDev:  ptrFloat64(DefaultTemperatureVeryPrecisionStdDev),
		HumidityAllowedDiff:             ptrFloat64(DefaultHumidityAllowedDiff),
		MonoxideAllowedDiff:             ptrFloat64(DefaultMonoxideAllowedDiff),
	}
}

// LoadThresholds loads Thresholds from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadThresholds(path string) (*Thresholds, error) {
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

	cfg := EmptyThresholds()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded; intended for test setup.
func MustLoadDefaultConfig() *Thresholds {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadThresholds(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable. Unset fields are
// validated through their defaults.
func (c *Thresholds) Validate() error {
	checks := []struct {
		name string
		v    *float64
	}{
		{"temperature_allowed_mean_diff", c.TemperatureAllowedMeanDiff},
		{"temperature_ultra_precision_std_dev", c.TemperatureUltraPrecisionStdDev},
		{"temperature_very_precision_std_dev", c.TemperatureVeryPrecisionStdDev},
		{"humidity_allowed_diff", c.HumidityAllowedDiff},
		{"monoxide_allowed_diff", c.MonoxideAllowedDiff},
	}
	for _, chk := range checks {
		if chk.v != nil && *chk.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", chk.name, *chk.v)
		}
	}

	if ultra, very := c.GetTemperatureUltraPrecisionStdDev(), c.GetTemperatureVeryPrecisionStdDev(); ultra > very {
		return fmt.Errorf("temperature_ultra_precision_std_dev (%f) must not exceed temperature_very_precision_std_dev (%f)", ultra, very)
	}

	return nil
}

// GetTemperatureAllowedMeanDiff returns the temperature_allowed_mean_diff value or the default.
func (c *Thresholds) GetTemperatureAllowedMeanDiff() float64 {
	if c.TemperatureAllowedMeanDiff == nil {
		return DefaultTemperatureAllowedMeanDiff
	}
	return *c.TemperatureAllowedMeanDiff
}

// GetTemperatureUltraPrecisionStdDev returns the temperature_ultra_precision_std_dev value or the default.
func (c *Thresholds) GetTemperatureUltraPrecisionStdDev() float64 {
	if c.TemperatureUltraPrecisionStdDev == nil {
		return DefaultTemperatureUltraPrecisionStdDev
	}
	return *c.TemperatureUltraPrecisionStdDev
}

// GetTemperatureVeryPrecisionStdDev returns the temperature_very_precision_std_dev value or the default.
func (c *Thresholds) GetTemperatureVeryPrecisionStdDev() float64 {
	if c.TemperatureVeryPrecisionStdDev == nil {
		return DefaultTemperatureVeryPrecisionStdDev
	}
	return *c.TemperatureVeryPrecisionStdDev
}

// GetHumidityAllowedDiff returns the humidity_allowed_diff value or the default.
func (c *Thresholds) GetHumidityAllowedDiff() float64 {
	if c.HumidityAllowedDiff == nil {
		return DefaultHumidityAllowedDiff
	}
	return *c.HumidityAllowedDiff
}

// GetMonoxideAllowedDiff returns the monoxide_allowed_diff value or the default.
func (c *Thresholds) GetMonoxideAllowedDiff() float64 {
	if c.MonoxideAllowedDiff == nil {
		return DefaultMonoxideAllowedDiff
	}
	return *c.MonoxideAllowedDiff
}

// JSON returns the fully-resolved thresholds as compact JSON, with every
// default filled in. Used to record the effective configuration of a run.
func (c *Thresholds) JSON() string {
	resolved := Thresholds{
		TemperatureAllowedMeanDiff:      ptrFloat64(c.GetTemperatureAllowedMeanDiff()),
		TemperatureUltraPrecisionStdDev: ptrFloat64(c.GetTemperatureUltraPrecisionStdDev()),
		TemperatureVeryPrecisionStdDev:  ptrFloat64(c.GetTemperatureVeryPrecisionStdDev()),
		HumidityAllowedDiff:             ptrFloat64(c.GetHumidityAllowedDiff()),
		MonoxideAllowedDiff:             ptrFloat64(c.GetMonoxideAllowedDiff()),
	}
	data, err := json.Marshal(resolved)
	if err != nil {
		return "{}"
	}
	return string(data)
}
