package calibration

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/calibration.report/internal/config"
)

// Criterion classifies the values of one sensor group against the reference
// value of its family.
type Criterion interface {
	Evaluate(values []float64, reference float64) Verdict
}

// ThermometerCriterion grades thermometers by mean accuracy and repeatability.
type ThermometerCriterion struct {
	AllowedMeanDiff      float64
	UltraPrecisionStdDev float64
	VeryPrecisionStdDev  float64
}

// Evaluate returns "ultra precise" or "very precise" when the mean is within
// AllowedMeanDiff of the reference and the sample standard deviation is below
// the matching threshold, and "precise" otherwise. A single reading has a
// standard deviation of 0.
func (c ThermometerCriterion) Evaluate(values []float64, reference float64) Verdict {
	if len(values) == 0 {
		return VerdictInsufficientData
	}

	mean, stdDev := MeanStdDev(values)
	if math.Abs(mean-reference) > c.AllowedMeanDiff {
		return VerdictPrecise
	}
	switch {
	case stdDev < c.UltraPrecisionStdDev:
		return VerdictUltraPrecise
	case stdDev < c.VeryPrecisionStdDev:
		return VerdictVeryPrecise
	}
	return VerdictPrecise
}

// MeanStdDev returns the arithmetic mean and sample (n-1) standard deviation
// of values. The deviation of a single value is 0; both are NaN for no values.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	switch len(values) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// HumidityCriterion keeps a humidity sensor only if every reading is within
// AllowedDiff of the reference.
type HumidityCriterion struct {
	AllowedDiff float64
}

// Evaluate returns "discard" if any reading deviates by more than AllowedDiff.
func (c HumidityCriterion) Evaluate(values []float64, reference float64) Verdict {
	return keepWithin(values, reference, c.AllowedDiff)
}

// MonoxideCriterion keeps a carbon-monoxide sensor only if every reading is
// within AllowedDiff of the reference.
type MonoxideCriterion struct {
	AllowedDiff float64
}

// Evaluate returns "discard" if any reading deviates by more than AllowedDiff.
func (c MonoxideCriterion) Evaluate(values []float64, reference float64) Verdict {
	return keepWithin(values, reference, c.AllowedDiff)
}

func keepWithin(values []float64, reference, allowed float64) Verdict {
	if len(values) == 0 {
		return VerdictInsufficientData
	}
	for _, v := range values {
		if math.Abs(v-reference) > allowed {
			return VerdictDiscard
		}
	}
	return VerdictKeep
}

// Criteria holds the criterion of every supported family.
type Criteria struct {
	Thermometer ThermometerCriterion
	Humidity    HumidityCriterion
	Monoxide    MonoxideCriterion
}

// NewCriteria builds Criteria from configured thresholds. A nil cfg uses the
// defaults.
func NewCriteria(cfg *config.Thresholds) Criteria {
	if cfg == nil {
		cfg = config.DefaultThresholds()
	}
	return Criteria{
		Thermometer: ThermometerCriterion{
			AllowedMeanDiff:      cfg.GetTemperatureAllowedMeanDiff(),
			UltraPrecisionStdDev: cfg.GetTemperatureUltraPrecisionStdDev(),
			VeryPrecisionStdDev:  cfg.GetTemperatureVeryPrecisionStdDev(),
		},
		Humidity: HumidityCriterion{AllowedDiff: cfg.GetHumidityAllowedDiff()},
		Monoxide: MonoxideCriterion{AllowedDiff: cfg.GetMonoxideAllowedDiff()},
	}
}

// For returns the criterion of family f.
func (c Criteria) For(f Family) (Criterion, error) {
	switch f {
	case Thermometer:
		return c.Thermometer, nil
	case Humidity:
		return c.Humidity, nil
	case Monoxide:
		return c.Monoxide, nil
	}
	return nil, &UnknownSensorFamilyError{Family: f}
}
