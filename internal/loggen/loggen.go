// Package loggen synthesises calibration logs for demos and load tests.
package loggen

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// Range is an inclusive interval.
type Range struct {
	Min, Max float64
}

// Config controls the shape of a generated log.
type Config struct {
	Thermometers    int
	HumiditySensors int
	MonoxideSensors int

	Reference calibration.Reference
	Start     time.Time
	Seed      int64

	// Readings per sensor block.
	ThermometerReadings [2]int
	HumidityReadings    [2]int
	MonoxideReadings    [2]int

	// Value ranges. Monoxide values are whole numbers.
	TemperatureRange Range
	HumidityRange    Range
	MonoxideRange    Range
}

// DefaultConfig returns ten sensors of each family around the reference
// 70.0 / 45.0 / 6, seeded from the current time.
func DefaultConfig() Config {
	return Config{
		Thermometers:        10,
		HumiditySensors:     10,
		MonoxideSensors:     10,
		Reference:           calibration.Reference{Temperature: 70.0, Humidity: 45.0, Monoxide: 6},
		Start:               time.Date(2025, 4, 28, 22, 0, 0, 0, time.UTC),
		Seed:                time.Now().UnixNano(),
		ThermometerReadings: [2]int{3, 20},
		HumidityReadings:    [2]int{3, 12},
		MonoxideReadings:    [2]int{3, 12},
		TemperatureRange:    Range{Min: 65.0, Max: 75.0},
		HumidityRange:       Range{Min: 43.0, Max: 47.0},
		MonoxideRange:       Range{Min: 2, Max: 10},
	}
}

// Validate rejects configurations that cannot produce a valid log.
func (c Config) Validate() error {
	if c.Thermometers < 0 || c.HumiditySensors < 0 || c.MonoxideSensors < 0 {
		return fmt.Errorf("sensor counts must be non-negative")
	}
	for name, r := range map[string][2]int{
		"thermometer": c.ThermometerReadings,
		"humidity":    c.HumidityReadings,
		"monoxide":    c.MonoxideReadings,
	} {
		if r[0] < 0 || r[0] > r[1] {
			return fmt.Errorf("invalid %s readings range [%d, %d]", name, r[0], r[1])
		}
	}
	for name, r := range map[string]Range{
		"temperature": c.TemperatureRange,
		"humidity":    c.HumidityRange,
		"monoxide":    c.MonoxideRange,
	} {
		if r.Min > r.Max || math.IsNaN(r.Min) || math.IsNaN(r.Max) {
			return fmt.Errorf("invalid %s value range [%g, %g]", name, r.Min, r.Max)
		}
	}
	if math.Ceil(c.MonoxideRange.Min) > math.Floor(c.MonoxideRange.Max) {
		return fmt.Errorf("monoxide value range [%g, %g] contains no whole number", c.MonoxideRange.Min, c.MonoxideRange.Max)
	}
	return nil
}

// Generator writes synthetic logs.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Generator for cfg. Equal seeds produce identical logs.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Generate streams the log to w: the reference line, then every thermometer,
// humidity and monoxide block in that order. It returns the number of lines
// written.
func (g *Generator) Generate(w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	lines := 0
	emit := func(s string) {
		bw.WriteString(s)
		bw.WriteByte('\n')
		lines++
	}

	ref := g.cfg.Reference
	emit(fmt.Sprintf("%s %s %s %s", calibration.ReferenceMarker,
		formatDecimal(ref.Temperature), formatDecimal(ref.Humidity), strconv.FormatFloat(ref.Monoxide, 'f', -1, 64)))

	g.blocks(emit, calibration.Thermometer, "temp", g.cfg.Thermometers, g.cfg.ThermometerReadings, func() string {
		return strconv.FormatFloat(g.decimal(g.cfg.TemperatureRange), 'f', 1, 64)
	})
	g.blocks(emit, calibration.Humidity, "hum", g.cfg.HumiditySensors, g.cfg.HumidityReadings, func() string {
		return strconv.FormatFloat(g.decimal(g.cfg.HumidityRange), 'f', 1, 64)
	})
	g.blocks(emit, calibration.Monoxide, "mon", g.cfg.MonoxideSensors, g.cfg.MonoxideReadings, func() string {
		return strconv.Itoa(g.whole(g.cfg.MonoxideRange))
	})

	if err := bw.Flush(); err != nil {
		return lines, fmt.Errorf("write generated log: %w", err)
	}
	return lines, nil
}

func (g *Generator) blocks(emit func(string), family calibration.Family, prefix string, sensors int, readings [2]int, value func() string) {
	for i := 1; i <= sensors; i++ {
		emit(fmt.Sprintf("%s %s-%d", family, prefix, i))
		n := readings[0] + g.rng.Intn(readings[1]-readings[0]+1)
		for j := 0; j < n; j++ {
			ts := g.cfg.Start.Add(time.Duration(j) * time.Minute)
			emit(ts.Format(calibration.TimestampLayout) + " " + value())
		}
	}
}

// decimal draws a value from r rounded to one decimal place.
func (g *Generator) decimal(r Range) float64 {
	v := r.Min + g.rng.Float64()*(r.Max-r.Min)
	return math.Round(v*10) / 10
}

func (g *Generator) whole(r Range) int {
	lo, hi := int(math.Ceil(r.Min)), int(math.Floor(r.Max))
	return lo + g.rng.Intn(hi-lo+1)
}

// formatDecimal prints v with at least one decimal place.
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
