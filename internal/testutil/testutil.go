// Package testutil provides shared test fixtures for calibration logs.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// SampleLog covers all three families. Classified with default thresholds
// it yields SampleResults.
const SampleLog = `reference 70.0 45.0 6
thermometer temp-1
2025-04-28T22:00 70.2
2025-04-28T22:01 69.8
thermometer temp-2
2025-04-28T22:00 65.0
2025-04-28T22:01 75.0
humidity hum-1
2025-04-28T22:00 45.1
monoxide mon-1
2025-04-28T22:00 5
`

// SampleResults returns the verdicts for SampleLog under default thresholds.
func SampleResults() calibration.ResultSet {
	return calibration.ResultSet{
		"temp-1": calibration.VerdictUltraPrecise,
		"temp-2": calibration.VerdictPrecise,
		"hum-1":  calibration.VerdictKeep,
		"mon-1":  calibration.VerdictKeep,
	}
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Streams captures each stream of a test logger.
type Streams struct {
	Ops, Diag, Trace bytes.Buffer
}

// NewLogger returns a logger whose streams are all captured.
func NewLogger() (*monitoring.Logger, *Streams) {
	s := &Streams{}
	return monitoring.NewLogger("", &s.Ops, &s.Diag, &s.Trace), s
}
