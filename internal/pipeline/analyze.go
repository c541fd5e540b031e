// Package pipeline wires the reference reader, record stream and classifier
// over one calibration log and drains the emissions into a sink.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/config"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/monitoring"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/timeutil"
)

// Options configures one analysis run. Zero values fall back to the OS
// filesystem, default thresholds, a discarding logger and the real clock.
type Options struct {
	LogPath    string
	FS         fsutil.FileSystem
	Thresholds *config.Thresholds
	Logger     *monitoring.Logger
	Clock      timeutil.Clock
}

// Summary describes a completed (or failed) run. Reference is nil when the
// reference line could not be read.
type Summary struct {
	Reference *calibration.Reference
	Emissions int
	Duration  time.Duration
}

// Analyze classifies the log at opts.LogPath and writes every emission to
// sink. The sink is committed only if the whole log is valid.
func Analyze(ctx context.Context, opts Options, sink output.Sink) (Summary, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	log := opts.Logger
	if log == nil {
		log = monitoring.Discard()
	}
	thresholds := opts.Thresholds
	if thresholds == nil {
		thresholds = config.DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return Summary{}, err
	}

	start := clock.Now()
	var sum Summary

	f, err := fsys.Open(opts.LogPath)
	if err != nil {
		return sum, fmt.Errorf("open calibration log: %w", err)
	}
	defer f.Close()

	lines := calibration.NewLineReader(f)
	ref, err := calibration.ReadReference(lines)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", opts.LogPath, err)
	}
	sum.Reference = &ref
	log.Diagf("reference: temperature=%g humidity=%g monoxide=%g", ref.Temperature, ref.Humidity, ref.Monoxide)
	log.Diagf("thresholds: %s", thresholds.JSON())

	records := calibration.NewRecordStream(lines, log.With("[parser] "))
	classifier := calibration.NewClassifier(ref, records, calibration.NewCriteria(thresholds), log.With("[classifier] "))

	sum.Emissions, err = output.Drain(ctx, classifier, sink)
	sum.Duration = clock.Since(start)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", opts.LogPath, err)
	}

	log.Diagf("classified %d sensor groups from %s in %v", sum.Emissions, opts.LogPath, sum.Duration)
	return sum, nil
}
