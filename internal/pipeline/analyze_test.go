package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/config"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/monitoring"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/testutil"
	"github.com/banshee-data/calibration.report/internal/timeutil"
)

func setup(t *testing.T, log string) (*fsutil.MemoryFileSystem, Options) {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("logs/run.log", []byte(log), 0644))
	return fsys, Options{
		LogPath: "logs/run.log",
		FS:      fsys,
		Clock:   timeutil.NewMockClock(time.Date(2025, 4, 28, 22, 0, 0, 0, time.UTC)),
	}
}

func TestAnalyze_FileOutput(t *testing.T) {
	fsys, opts := setup(t, testutil.SampleLog)

	sum, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Emissions)
	assert.Equal(t, &calibration.Reference{Temperature: 70, Humidity: 45, Monoxide: 6}, sum.Reference)

	got, err := output.ReadResults(fsys, "results.json")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleResults(), got)
}

func TestAnalyze_StreamOutput(t *testing.T) {
	_, opts := setup(t, testutil.SampleLog)

	var buf bytes.Buffer
	sum, err := Analyze(context.Background(), opts, output.NewStreamSink(&buf))
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Emissions)
	assert.Equal(t, 4, bytes.Count(buf.Bytes(), []byte("{\n")))
	assert.Contains(t, buf.String(), "\"temp-2\": \"precise\"")
}

func TestAnalyze_MalformedReferenceWritesNothing(t *testing.T) {
	fsys, opts := setup(t, "invalid line\nthermometer temp-1\n")

	sum, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, calibration.ErrMalformedReference)
	assert.Nil(t, sum.Reference)
	assert.False(t, fsys.Exists("results.json"))
}

func TestAnalyze_MalformedRecordWritesNothing(t *testing.T) {
	fsys, opts := setup(t, testutil.SampleLog+"garbage\n")

	sum, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	require.Error(t, err)

	var recErr *calibration.MalformedRecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 12, recErr.Line)
	assert.Equal(t, 3, sum.Emissions, "groups closed before the bad line were classified")
	assert.False(t, fsys.Exists("results.json"))
}

func TestAnalyze_EmptyBody(t *testing.T) {
	fsys, opts := setup(t, "reference 70.0 45.0 6\n")

	sum, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	require.NoError(t, err)
	assert.Zero(t, sum.Emissions)

	data, err := fsys.ReadFile("results.json")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestAnalyze_MissingLog(t *testing.T) {
	fsys, opts := setup(t, testutil.SampleLog)
	opts.LogPath = "logs/missing.log"

	_, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open calibration log")
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	fsys, opts := setup(t, testutil.SampleLog)
	very := 8.0
	opts.Thresholds = config.EmptyThresholds()
	opts.Thresholds.TemperatureVeryPrecisionStdDev = &very

	sink := output.NewFileSink(fsys, "results.json", nil)
	_, err := Analyze(context.Background(), opts, sink)
	require.NoError(t, err)
	assert.Equal(t, calibration.VerdictVeryPrecise, sink.Results()["temp-2"], "std dev 7.07 is below the raised very-precise threshold")
}

func TestAnalyze_InvalidThresholds(t *testing.T) {
	fsys, opts := setup(t, testutil.SampleLog)
	neg := -1.0
	opts.Thresholds = config.EmptyThresholds()
	opts.Thresholds.HumidityAllowedDiff = &neg

	_, err := Analyze(context.Background(), opts, output.NewFileSink(fsys, "results.json", nil))
	assert.Error(t, err)
}

func TestAnalyze_LogsReferenceAndDuration(t *testing.T) {
	_, opts := setup(t, testutil.SampleLog)
	var diag bytes.Buffer
	opts.Logger = monitoring.NewLogger("", nil, &diag, nil)
	opts.Clock.(*timeutil.MockClock).AutoAdvance(250 * time.Millisecond)

	sum, err := Analyze(context.Background(), opts, output.NewStreamSink(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, sum.Duration)
	assert.Contains(t, diag.String(), "reference: temperature=70 humidity=45 monoxide=6")
	assert.Contains(t, diag.String(), "classified 4 sensor groups")
}

func TestAnalyze_ComponentLogPrefixes(t *testing.T) {
	_, opts := setup(t, "reference 70.0 45.0 6\nhumidity hum-9\n")
	log, streams := testutil.NewLogger()
	opts.Logger = log

	_, err := Analyze(context.Background(), opts, output.NewStreamSink(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(streams.Ops.String(), "[classifier] "), streams.Ops.String())
	assert.Contains(t, streams.Ops.String(), "no readings for humidity sensor hum-9")
	assert.True(t, strings.HasPrefix(streams.Trace.String(), "[parser] "), streams.Trace.String())
	assert.Contains(t, streams.Trace.String(), "line 2: sensor header humidity hum-9")
	assert.Contains(t, streams.Diag.String(), "[classifier] ")
}
