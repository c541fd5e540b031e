package db

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/timeutil"
)

var testStart = time.Date(2025, 4, 28, 22, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(testStart)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func TestNewDB_AppliesMigrations(t *testing.T) {
	db, _ := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.Equal(t, uint(2), latest)

	for _, table := range []string{"calibration_runs", "calibration_verdicts"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestNewDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db1, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := NewDB(path)
	require.NoError(t, err)
	defer db2.Close()
}

func TestOpenExisting(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is not created", func(t *testing.T) {
		path := filepath.Join(dir, "missing.db")
		_, err := OpenExisting(path)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.NoFileExists(t, path)
	})

	t.Run("unmigrated database", func(t *testing.T) {
		path := filepath.Join(dir, "raw.db")
		raw, err := OpenDB(path)
		require.NoError(t, err)
		_, err = raw.Exec(`CREATE TABLE unrelated (id INTEGER)`)
		require.NoError(t, err)
		require.NoError(t, raw.Close())

		_, err = OpenExisting(path)
		assert.ErrorIs(t, err, ErrSchemaOutdated)

		check, err := OpenDB(path)
		require.NoError(t, err)
		defer check.Close()
		version, _, err := check.schemaVersion()
		require.NoError(t, err)
		assert.Zero(t, version)
		var tables int
		require.NoError(t, check.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'schema_migrations'`).Scan(&tables))
		assert.Zero(t, tables, "opening for reading must not create the version table")
	})

	t.Run("behind latest", func(t *testing.T) {
		path := filepath.Join(dir, "behind.db")
		store, err := NewDB(path)
		require.NoError(t, err)
		require.NoError(t, store.MigrateDown())
		require.NoError(t, store.Close())

		_, err = OpenExisting(path)
		assert.ErrorIs(t, err, ErrSchemaOutdated)
		assert.Contains(t, err.Error(), "migrate up")
	})

	t.Run("migrated", func(t *testing.T) {
		path := filepath.Join(dir, "ok.db")
		store, err := NewDB(path)
		require.NoError(t, err)
		run, err := store.StartRun(context.Background(), "run.log", "{}")
		require.NoError(t, err)
		require.NoError(t, store.Close())

		reader, err := OpenExisting(path)
		require.NoError(t, err)
		defer reader.Close()
		got, err := reader.GetRun(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Equal(t, "run.log", got.LogPath)
	})
}

func TestApplyPragmas(t *testing.T) {
	db, _ := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func TestMigrateDownAndUp(t *testing.T) {
	db, _ := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='calibration_verdicts'`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRunLifecycle(t *testing.T) {
	db, clock := setupTestDB(t)
	ctx := context.Background()

	run, err := db.StartRun(ctx, "logs/run.log", `{"humidity_allowed_diff":1}`)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)
	assert.Equal(t, testStart, run.StartedAt)

	ems := []calibration.Emission{
		{SensorID: "temp-1", Family: calibration.Thermometer, Verdict: calibration.VerdictUltraPrecise, Readings: 2},
		{SensorID: "hum-1", Family: calibration.Humidity, Verdict: calibration.VerdictDiscard, Readings: 3},
		{SensorID: "hum-1", Family: calibration.Humidity, Verdict: calibration.VerdictKeep, Readings: 1},
	}
	for i, em := range ems {
		require.NoError(t, db.RecordVerdict(ctx, run.ID, i, em))
	}

	clock.Advance(2 * time.Second)
	ref := &calibration.Reference{Temperature: 70, Humidity: 45, Monoxide: 6}
	require.NoError(t, db.FinishRun(ctx, run, ref, len(ems), nil))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "logs/run.log", got.LogPath)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, 3, got.Verdicts)
	assert.Equal(t, ref, got.Reference)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 2*time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.Empty(t, got.Error)

	one, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, got, *one)

	rows, err := db.RunVerdicts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, VerdictRow{Seq: 1, SensorID: "hum-1", Family: calibration.Humidity, Verdict: calibration.VerdictDiscard, Readings: 3}, rows[1])

	rs, err := db.RunResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, calibration.ResultSet{"temp-1": calibration.VerdictUltraPrecise, "hum-1": calibration.VerdictKeep}, rs)
}

func TestFinishRun_Failed(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	run, err := db.StartRun(ctx, "bad.log", "{}")
	require.NoError(t, err)
	require.NoError(t, db.FinishRun(ctx, run, nil, 0, errors.New("malformed reference line at line 1")))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunFailed, runs[0].Status)
	assert.Nil(t, runs[0].Reference)
	assert.Contains(t, runs[0].Error, "malformed reference")
}

func TestGetRun_Missing(t *testing.T) {
	db, _ := setupTestDB(t)
	_, err := db.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunVerdicts_UnknownRun(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	rows, err := db.RunVerdicts(ctx, "no-such-run")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, rows)

	rs, err := db.RunResults(ctx, "no-such-run")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, rs)
}

func TestRunResults_RunWithoutVerdicts(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	run, err := db.StartRun(ctx, "empty.log", "{}")
	require.NoError(t, err)

	rs, err := db.RunResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	db, _ := setupTestDB(t)
	err := db.FinishRun(context.Background(), &Run{ID: "missing"}, nil, 0, nil)
	assert.Error(t, err)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	db, clock := setupTestDB(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := db.StartRun(ctx, "run.log", "{}")
		require.NoError(t, err)
		ids = append(ids, run.ID)
		clock.Advance(time.Minute)
	}

	runs, err := db.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordingSink_TeesEmissions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	run, err := db.StartRun(ctx, "run.log", "{}")
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := NewRecordingSink(ctx, db, run, output.NewStreamSink(&buf))
	for _, em := range []calibration.Emission{
		{SensorID: "mon-1", Family: calibration.Monoxide, Verdict: calibration.VerdictKeep, Readings: 4},
		{SensorID: "mon-2", Family: calibration.Monoxide, Verdict: calibration.VerdictInsufficientData},
	} {
		require.NoError(t, sink.Write(em))
	}
	require.NoError(t, sink.Commit())
	assert.Equal(t, 2, sink.Recorded())
	assert.Equal(t, 2, strings.Count(buf.String(), "mon-"))

	rows, err := db.RunVerdicts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "mon-2", rows[1].SensorID)
	assert.Equal(t, calibration.VerdictInsufficientData, rows[1].Verdict)
}

type countingSink struct {
	writes, commits int
}

func (s *countingSink) Write(calibration.Emission) error { s.writes++; return nil }
func (s *countingSink) Commit() error { s.commits++; return nil }

func TestRecordingSink_Batches(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	run, err := db.StartRun(ctx, "run.log", "{}")
	require.NoError(t, err)

	next := &countingSink{}
	sink := NewRecordingSink(ctx, db, run, next)
	sink.batchSize = 2
	for i := 0; i < 5; i++ {
		em := calibration.Emission{SensorID: fmt.Sprintf("hum-%d", i), Family: calibration.Humidity, Verdict: calibration.VerdictKeep, Readings: 1}
		require.NoError(t, sink.Write(em))
	}

	// Two full batches are committed; the fifth verdict is still pending.
	assert.Equal(t, 4, sink.Recorded())
	rows, err := db.RunVerdicts(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, 5, next.writes)

	require.NoError(t, sink.Commit())
	assert.Equal(t, 5, sink.Recorded())
	assert.Equal(t, 1, next.commits)
	rows, err = db.RunVerdicts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "hum-4", rows[4].SensorID)
}

func TestRecordingSink_FlushKeepsVerdictsOfFailedRun(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	run, err := db.StartRun(ctx, "run.log", "{}")
	require.NoError(t, err)

	next := &countingSink{}
	sink := NewRecordingSink(ctx, db, run, next)
	require.NoError(t, sink.Write(calibration.Emission{SensorID: "temp-1", Family: calibration.Thermometer, Verdict: calibration.VerdictPrecise}))
	cancel()

	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Flush())
	assert.Equal(t, 1, sink.Recorded())
	assert.Zero(t, next.commits)

	require.NoError(t, db.FinishRun(context.Background(), run, nil, sink.Recorded(), errors.New("malformed record at line 9")))
	got, err := db.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Equal(t, 1, got.Verdicts)
}

func TestRecordingSink_StoreErrorStopsForwarding(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	// No run row exists, so the foreign key rejects the insert.
	var buf bytes.Buffer
	sink := NewRecordingSink(ctx, db, &Run{ID: "missing"}, output.NewStreamSink(&buf))
	err := sink.Write(calibration.Emission{SensorID: "temp-1", Verdict: calibration.VerdictPrecise})
	require.Error(t, err)
	assert.Empty(t, buf.String())
	assert.Zero(t, sink.Recorded())
	assert.NoError(t, sink.Flush())
}
