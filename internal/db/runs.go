package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded analyze invocation.
type Run struct {
	ID         string
	LogPath    string
	Reference  *calibration.Reference // nil until the reference line was read
	Thresholds string
	StartedAt  time.Time
	FinishedAt *time.Time
	Verdicts   int
	Status     RunStatus
	Error      string
}

// VerdictRow is one stored emission of a run, in emission order.
type VerdictRow struct {
	Seq      int
	SensorID string
	Family   calibration.Family
	Verdict  calibration.Verdict
	Readings int
}

// StartRun inserts a running run for logPath and returns it.
func (db *DB) StartRun(ctx context.Context, logPath, thresholdsJSON string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		LogPath:    logPath,
		Thresholds: thresholdsJSON,
		StartedAt:  db.clock.Now().UTC(),
		Status:     RunRunning,
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO calibration_runs (run_id, log_path, thresholds_json, started_at_ns, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.LogPath, run.Thresholds, run.StartedAt.UnixNano(), string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	db.log.Diagf("started run %s for %s", run.ID, logPath)
	return run, nil
}

const insertVerdictSQL = `
	INSERT INTO calibration_verdicts (run_id, seq, sensor_id, family, verdict, readings)
	VALUES (?, ?, ?, ?, ?, ?)
`

// RecordVerdict stores the seq-th emission of a run.
func (db *DB) RecordVerdict(ctx context.Context, runID string, seq int, em calibration.Emission) error {
	_, err := db.ExecContext(ctx, insertVerdictSQL, runID, seq, em.SensorID, string(em.Family), string(em.Verdict), em.Readings)
	if err != nil {
		return fmt.Errorf("failed to record verdict for %s: %w", em.SensorID, err)
	}
	return nil
}

// FinishRun marks run completed, or failed when runErr is non-nil, and
// stores its reference and verdict count.
func (db *DB) FinishRun(ctx context.Context, run *Run, ref *calibration.Reference, verdicts int, runErr error) error {
	finished := db.clock.Now().UTC()
	run.FinishedAt = &finished
	run.Reference = ref
	run.Verdicts = verdicts
	run.Status = RunCompleted
	run.Error = ""
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}

	var temp, hum, mon sql.NullFloat64
	if ref != nil {
		temp = sql.NullFloat64{Float64: ref.Temperature, Valid: true}
		hum = sql.NullFloat64{Float64: ref.Humidity, Valid: true}
		mon = sql.NullFloat64{Float64: ref.Monoxide, Valid: true}
	}
	errMsg := sql.NullString{String: run.Error, Valid: run.Error != ""}

	res, err := db.ExecContext(ctx, `
		UPDATE calibration_runs
		SET reference_temperature = ?, reference_humidity = ?, reference_monoxide = ?,
		    finished_at_ns = ?, verdict_count = ?, status = ?, error_message = ?
		WHERE run_id = ?
	`, temp, hum, mon, finished.UnixNano(), verdicts, string(run.Status), errMsg, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	db.log.Diagf("finished run %s: status=%s verdicts=%d", run.ID, run.Status, verdicts)
	return nil
}

const runColumns = `run_id, log_path, reference_temperature, reference_humidity, reference_monoxide,
		thresholds_json, started_at_ns, finished_at_ns, verdict_count, status, error_message`

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM calibration_runs
		ORDER BY started_at_ns DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run, or sql.ErrNoRows wrapped when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM calibration_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return r, nil
}

// checkRunExists returns sql.ErrNoRows wrapped when runID was never recorded.
func (db *DB) checkRunExists(ctx context.Context, runID string) error {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM calibration_runs WHERE run_id = ?)`, runID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	if !exists {
		return fmt.Errorf("run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r          Run
		temp, hum  sql.NullFloat64
		mon        sql.NullFloat64
		startedNs  int64
		finishedNs sql.NullInt64
		status     string
		errMsg     sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.LogPath, &temp, &hum, &mon, &r.Thresholds, &startedNs, &finishedNs, &r.Verdicts, &status, &errMsg); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if temp.Valid && hum.Valid && mon.Valid {
		r.Reference = &calibration.Reference{Temperature: temp.Float64, Humidity: hum.Float64, Monoxide: mon.Float64}
	}
	r.StartedAt = time.Unix(0, startedNs).UTC()
	if finishedNs.Valid {
		t := time.Unix(0, finishedNs.Int64).UTC()
		r.FinishedAt = &t
	}
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	return &r, nil
}

// RunVerdicts returns the stored emissions of runID in emission order. An
// unknown runID yields sql.ErrNoRows wrapped.
func (db *DB) RunVerdicts(ctx context.Context, runID string) ([]VerdictRow, error) {
	if err := db.checkRunExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT seq, sensor_id, family, verdict, readings
		FROM calibration_verdicts
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []VerdictRow
	for rows.Next() {
		var (
			v       VerdictRow
			family  string
			verdict string
		)
		if err := rows.Scan(&v.Seq, &v.SensorID, &family, &verdict, &v.Readings); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Family = calibration.Family(family)
		v.Verdict = calibration.Verdict(verdict)
		out = append(out, v)
	}
	return out, rows.Err()
}

// RunResults folds the stored emissions of runID into the ResultSet the
// results file of that run would hold. An unknown runID yields sql.ErrNoRows
// wrapped.
func (db *DB) RunResults(ctx context.Context, runID string) (calibration.ResultSet, error) {
	rows, err := db.RunVerdicts(ctx, runID)
	if err != nil {
		return nil, err
	}
	rs := calibration.ResultSet{}
	for _, v := range rows {
		rs.Add(calibration.Emission{SensorID: v.SensorID, Family: v.Family, Verdict: v.Verdict, Readings: v.Readings})
	}
	return rs, nil
}
