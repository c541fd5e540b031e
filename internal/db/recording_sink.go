package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/output"
)

// VerdictBatchSize is the number of verdicts a RecordingSink inserts per
// transaction.
const VerdictBatchSize = 1000

// RecordingSink stores every emission of a run before forwarding it to the
// wrapped sink, so the run history is written in the same single pass.
// Inserts are batched in transactions of up to VerdictBatchSize verdicts;
// Commit and Flush store the open batch.
type RecordingSink struct {
	ctx       context.Context
	db        *DB
	run       *Run
	next      output.Sink
	batchSize int

	tx     *sql.Tx
	stmt   *sql.Stmt
	seq    int // verdicts written, stored or pending
	stored int // verdicts in committed batches
}

// NewRecordingSink tees emissions of run into db and next.
func NewRecordingSink(ctx context.Context, db *DB, run *Run, next output.Sink) *RecordingSink {
	return &RecordingSink{
		// Pending verdicts are still stored after ctx is cancelled so the
		// failed run keeps what it classified.
		ctx:       context.WithoutCancel(ctx),
		db:        db,
		run:       run,
		next:      next,
		batchSize: VerdictBatchSize,
	}
}

func (s *RecordingSink) Write(em calibration.Emission) error {
	if s.tx == nil {
		if err := s.begin(); err != nil {
			return err
		}
	}
	_, err := s.stmt.ExecContext(s.ctx, s.run.ID, s.seq, em.SensorID, string(em.Family), string(em.Verdict), em.Readings)
	if err != nil {
		s.rollback()
		return fmt.Errorf("failed to record verdict for %s: %w", em.SensorID, err)
	}
	s.seq++
	if s.seq-s.stored >= s.batchSize {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return s.next.Write(em)
}

// Commit stores the open batch and commits the wrapped sink.
func (s *RecordingSink) Commit() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.next.Commit()
}

// Flush commits the open batch, if any. A failed run calls it instead of
// Commit so the verdicts written before the failure are kept.
func (s *RecordingSink) Flush() error {
	if s.tx == nil {
		return nil
	}
	s.stmt.Close()
	err := s.tx.Commit()
	s.tx, s.stmt = nil, nil
	if err != nil {
		s.seq = s.stored
		return fmt.Errorf("failed to commit verdicts of run %s: %w", s.run.ID, err)
	}
	s.db.log.Tracef("stored %d verdicts of run %s", s.seq-s.stored, s.run.ID)
	s.stored = s.seq
	return nil
}

// Recorded returns the number of verdicts stored in committed batches.
func (s *RecordingSink) Recorded() int {
	return s.stored
}

func (s *RecordingSink) begin() error {
	tx, err := s.db.BeginTx(s.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin verdict batch: %w", err)
	}
	stmt, err := tx.PrepareContext(s.ctx, insertVerdictSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare verdict insert: %w", err)
	}
	s.tx, s.stmt = tx, stmt
	return nil
}

// rollback drops the open batch after a failed insert.
func (s *RecordingSink) rollback() {
	s.stmt.Close()
	s.tx.Rollback()
	s.tx, s.stmt = nil, nil
	s.seq = s.stored
}
