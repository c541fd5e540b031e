// Package output delivers classifier emissions either as one JSON results
// file or as a stream of single-sensor JSON objects.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// EmissionSource yields emissions until io.EOF. *calibration.Classifier
// implements it.
type EmissionSource interface {
	Next() (calibration.Emission, error)
}

// Sink consumes emissions in order. Commit is called once after the last
// emission of a successful run and never after a failed one.
type Sink interface {
	Write(calibration.Emission) error
	Commit() error
}

// Drain pulls every emission from src into sink and commits it. The number of
// emissions written is returned even on error.
func Drain(ctx context.Context, src EmissionSource, sink Sink) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		em, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if err := sink.Write(em); err != nil {
			return n, err
		}
		n++
	}
	return n, sink.Commit()
}

// FileSink accumulates emissions into a ResultSet and writes it as one
// 2-space-indented JSON object on Commit. The destination is replaced
// atomically, so a failed run never leaves a partial results file.
type FileSink struct {
	fs      fsutil.FileSystem
	path    string
	log     *monitoring.Logger
	results calibration.ResultSet
}

// NewFileSink returns a FileSink writing to path on fsys.
func NewFileSink(fsys fsutil.FileSystem, path string, log *monitoring.Logger) *FileSink {
	return &FileSink{fs: fsys, path: path, log: log, results: calibration.ResultSet{}}
}

func (s *FileSink) Write(em calibration.Emission) error {
	if prev, ok := s.results[em.SensorID]; ok {
		s.log.Diagf("sensor %s reported again: %q replaces %q", em.SensorID, em.Verdict, prev)
	}
	s.results.Add(em)
	return nil
}

// Commit writes the accumulated results file.
func (s *FileSink) Commit() error {
	data, err := MarshalResults(s.results)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.fs, s.path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	s.log.Diagf("wrote %d verdicts to %s", len(s.results), s.path)
	return nil
}

// Results returns the verdicts accumulated so far.
func (s *FileSink) Results() calibration.ResultSet {
	return s.results
}

// MarshalResults encodes rs as the results file body: one JSON object with
// 2-space indentation and a trailing newline. An empty set encodes as {}.
func MarshalResults(rs calibration.ResultSet) ([]byte, error) {
	if rs == nil {
		rs = calibration.ResultSet{}
	}
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadResults decodes a results file written by FileSink.
func ReadResults(fsys fsutil.FileSystem, path string) (calibration.ResultSet, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	rs := calibration.ResultSet{}
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return rs, nil
}

// StreamSink prints every emission immediately as its own 2-space-indented
// JSON object.
type StreamSink struct {
	w io.Writer
}

// NewStreamSink returns a StreamSink writing to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Write(em calibration.Emission) error {
	data, err := json.MarshalIndent(em, "", "  ")
	if err != nil {
		return fmt.Errorf("encode emission for %s: %w", em.SensorID, err)
	}
	data = append(data, '\n')
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write emission for %s: %w", em.SensorID, err)
	}
	return nil
}

// Commit is a no-op; every emission is already written.
func (s *StreamSink) Commit() error { return nil }
