package calibration

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// TimestampLayout is the fixed minute-resolution timestamp format of reading
// lines (YYYY-MM-DDTHH:MM).
const TimestampLayout = "2006-01-02T15:04"

// RecordStream lazily turns the lines after the reference line into Records.
// It is single-pass and not restartable: once it returns an error (including
// io.EOF) every later call returns the same error.
type RecordStream struct {
	lines  *LineReader
	log    *monitoring.Logger
	active *SensorKey
	err    error
}

// NewRecordStream reads records from lr, which must already be positioned
// after the reference line.
func NewRecordStream(lr *LineReader, log *monitoring.Logger) *RecordStream {
	return &RecordStream{lines: lr, log: log}
}

// Next returns the next header or reading record, skipping blank lines.
// It returns io.EOF at the end of the log and a *MalformedRecordError for any
// line that is neither a valid header nor a valid reading.
func (s *RecordStream) Next() (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}
	if s.lines.Line() == 0 {
		return Record{}, s.fail(errors.New("record stream started before the reference line was read"))
	}

	for {
		text, line, err := s.lines.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
				return Record{}, io.EOF
			}
			return Record{}, s.fail(err)
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		rec, err := s.parseLine(fields, text, line)
		if err != nil {
			return Record{}, s.fail(err)
		}
		return rec, nil
	}
}

func (s *RecordStream) fail(err error) error {
	s.err = err
	return err
}

func (s *RecordStream) parseLine(fields []string, text string, line int) (Record, error) {
	if len(fields) != 2 {
		return Record{}, &MalformedRecordError{Line: line, Content: text, Reason: fmt.Sprintf("expected 2 fields, got %d", len(fields))}
	}

	if family, ok := ParseFamily(fields[0]); ok {
		key := SensorKey{Family: family, ID: fields[1]}
		s.active = &key
		s.log.Tracef("line %d: sensor header %s", line, key)
		return Record{Kind: RecordHeader, Line: line, Key: key}, nil
	}

	if s.active == nil {
		return Record{}, &MalformedRecordError{Line: line, Content: text, Reason: "reading before any sensor header"}
	}

	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return Record{}, &MalformedRecordError{Line: line, Content: text, Reason: "invalid timestamp", Err: err}
	}

	value, err := parseValue(s.active.Family, fields[1])
	if err != nil {
		return Record{}, &MalformedRecordError{Line: line, Content: text, Reason: fmt.Sprintf("invalid %s value", s.active.Family), Err: err}
	}

	return Record{
		Kind: RecordReading,
		Line: line,
		Key:  *s.active,
		Reading: Reading{
			Family:    s.active.Family,
			SensorID:  s.active.ID,
			Timestamp: ts,
			Value:     value,
		},
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	// time.Parse tolerates a single-digit hour; the log format does not.
	if len(s) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q does not match %s", s, TimestampLayout)
	}
	return time.Parse(TimestampLayout, s)
}

func parseValue(f Family, s string) (float64, error) {
	if f == Monoxide {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	}
	return parseDecimal(s)
}
