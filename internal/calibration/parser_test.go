package calibration

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/calibration.report/internal/monitoring"
)

const sampleLog = `reference 70.0 45.0 6
thermometer temp-1
2025-04-28T22:00 70.2
2025-04-28T22:01 69.8
humidity hum-1
2025-04-28T22:00 45.1
monoxide mon-1
2025-04-28T22:00 5
`

// newStream returns a RecordStream positioned after the reference line.
func newStream(t *testing.T, input string) *RecordStream {
	t.Helper()
	lr := NewLineReader(strings.NewReader(input))
	_, err := ReadReference(lr)
	require.NoError(t, err)
	return NewRecordStream(lr, monitoring.Discard())
}

func drain(t *testing.T, s *RecordStream) ([]Record, error) {
	t.Helper()
	var out []Record
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRecordStream_ParsesHeadersAndReadings(t *testing.T) {
	recs, err := drain(t, newStream(t, sampleLog))
	require.NoError(t, err)

	temp1 := SensorKey{Family: Thermometer, ID: "temp-1"}
	hum1 := SensorKey{Family: Humidity, ID: "hum-1"}
	mon1 := SensorKey{Family: Monoxide, ID: "mon-1"}

	want := []Record{
		{Kind: RecordHeader, Line: 2, Key: temp1},
		{Kind: RecordReading, Line: 3, Key: temp1, Reading: Reading{Family: Thermometer, SensorID: "temp-1", Timestamp: ts("2025-04-28T22:00"), Value: 70.2}},
		{Kind: RecordReading, Line: 4, Key: temp1, Reading: Reading{Family: Thermometer, SensorID: "temp-1", Timestamp: ts("2025-04-28T22:01"), Value: 69.8}},
		{Kind: RecordHeader, Line: 5, Key: hum1},
		{Kind: RecordReading, Line: 6, Key: hum1, Reading: Reading{Family: Humidity, SensorID: "hum-1", Timestamp: ts("2025-04-28T22:00"), Value: 45.1}},
		{Kind: RecordHeader, Line: 7, Key: mon1},
		{Kind: RecordReading, Line: 8, Key: mon1, Reading: Reading{Family: Monoxide, SensorID: "mon-1", Timestamp: ts("2025-04-28T22:00"), Value: 5}},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordStream_EmptyBody(t *testing.T) {
	recs, err := drain(t, newStream(t, "reference 70.0 45.0 6\n"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordStream_BlankLinesAdvanceLineCounter(t *testing.T) {
	input := "reference 70.0 45.0 6\n\nthermometer temp-1\n   \n2025-04-28T22:00 70.2\n\n2025-04-28T22:01 bad\n"
	s := newStream(t, input)

	rec, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Line)

	rec, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Line)

	_, err = s.Next()
	var recErr *MalformedRecordError
	require.True(t, errors.As(err, &recErr), "got %v", err)
	assert.Equal(t, 7, recErr.Line)
	assert.Equal(t, "2025-04-28T22:01 bad", recErr.Content)
}

func TestRecordStream_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		line   int
		reason string
	}{
		{"reading before header", "2025-04-28T22:00 70.2\n", 2, "reading before any sensor header"},
		{"one field", "thermometer\n", 2, "expected 2 fields, got 1"},
		{"three fields", "thermometer temp-1\n2025-04-28T22:00 70.2 extra\n", 3, "expected 2 fields, got 3"},
		{"unknown family before header", "barometer bar-1\n", 2, "reading before any sensor header"},
		{"unknown family after header", "thermometer temp-1\nbarometer bar-1\n", 3, "invalid timestamp"},
		{"bad timestamp", "thermometer temp-1\n2025-04-28 70.2\n", 3, "invalid timestamp"},
		{"single digit hour", "thermometer temp-1\n2025-04-28T2:00 70.2\n", 3, "invalid timestamp"},
		{"impossible date", "thermometer temp-1\n2025-02-30T22:00 70.2\n", 3, "invalid timestamp"},
		{"bad decimal", "humidity hum-1\n2025-04-28T22:00 wet\n", 3, "invalid humidity value"},
		{"non finite decimal", "thermometer temp-1\n2025-04-28T22:00 Inf\n", 3, "invalid thermometer value"},
		{"hex float", "thermometer temp-1\n2025-04-28T22:00 0x1.18p6\n", 3, "invalid thermometer value"},
		{"digit separator", "thermometer temp-1\n2025-04-28T22:00 7_0.0\n", 3, "invalid thermometer value"},
		{"hex monoxide", "monoxide mon-1\n2025-04-28T22:00 0x5\n", 3, "invalid monoxide value"},
		{"decimal monoxide", "monoxide mon-1\n2025-04-28T22:00 5.5\n", 3, "invalid monoxide value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := drain(t, newStream(t, "reference 70.0 45.0 6\n"+tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)

			var recErr *MalformedRecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.line, recErr.Line)
			assert.Contains(t, recErr.Reason, tt.reason)
			assert.Contains(t, err.Error(), "line")
		})
	}
}

func TestRecordStream_ErrorIsSticky(t *testing.T) {
	s := newStream(t, "reference 70.0 45.0 6\nnonsense\nthermometer temp-1\n")

	_, first := s.Next()
	require.Error(t, first)
	_, second := s.Next()
	assert.Equal(t, first, second)
}

func TestRecordStream_EOFIsSticky(t *testing.T) {
	s := newStream(t, "reference 70.0 45.0 6\n")
	for i := 0; i < 3; i++ {
		_, err := s.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestRecordStream_RequiresReference(t *testing.T) {
	s := NewRecordStream(NewLineReader(strings.NewReader(sampleLog)), nil)
	_, err := s.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestRecordStream_MonoxideIsInteger(t *testing.T) {
	recs, err := drain(t, newStream(t, "reference 70.0 45.0 6\nmonoxide mon-1\n2025-04-28T22:00 -3\n2025-04-28T22:01 +12\n"))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, -3.0, recs[1].Reading.Value)
	assert.Equal(t, 12.0, recs[2].Reading.Value)
}

func TestRecordStream_LineTooLong(t *testing.T) {
	long := "thermometer " + strings.Repeat("x", MaxLineBytes+1) + "\n"
	_, err := drain(t, newStream(t, "reference 70.0 45.0 6\n"+long))
	require.Error(t, err)

	var recErr *MalformedRecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Line)
}

func TestRecordStream_CRLF(t *testing.T) {
	input := strings.ReplaceAll(sampleLog, "\n", "\r\n")
	recs, err := drain(t, newStream(t, input))
	require.NoError(t, err)
	assert.Len(t, recs, 7)
}
