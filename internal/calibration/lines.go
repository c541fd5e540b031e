package calibration

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxLineBytes bounds the length of a single log line.
const MaxLineBytes = 1024 * 1024

// LineReader hands out log lines one at a time together with their 1-based
// line number. It is shared by ReadReference and the RecordStream so both
// consume the same single pass over the input.
type LineReader struct {
	sc   *bufio.Scanner
	line int
	err  error
}

// NewLineReader wraps r. The reader is consumed lazily.
func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &LineReader{sc: sc}
}

// Next returns the next line without its terminator (a trailing '\r' is also
// dropped) and its line number. It returns io.EOF once the input is exhausted.
func (lr *LineReader) Next() (string, int, error) {
	if lr.err != nil {
		return "", lr.line, lr.err
	}
	if !lr.sc.Scan() {
		err := lr.sc.Err()
		switch {
		case err == nil:
			lr.err = io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			lr.line++
			lr.err = &MalformedRecordError{
				Line:   lr.line,
				Reason: fmt.Sprintf("line exceeds %d bytes", MaxLineBytes),
				Err:    err,
			}
		default:
			lr.err = fmt.Errorf("read line %d: %w", lr.line+1, err)
		}
		return "", lr.line, lr.err
	}
	lr.line++
	text := lr.sc.Text()
	if n := len(text); n > 0 && text[n-1] == '\r' {
		text = text[:n-1]
	}
	return text, lr.line, nil
}

// Line returns the number of the last line handed out.
func (lr *LineReader) Line() int {
	return lr.line
}
