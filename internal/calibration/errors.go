package calibration

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. The typed errors below unwrap to these so callers can
// test with errors.Is and extract detail with errors.As.
var (
	ErrMalformedReference  = errors.New("malformed reference line")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrUnknownSensorFamily = errors.New("unknown sensor family")
)

// MalformedReferenceError reports a missing or invalid reference line.
type MalformedReferenceError struct {
	Content string
	Reason  string
}

func (e *MalformedReferenceError) Error() string {
	if e.Content == "" {
		return fmt.Sprintf("%v at line 1: %s", ErrMalformedReference, e.Reason)
	}
	return fmt.Sprintf("%v at line 1: %s: %q", ErrMalformedReference, e.Reason, e.Content)
}

func (e *MalformedReferenceError) Unwrap() error { return ErrMalformedReference }

// MalformedRecordError reports an invalid header or reading line.
// Line is 1-based over the whole log, counting the reference line.
type MalformedRecordError struct {
	Line    int
	Content string
	Reason  string
	Err     error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("%v at line %d: %s: %q", ErrMalformedRecord, e.Line, e.Reason, e.Content)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRecord, e.Err}
	}
	return []error{ErrMalformedRecord}
}

// UnknownSensorFamilyError reports a family outside the supported set
// reaching evaluation. The parser rejects such families upstream.
type UnknownSensorFamilyError struct {
	Family Family
}

func (e *UnknownSensorFamilyError) Error() string {
	return fmt.Sprintf("%v %q", ErrUnknownSensorFamily, string(e.Family))
}

func (e *UnknownSensorFamilyError) Unwrap() error { return ErrUnknownSensorFamily }
