package calibration

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReferenceMarker is the first token of the reference line.
const ReferenceMarker = "reference"

// ReadReference consumes line 1 of the log and returns the reference triple.
// It must be called before any record is read from lr.
func ReadReference(lr *LineReader) (Reference, error) {
	if lr.Line() != 0 {
		return Reference{}, &MalformedReferenceError{Reason: fmt.Sprintf("reference must be read from line 1, reader is at line %d", lr.Line())}
	}

	line, _, err := lr.Next()
	if errors.Is(err, io.EOF) {
		return Reference{}, &MalformedReferenceError{Reason: "log is empty"}
	}
	if err != nil {
		return Reference{}, err
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != ReferenceMarker {
		return Reference{}, &MalformedReferenceError{Content: line, Reason: "log must start with a reference line"}
	}
	if len(fields) != 4 {
		return Reference{}, &MalformedReferenceError{Content: line, Reason: fmt.Sprintf("expected 3 reference values, got %d", len(fields)-1)}
	}

	var vals [3]float64
	names := [3]string{"temperature", "humidity", "monoxide"}
	for i := range vals {
		v, err := parseDecimal(fields[i+1])
		if err != nil {
			return Reference{}, &MalformedReferenceError{Content: line, Reason: fmt.Sprintf("invalid %s reference %q", names[i], fields[i+1])}
		}
		vals[i] = v
	}

	return Reference{Temperature: vals[0], Humidity: vals[1], Monoxide: vals[2]}, nil
}
