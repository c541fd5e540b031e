// Package calibration classifies sensor calibration logs.
//
// A log starts with a reference line holding the known temperature, humidity
// and carbon-monoxide level, followed by sensor blocks:
//
//	reference 70.0 45.0 6
//	thermometer temp-1
//	2025-04-28T22:00 70.2
//	2025-04-28T22:01 69.8
//	humidity hum-1
//	2025-04-28T22:00 45.1
//
// ReadReference consumes line 1. A RecordStream then yields one Record per
// header or reading line, and a Classifier pulls those records one at a time,
// grouping contiguous readings of the same sensor and emitting a Verdict as
// soon as each group closes. Only the open group's values are held in memory.
//
// Sensor blocks must be contiguous. A sensor identifier that reappears after a
// different sensor starts a new group, and its later verdict replaces the
// earlier one when emissions are folded into a ResultSet.
package calibration
