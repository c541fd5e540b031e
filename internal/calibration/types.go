package calibration

import (
	"encoding/json"
	"fmt"
	"time"
)

// Family is the closed set of sensor families the classifier understands.
type Family string

const (
	Thermometer Family = "thermometer"
	Humidity    Family = "humidity"
	Monoxide    Family = "monoxide"
)

// Families lists every supported family in log order of the reference line.
var Families = []Family{Thermometer, Humidity, Monoxide}

// ParseFamily maps a header token to its Family.
func ParseFamily(s string) (Family, bool) {
	switch Family(s) {
	case Thermometer, Humidity, Monoxide:
		return Family(s), true
	}
	return "", false
}

// SensorKey identifies a sensor group.
type SensorKey struct {
	Family Family
	ID     string
}

func (k SensorKey) String() string {
	return string(k.Family) + " " + k.ID
}

// Reference holds the known-correct values a run is calibrated against.
type Reference struct {
	Temperature float64
	Humidity    float64
	Monoxide    float64
}

// For returns the reference value compared against readings of family f.
func (r Reference) For(f Family) (float64, error) {
	switch f {
	case Thermometer:
		return r.Temperature, nil
	case Humidity:
		return r.Humidity, nil
	case Monoxide:
		return r.Monoxide, nil
	}
	return 0, &UnknownSensorFamilyError{Family: f}
}

// Reading is a single timestamped value of one sensor. Monoxide values are
// integers held exactly in Value.
type Reading struct {
	Family    Family
	SensorID  string
	Timestamp time.Time
	Value     float64
}

// Key returns the group key of the reading.
func (r Reading) Key() SensorKey {
	return SensorKey{Family: r.Family, ID: r.SensorID}
}

// RecordKind distinguishes header records from reading records.
type RecordKind int

const (
	RecordHeader RecordKind = iota + 1
	RecordReading
)

func (k RecordKind) String() string {
	switch k {
	case RecordHeader:
		return "header"
	case RecordReading:
		return "reading"
	}
	return fmt.Sprintf("RecordKind(%d)", int(k))
}

// Record is one parsed, non-blank log line. Header records open a sensor
// group; reading records carry a Reading for the active sensor.
type Record struct {
	Kind    RecordKind
	Line    int
	Key     SensorKey
	Reading Reading
}

// Verdict is the categorical classification of a sensor group.
type Verdict string

const (
	VerdictUltraPrecise     Verdict = "ultra precise"
	VerdictVeryPrecise      Verdict = "very precise"
	VerdictPrecise          Verdict = "precise"
	VerdictKeep             Verdict = "keep"
	VerdictDiscard          Verdict = "discard"
	VerdictInsufficientData Verdict = "insufficient data"
)

// Emission is the verdict for one completed sensor group.
type Emission struct {
	SensorID string
	Family   Family
	Verdict  Verdict
	Readings int
}

// MarshalJSON encodes the emission as the single-entry object
// {"<sensor id>": "<verdict>"}.
func (e Emission) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Verdict{e.SensorID: e.Verdict})
}

// ResultSet maps sensor identifiers to their final verdict.
type ResultSet map[string]Verdict

// Add folds an emission into the set. A later emission for the same sensor
// identifier replaces the earlier one.
func (rs ResultSet) Add(e Emission) {
	rs[e.SensorID] = e.Verdict
}
