// Package report aggregates a results file into per-family verdict counts and
// renders them as text, an HTML chart or a PNG chart.
//
// Sensors are bucketed by identifier prefix (temp-, hum-, mon-). The prefix is
// a naming convention of generated logs and is only used here; classification
// never looks at it.
package report

import (
	"sort"
	"strings"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// Bucket counts the verdicts of one sensor family.
type Bucket struct {
	Name     string
	Prefix   string
	Verdicts []calibration.Verdict // display order
	Counts   map[calibration.Verdict]int
	Total    int
}

// Percent returns the share of the bucket with verdict v, in percent.
// An empty bucket reports 0.
func (b Bucket) Percent(v calibration.Verdict) float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Counts[v]) / float64(b.Total) * 100
}

// Stats is the aggregate of one results file.
type Stats struct {
	Buckets []Bucket
	// Other counts sensors whose identifier matches no bucket prefix.
	Other int
}

// Total returns the number of sensors in the results.
func (s Stats) Total() int {
	n := s.Other
	for _, b := range s.Buckets {
		n += b.Total
	}
	return n
}

func newBuckets() []Bucket {
	return []Bucket{
		{
			Name:   "Thermometers",
			Prefix: "temp-",
			Verdicts: []calibration.Verdict{
				calibration.VerdictUltraPrecise,
				calibration.VerdictVeryPrecise,
				calibration.VerdictPrecise,
				calibration.VerdictInsufficientData,
			},
		},
		{
			Name:     "Humidity Sensors",
			Prefix:   "hum-",
			Verdicts: []calibration.Verdict{calibration.VerdictKeep, calibration.VerdictDiscard, calibration.VerdictInsufficientData},
		},
		{
			Name:     "Monoxide Sensors",
			Prefix:   "mon-",
			Verdicts: []calibration.Verdict{calibration.VerdictKeep, calibration.VerdictDiscard, calibration.VerdictInsufficientData},
		},
	}
}

// Compute buckets every sensor of rs by identifier prefix. Verdicts outside a
// bucket's usual vocabulary are still counted and listed after the usual ones.
func Compute(rs calibration.ResultSet) Stats {
	buckets := newBuckets()
	for i := range buckets {
		buckets[i].Counts = make(map[calibration.Verdict]int)
	}

	var st Stats
	for id, verdict := range rs {
		b := bucketFor(buckets, id)
		if b == nil {
			st.Other++
			continue
		}
		b.Counts[verdict]++
		b.Total++
	}

	for i := range buckets {
		buckets[i].Verdicts = appendExtra(buckets[i].Verdicts, buckets[i].Counts)
	}
	st.Buckets = buckets
	return st
}

func bucketFor(buckets []Bucket, id string) *Bucket {
	for i := range buckets {
		if strings.HasPrefix(id, buckets[i].Prefix) {
			return &buckets[i]
		}
	}
	return nil
}

func appendExtra(known []calibration.Verdict, counts map[calibration.Verdict]int) []calibration.Verdict {
	seen := make(map[calibration.Verdict]bool, len(known))
	for _, v := range known {
		seen[v] = true
	}
	var extra []calibration.Verdict
	for v := range counts {
		if !seen[v] {
			extra = append(extra, v)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(known, extra...)
}
