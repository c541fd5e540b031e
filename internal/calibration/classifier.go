package calibration

import (
	"context"
	"errors"
	"io"

	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// RecordSource yields records in log order. *RecordStream implements it.
type RecordSource interface {
	Next() (Record, error)
}

// Classifier groups contiguous records of one sensor and emits a verdict per
// group. It pulls from its source one record at a time and keeps only the
// values of the currently open group.
type Classifier struct {
	ref      Reference
	src      RecordSource
	criteria Criteria
	log      *monitoring.Logger

	open   bool
	key    SensorKey
	values []float64

	err error
}

// NewClassifier returns a Classifier over src.
func NewClassifier(ref Reference, src RecordSource, criteria Criteria, log *monitoring.Logger) *Classifier {
	return &Classifier{ref: ref, src: src, criteria: criteria, log: log}
}

// Next returns the emission of the next completed group, in the order groups
// complete. A header always closes the open group, even an empty one; a
// reading whose sensor differs from the open group also closes it. Next
// returns io.EOF once the source is exhausted and the last group flushed.
// After any error every later call returns the same error.
func (c *Classifier) Next() (Emission, error) {
	if c.err != nil {
		return Emission{}, c.err
	}

	for {
		rec, err := c.src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.err = err
				return Emission{}, err
			}
			c.err = io.EOF
			if c.open {
				return c.flush()
			}
			return Emission{}, io.EOF
		}

		switch rec.Kind {
		case RecordHeader:
			if c.open {
				em, err := c.flush()
				c.start(rec.Key)
				return em, err
			}
			c.start(rec.Key)

		case RecordReading:
			key := rec.Reading.Key()
			if c.open && key != c.key {
				em, err := c.flush()
				c.start(key)
				c.values = append(c.values, rec.Reading.Value)
				return em, err
			}
			if !c.open {
				c.start(key)
			}
			c.values = append(c.values, rec.Reading.Value)
		}
	}
}

// Run pushes every emission to yield until the source is exhausted, ctx is
// cancelled, or yield returns an error.
func (c *Classifier) Run(ctx context.Context, yield func(Emission) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		em, err := c.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := yield(em); err != nil {
			return err
		}
	}
}

func (c *Classifier) start(key SensorKey) {
	c.open = true
	c.key = key
	c.values = c.values[:0]
}

// flush evaluates and closes the open group.
func (c *Classifier) flush() (Emission, error) {
	key, values := c.key, c.values
	c.open = false

	criterion, err := c.criteria.For(key.Family)
	if err != nil {
		c.log.Opsf("no evaluation criteria for sensor family %q", string(key.Family))
		c.err = err
		return Emission{}, err
	}
	reference, err := c.ref.For(key.Family)
	if err != nil {
		c.err = err
		return Emission{}, err
	}

	if len(values) == 0 {
		c.log.Opsf("no readings for %s sensor %s", key.Family, key.ID)
	}
	verdict := criterion.Evaluate(values, reference)
	if key.Family == Thermometer && len(values) > 0 {
		mean, stdDev := MeanStdDev(values)
		c.log.Diagf("thermometer %s: n=%d mean=%.3f std_dev=%.3f reference=%.3f verdict=%q", key.ID, len(values), mean, stdDev, reference, verdict)
	} else {
		c.log.Diagf("%s %s: n=%d reference=%.3f verdict=%q", key.Family, key.ID, len(values), reference, verdict)
	}

	return Emission{SensorID: key.ID, Family: key.Family, Verdict: verdict, Readings: len(values)}, nil
}

// Collect drains c into a ResultSet.
func Collect(ctx context.Context, c *Classifier) (ResultSet, error) {
	rs := ResultSet{}
	err := c.Run(ctx, func(e Emission) error {
		rs.Add(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}
