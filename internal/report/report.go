// Package report renders valuation rows. Sinks compute the actual error
// against the reference value themselves.
package report

import (
	"math"
	"time"

	"go.uber.org/multierr"
)

// Row one valuation to report.
type Row struct {
	Label            string
	Engine           string
	Value            float64
	ErrorEstimate    float64
	HasErrorEstimate bool
	Reference        float64
	Err              error
	Elapsed          time.Duration
}

// ActualError absolute distance from the reference value.
func (r Row) ActualError() float64 {
	return math.Abs(r.Value - r.Reference)
}

// Sink consumes rows.
type Sink interface {
	Report(row Row) error
	// Flush writes anything buffered.
	Flush() error
}

// MultiSink fans rows out to every sink.
type MultiSink []Sink

func (m MultiSink) Report(row Row) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Report(row))
	}
	return err
}

func (m MultiSink) Flush() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Flush())
	}
	return err
}
