package report

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/storage/valuations"
)

type recordSaver interface {
	Save(rec valuations.Record) (uint64, error)
}

// JournalSink appends every row to the valuation journal under one run id.
type JournalSink struct {
	store recordSaver
	runID string
	seq   int
	now   func() time.Time
}

// NewJournalSink journals rows of the run identified by runID.
func NewJournalSink(store recordSaver, runID string) *JournalSink {
	return &JournalSink{store: store, runID: runID, now: time.Now}
}

func (s *JournalSink) Report(row Row) error {
	rec := valuations.Record{
		RunID:            s.runID,
		Seq:              s.seq,
		Label:            row.Label,
		Engine:           row.Engine,
		Value:            row.Value,
		ErrorEstimate:    row.ErrorEstimate,
		HasErrorEstimate: row.HasErrorEstimate,
		Reference:        row.Reference,
		Elapsed:          row.Elapsed,
		At:               s.now().UTC(),
	}
	if row.Err != nil {
		rec.Error = row.Err.Error()
	}
	// json has no encoding for non-finite numbers
	if !finite(rec.ErrorEstimate) {
		rec.ErrorEstimate, rec.HasErrorEstimate = 0, false
	}
	if !finite(rec.Value) {
		rec.Value = 0
	}
	if !finite(rec.Reference) {
		rec.Reference = 0
	}
	if _, err := s.store.Save(rec); err != nil {
		return errors.Wrapf(err, "journal %s", row.Label)
	}
	s.seq++
	return nil
}

func (s *JournalSink) Flush() error { return nil }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
