package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	valuePlaces  = 5
	errorPlaces  = 4
	notAvailable = "n/a"
)

var headers = []string{"method", "value", "estimated error", "actual error"}

// TextSink writes the fixed-width comparison table.
type TextSink struct {
	w             io.Writer
	headerWritten bool
}

// NewTextSink writes to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Report(row Row) error {
	if !s.headerWritten {
		if err := s.writeHeader(); err != nil {
			return err
		}
		s.headerWritten = true
	}
	_, err := fmt.Fprintln(s.w, formatLine(textCells(row)))
	return errors.Wrap(err, "write report row")
}

func (s *TextSink) Flush() error { return nil }

func (s *TextSink) writeHeader() error {
	header := formatLine(headers)
	_, err := fmt.Fprintf(s.w, "\n%s\n%s\n", header, strings.Repeat("-", len(header)))
	return errors.Wrap(err, "write report header")
}

func formatLine(cells []string) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = fmt.Sprintf("%17s", c)
	}
	return strings.Join(padded, " |")
}

// textCells label, value, estimated error and actual error of row.
func textCells(row Row) []string {
	if row.Err != nil {
		return []string{row.Label, "failed", notAvailable, notAvailable}
	}
	estimate := notAvailable
	if row.HasErrorEstimate && row.ErrorEstimate != 0 {
		estimate = fixed(row.ErrorEstimate, errorPlaces)
	}
	return []string{
		row.Label,
		fixed(row.Value, valuePlaces),
		estimate,
		fixed(row.ActualError(), errorPlaces),
	}
}

// fixed renders v with the given places, n/a when it is not finite.
func fixed(v float64, places int32) string {
	if !finite(v) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
