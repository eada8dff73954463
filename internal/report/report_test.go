package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/storage/valuations"
)

func TestTextSink_Layout(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)

	require.NoError(t, sink.Report(Row{Label: "analytic", Value: 0.0300238, Reference: 0.0300238}))
	require.NoError(t, sink.Report(Row{Label: "MC (crude)", Value: 0.0284, ErrorEstimate: 0.00362, HasErrorEstimate: true, Reference: 0.0300238}))
	require.NoError(t, sink.Report(Row{Label: "broken", Err: domain.ErrNumerical}))
	require.NoError(t, sink.Flush())

	header := fmt.Sprintf("%17s |%17s |%17s |%17s", "method", "value", "estimated error", "actual error")
	expected := strings.Join([]string{
		"",
		header,
		strings.Repeat("-", len(header)),
		fmt.Sprintf("%17s |%17s |%17s |%17s", "analytic", "0.03002", "n/a", "0.0000"),
		fmt.Sprintf("%17s |%17s |%17s |%17s", "MC (crude)", "0.02840", "0.0036", "0.0016"),
		fmt.Sprintf("%17s |%17s |%17s |%17s", "broken", "failed", "n/a", "n/a"),
		"",
	}, "\n")
	assert.Equal(t, expected, buf.String())
}

func TestTextSink_UnavailableCells(t *testing.T) {
	tests := []struct {
		name     string
		row      Row
		estimate string
		actual   string
	}{
		{name: "zero estimate", row: Row{Label: "MC", Value: 0.03, HasErrorEstimate: true, Reference: 0.03}, estimate: "n/a", actual: "0.0000"},
		{name: "infinite estimate", row: Row{Label: "MC", Value: 0.03, ErrorEstimate: math.Inf(1), HasErrorEstimate: true, Reference: 0.03}, estimate: "n/a", actual: "0.0000"},
		{name: "nan reference", row: Row{Label: "MC", Value: 0.03, ErrorEstimate: 0.001, HasErrorEstimate: true, Reference: math.NaN()}, estimate: "0.0010", actual: "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewTextSink(&buf)
			require.NotPanics(t, func() { require.NoError(t, sink.Report(tt.row)) })

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			expected := fmt.Sprintf("%17s |%17s |%17s |%17s", "MC", "0.03000", tt.estimate, tt.actual)
			assert.Equal(t, expected, lines[len(lines)-1])
		})
	}
}

func TestRow_ActualError(t *testing.T) {
	assert.InDelta(t, 0.5, Row{Value: 1, Reference: 1.5}.ActualError(), 1e-15)
	assert.InDelta(t, 0.5, Row{Value: 2, Reference: 1.5}.ActualError(), 1e-15)
}

func TestTableSink_RendersOnFlush(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTableSink(&buf)

	require.NoError(t, sink.Report(Row{Label: "binomial (CRR)", Value: 0.030034, Reference: 0.0300238}))
	require.NoError(t, sink.Report(Row{Label: "broken", Err: errors.New("boom")}))
	assert.Empty(t, buf.String())

	require.NoError(t, sink.Flush())
	out := buf.String()
	assert.Contains(t, out, "method")
	assert.Contains(t, out, "binomial (CRR)")
	assert.Contains(t, out, "0.03003")
	assert.Contains(t, out, "failed")

	buf.Reset()
	require.NoError(t, sink.Flush())
	assert.Empty(t, buf.String())
}

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) Save(rec valuations.Record) (uint64, error) {
	ret := m.Called(rec)
	return ret.Get(0).(uint64), ret.Error(1)
}

func TestJournalSink(t *testing.T) {
	store := &mockSaver{}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := NewJournalSink(store, "run-7")
	sink.now = func() time.Time { return at }

	store.On("Save", valuations.Record{RunID: "run-7", Seq: 0, Label: "analytic", Engine: "analytic", Value: 0.03, Reference: 0.03, At: at}).
		Return(uint64(1), nil).Once()
	store.On("Save", valuations.Record{RunID: "run-7", Seq: 1, Label: "broken", Engine: "fd", Error: "numerical failure", At: at}).
		Return(uint64(2), nil).Once()

	require.NoError(t, sink.Report(Row{Label: "analytic", Engine: "analytic", Value: 0.03, Reference: 0.03}))
	require.NoError(t, sink.Report(Row{Label: "broken", Engine: "fd", Err: domain.ErrNumerical}))
	store.AssertExpectations(t)
}

func TestJournalSink_NonFiniteValues(t *testing.T) {
	store := &mockSaver{}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := NewJournalSink(store, "run-8")
	sink.now = func() time.Time { return at }

	store.On("Save", valuations.Record{RunID: "run-8", Label: "MC", Engine: "montecarlo", Value: 0.03, At: at}).
		Return(uint64(1), nil).Once()

	require.NoError(t, sink.Report(Row{
		Label: "MC", Engine: "montecarlo", Value: 0.03,
		ErrorEstimate: math.Inf(1), HasErrorEstimate: true, Reference: math.NaN(),
	}))
	store.AssertExpectations(t)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Report(row Row) error { return m.Called(row).Error(0) }
func (m *mockSink) Flush() error         { return m.Called().Error(0) }

func TestMultiSink(t *testing.T) {
	ok := &mockSink{}
	failing := &mockSink{}
	row := Row{Label: "analytic", Value: 0.03}

	ok.On("Report", row).Return(nil)
	ok.On("Flush").Return(nil)
	failing.On("Report", row).Return(errors.New("disk full"))
	failing.On("Flush").Return(nil)

	sinks := MultiSink{failing, ok}
	assert.EqualError(t, sinks.Report(row), "disk full")
	assert.NoError(t, sinks.Flush())

	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}
