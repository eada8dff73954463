package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FF5F87"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))
)

// TableSink buffers rows and renders them as a bordered terminal table on Flush.
type TableSink struct {
	w      io.Writer
	rows   [][]string
	failed map[int]bool
}

// NewTableSink writes to w.
func NewTableSink(w io.Writer) *TableSink {
	return &TableSink{w: w, failed: make(map[int]bool)}
}

func (s *TableSink) Report(row Row) error {
	if row.Err != nil {
		s.failed[len(s.rows)] = true
	}
	s.rows = append(s.rows, textCells(row))
	return nil
}

// Flush renders the buffered rows and clears the buffer.
func (s *TableSink) Flush() error {
	if len(s.rows) == 0 {
		return nil
	}
	failed := s.failed
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(s.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed[row]:
				return failedStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(s.w, t.Render())
	s.rows = nil
	s.failed = make(map[int]bool)
	return errors.Wrap(err, "render report table")
}
