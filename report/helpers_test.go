package report_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-export/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func employeeRecord(resultID any, id, name string, baseline any) report.Record {
	class := map[string]any{"ClassF": "F", "ClassT": "Team A"}
	if id != "" {
		class["ClassD"] = id
	}
	rec := report.Record{
		"ClassHash":       class,
		"DescriptionHash": map[string]any{"DescriptionA": name, "DescriptionC": "Hanoi"},
		"NumHash":         map[string]any{"NumS": baseline},
	}
	if resultID != nil {
		rec["ResultId"] = resultID
	}
	return rec
}

func leaveRecord(resultID, date, leaveType string, hours any) report.Record {
	class := map[string]any{"ClassA": leaveType}
	if resultID != "" {
		class["ClassE"] = resultID
	}
	if hours != nil {
		class["ClassB"] = hours
	}
	rec := report.Record{"ClassHash": class}
	if date != "" {
		rec["DateHash"] = map[string]any{"DateC": date}
	}
	return rec
}

func mustMonth(t *testing.T, s string) report.Month {
	t.Helper()
	m, err := report.ParseMonth(s)
	require.NoError(t, err)
	return m
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func warnings(hook *test.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

// recordingWriter is a SheetWriter that keeps everything in memory.
type recordingWriter struct {
	title  string
	cells  map[[2]int]any
	styles []report.StyleDirective
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{cells: make(map[[2]int]any)}
}

func (w *recordingWriter) SetTitle(title string) error { w.title = title; return nil }

func (w *recordingWriter) SetCell(col, row int, value any) error {
	w.cells[[2]int{col, row}] = value
	return nil
}

func (w *recordingWriter) SetStyle(rng report.CellRange, style report.Style) error {
	w.styles = append(w.styles, report.StyleDirective{Range: rng, Style: style})
	return nil
}
