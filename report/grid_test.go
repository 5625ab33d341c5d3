package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-export/report"
)

func buildApril(t *testing.T, ds report.Dataset) *report.Report {
	t.Helper()
	return report.NewBuilder(nil).Build(mustMonth(t, "2025-04"), ds)
}

func TestGrid_Header(t *testing.T) {
	g := buildApril(t, report.Dataset{}).Grid

	require.Len(t, g.Header, 4+31+6)
	assert.Equal(t, []string{"No.", "ID LGVN", "Name", "Total Leave Hours (Apr 2025)"}, g.Header[:4])
	assert.Equal(t, "26\nWed", g.Header[report.FirstDateCol-1])
	assert.Equal(t, "25\nFri", g.Header[g.Layout.LastDateCol()-1])
	assert.Equal(t, []string{
		"Used Hours", "Remaining Hours", "Mượn phép", "Nghỉ không lương", "Unpaid Leave", "NOTE",
	}, g.Header[g.Layout.UsedCol()-1:])

	assert.Equal(t, "Apr leave", g.Title)
	assert.Equal(t, "Attendance_Apr_2025.xlsx", g.Filename)
}

func TestGrid_Layout(t *testing.T) {
	l := report.Layout{DateCount: 31}

	assert.Equal(t, 5, l.DateCol(0))
	assert.Equal(t, 35, l.LastDateCol())
	assert.Equal(t, 36, l.UsedCol())
	assert.Equal(t, 37, l.RemainingCol())
	assert.Equal(t, 38, l.BorrowedCol())
	assert.Equal(t, 39, l.UnpaidCol())
	assert.Equal(t, 40, l.UnpaidMirrorCol())
	assert.Equal(t, 41, l.NoteCol())
	assert.Equal(t, 41, l.ColumnCount())
}

func TestGrid_EmptyDatasetRendersHeaderOnly(t *testing.T) {
	g := buildApril(t, report.Dataset{}).Grid

	assert.Empty(t, g.Rows)
	assert.Empty(t, g.Styles)
	assert.NotEmpty(t, g.Header)
}

func TestGrid_ExampleEmployee(t *testing.T) {
	// GIVEN: E1 with 40 baseline hours, leave on Wed 04-02 and Sat 04-05
	// THEN: one -8 cell, used 8, remaining 32 (yellow, since 32 > 20)

	r := buildApril(t, report.Dataset{
		Employees: []report.Record{employeeRecord("R1", "E1", "Alice", 40)},
		Leaves: []report.Record{
			leaveRecord("R1", "2025-04-02", "Annual", "8"),
			leaveRecord("R1", "2025-04-05", "Annual", "8"),
		},
	})
	g := r.Grid
	l := g.Layout

	require.Len(t, g.Rows, 1)
	row := g.Rows[0]
	assert.Equal(t, 1, row[report.ColSeq-1])
	assert.Equal(t, "E1", row[report.ColID-1])
	assert.Equal(t, "Alice", row[report.ColName-1])
	assert.Equal(t, 40.0, row[report.ColBaseline-1])

	// 2025-04-02 is the 8th window day
	assert.Equal(t, -8.0, row[l.DateCol(7)-1])
	assert.Nil(t, row[l.DateCol(10)-1], "Saturday stays blank")

	filled := 0
	for i := 0; i < l.DateCount; i++ {
		if row[l.DateCol(i)-1] != nil {
			filled++
		}
	}
	assert.Equal(t, 1, filled)

	assert.Equal(t, 8.0, row[l.UsedCol()-1])
	assert.Equal(t, 32.0, row[l.RemainingCol()-1])
	assert.Nil(t, row[l.BorrowedCol()-1])
	assert.Nil(t, row[l.UnpaidCol()-1])
	assert.Nil(t, row[l.UnpaidMirrorCol()-1])
	assert.Nil(t, row[l.NoteCol()-1])

	require.Len(t, g.Styles, 1)
	assert.Equal(t, report.SingleCell(l.RemainingCol(), 2), g.Styles[0].Range)
	assert.Equal(t, report.FillYellow, g.Styles[0].Style.Fill)
}

func TestGrid_RemainingThresholdIsStrict(t *testing.T) {
	r := buildApril(t, report.Dataset{
		Employees: []report.Record{
			employeeRecord("R1", "E1", "Exactly 20", 28),
			employeeRecord("R2", "E2", "Just above", "20.01"),
		},
		Leaves: []report.Record{leaveRecord("R1", "2025-04-02", "Annual", "8")},
	})

	require.Len(t, r.Grid.Styles, 1)
	assert.Equal(t, report.FirstDataRow+1, r.Grid.Styles[0].Range.FromRow)
}

func TestGrid_UnpaidAndBorrowed(t *testing.T) {
	// GIVEN: E1 has 4 baseline hours and takes 8 hours unpaid leave
	// THEN: borrowed = 4, both unpaid markers hold the ID, red on the first

	r := buildApril(t, report.Dataset{
		Employees: []report.Record{employeeRecord("R1", "E1", "Alice", 4)},
		Leaves:    []report.Record{leaveRecord("R1", "2025-04-02", "Unpaid Leave", nil)},
	})
	g := r.Grid
	l := g.Layout
	row := g.Rows[0]

	assert.Equal(t, -4.0, row[l.RemainingCol()-1])
	assert.Equal(t, 4.0, row[l.BorrowedCol()-1])
	assert.Equal(t, "E1", row[l.UnpaidCol()-1])
	assert.Equal(t, "E1", row[l.UnpaidMirrorCol()-1])

	require.Len(t, g.Styles, 1)
	assert.Equal(t, report.SingleCell(l.UnpaidCol(), report.FirstDataRow), g.Styles[0].Range)
	assert.Equal(t, report.FillRed, g.Styles[0].Style.Fill)
}

func TestGrid_RenderToWriter(t *testing.T) {
	r := buildApril(t, report.Dataset{
		Employees: []report.Record{
			employeeRecord("R1", "E1", "Alice", 40),
			employeeRecord("R2", "E2", "Bob", 0),
		},
		Leaves: []report.Record{
			leaveRecord("R1", "2025-04-02", "Annual", "8"),
			leaveRecord("R2", "2025-01-02", "Unpaid Leave", "8"),
		},
	})
	w := newRecordingWriter()

	require.NoError(t, r.Grid.Render(w))

	l := r.Grid.Layout
	assert.Equal(t, "Apr leave", w.title)
	assert.Equal(t, "No.", w.cells[[2]int{1, 1}])
	assert.Equal(t, "NOTE", w.cells[[2]int{l.NoteCol(), 1}])
	assert.Equal(t, 1, w.cells[[2]int{report.ColSeq, 2}])
	assert.Equal(t, 2, w.cells[[2]int{report.ColSeq, 3}])
	assert.Equal(t, -8.0, w.cells[[2]int{l.DateCol(7), 2}])
	assert.Equal(t, "E2", w.cells[[2]int{l.UnpaidCol(), 3}])

	_, blank := w.cells[[2]int{l.NoteCol(), 2}]
	assert.False(t, blank, "nil cells are not written")

	assert.Equal(t, r.Grid.Styles, w.styles)
}
