/*
grid.go - Report layout and highlight decisions

LAYOUT (1-based columns, header on row 1, data from row 2):
  1  No.
  2  ID LGVN
  3  Name
  4  Total Leave Hours (<Mon> <YYYY>)
  5… one column per window day, header "<day>\n<Wkd>"
  then Used Hours, Remaining Hours, Mượn phép (borrowed),
       Nghỉ không lương (unpaid marker), Unpaid Leave (second marker), NOTE

HIGHLIGHTS:
  Remaining > 20  → yellow fill on the Remaining cell
  Unpaid leave    → red fill on the first unpaid marker cell; both marker
                    cells hold the employee ID

The grid only records decisions. Writing cells and applying fills belongs
to a SheetWriter (see xlsx.Workbook).
*/
package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	HeaderRow    = 1
	FirstDataRow = 2

	ColSeq       = 1
	ColID        = 2
	ColName      = 3
	ColBaseline  = 4
	FirstDateCol = 5
)

// Layout gives the column positions that depend on the window length.
type Layout struct {
	DateCount int
}

func (l Layout) DateCol(i int) int { return FirstDateCol + i }
func (l Layout) LastDateCol() int { return FirstDateCol + l.DateCount - 1 }
func (l Layout) UsedCol() int { return FirstDateCol + l.DateCount }
func (l Layout) RemainingCol() int { return l.UsedCol() + 1 }
func (l Layout) BorrowedCol() int { return l.UsedCol() + 2 }
func (l Layout) UnpaidCol() int { return l.UsedCol() + 3 }
func (l Layout) UnpaidMirrorCol() int { return l.UsedCol() + 4 }
func (l Layout) NoteCol() int { return l.UsedCol() + 5 }
func (l Layout) ColumnCount() int { return l.NoteCol() }
func (l Layout) LastRow(rows int) int { return HeaderRow + rows }

var summaryHeaders = []string{
	"Used Hours",
	"Remaining Hours",
	"Mượn phép",
	"Nghỉ không lương",
	"Unpaid Leave",
	"NOTE",
}

// =============================================================================
// STYLE DIRECTIVES
// =============================================================================

// Fill is an RGB fill colour.
type Fill string

const (
	FillYellow      Fill = "FFFF00"
	FillRed         Fill = "FF0000"
	FillLightYellow Fill = "FFFF99"
	FillLightBlue   Fill = "B3D9FF"
)

// RemainingHighlightThreshold: remaining hours strictly above it are
// highlighted.
var RemainingHighlightThreshold = decimal.NewFromInt(20)

// CellRange is an inclusive rectangle of cells.
type CellRange struct {
	FromCol, FromRow int
	ToCol, ToRow     int
}

// SingleCell returns the range covering one cell.
func SingleCell(col, row int) CellRange {
	return CellRange{FromCol: col, FromRow: row, ToCol: col, ToRow: row}
}

// Style is the styling applied by a directive.
type Style struct {
	Fill Fill
}

// StyleDirective asks the writer to apply Style to Range.
type StyleDirective struct {
	Range CellRange
	Style Style
}

// SheetWriter receives a rendered grid. Columns and rows are 1-based.
type SheetWriter interface {
	SetTitle(title string) error
	SetCell(col, row int, value any) error
	SetStyle(rng CellRange, style Style) error
}

// ListWriter is implemented by writers that can restrict cells to a fixed
// list of values. Renderers treat it as optional.
type ListWriter interface {
	SetDropList(rng CellRange, values []string) error
}

// =============================================================================
// GRID
// =============================================================================

// Grid is the rendered report. Row values are int, string, float64 or nil
// for a blank cell.
type Grid struct {
	Title    string
	Filename string
	Layout   Layout
	Header   []string
	Rows     [][]any
	Styles   []StyleDirective
}

// RenderGrid lays out the report. summaries must be in registry order, as
// returned by Summarize.
func RenderGrid(month Month, window *Window, registry *Registry, ledger *Ledger, summaries []Summary) *Grid {
	layout := Layout{DateCount: window.Len()}
	g := &Grid{
		Title:    fmt.Sprintf("%s leave", month.Abbrev()),
		Filename: fmt.Sprintf("Attendance_%s_%d.xlsx", month.Abbrev(), month.Year),
		Layout:   layout,
		Header:   header(month, window),
		Rows:     make([][]any, 0, registry.Len()),
	}

	for i, e := range registry.Employees() {
		s := summaries[i]
		rowNum := FirstDataRow + i
		row := make([]any, layout.ColumnCount())

		row[ColSeq-1] = i + 1
		row[ColID-1] = e.ID
		row[ColName-1] = e.Name
		row[ColBaseline-1] = e.BaselineHours.InexactFloat64()

		for j, d := range window.Days {
			if d.IsWeekend {
				continue
			}
			if v, ok := ledger.Get(e.ID, d.Date); ok {
				row[layout.DateCol(j)-1] = v.InexactFloat64()
			}
		}

		row[layout.UsedCol()-1] = s.Used.InexactFloat64()
		row[layout.RemainingCol()-1] = s.Remaining.InexactFloat64()
		if s.Borrowed.IsPositive() {
			row[layout.BorrowedCol()-1] = s.Borrowed.InexactFloat64()
		}
		if s.Unpaid {
			row[layout.UnpaidCol()-1] = e.ID
			row[layout.UnpaidMirrorCol()-1] = e.ID
		}

		if s.Remaining.GreaterThan(RemainingHighlightThreshold) {
			g.Styles = append(g.Styles, StyleDirective{
				Range: SingleCell(layout.RemainingCol(), rowNum),
				Style: Style{Fill: FillYellow},
			})
		}
		if s.Unpaid {
			g.Styles = append(g.Styles, StyleDirective{
				Range: SingleCell(layout.UnpaidCol(), rowNum),
				Style: Style{Fill: FillRed},
			})
		}

		g.Rows = append(g.Rows, row)
	}
	return g
}

func header(month Month, window *Window) []string {
	h := make([]string, 0, FirstDateCol-1+window.Len()+len(summaryHeaders))
	h = append(h,
		"No.",
		"ID LGVN",
		"Name",
		fmt.Sprintf("Total Leave Hours (%s %d)", month.Abbrev(), month.Year),
	)
	for _, d := range window.Days {
		h = append(h, fmt.Sprintf("%d\n%s", d.DayOfMonth, d.Weekday))
	}
	return append(h, summaryHeaders...)
}

// Render writes the grid to w: title, header row, data rows, then styles.
// Blank cells are not written.
func (g *Grid) Render(w SheetWriter) error {
	if err := w.SetTitle(g.Title); err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	for i, h := range g.Header {
		if err := w.SetCell(i+1, HeaderRow, h); err != nil {
			return fmt.Errorf("set header %d: %w", i+1, err)
		}
	}
	for r, row := range g.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			if err := w.SetCell(c+1, FirstDataRow+r, v); err != nil {
				return fmt.Errorf("set cell %d,%d: %w", c+1, FirstDataRow+r, err)
			}
		}
	}
	for _, s := range g.Styles {
		if err := w.SetStyle(s.Range, s.Style); err != nil {
			return fmt.Errorf("set style: %w", err)
		}
	}
	return nil
}
