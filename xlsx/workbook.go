/*
Package xlsx writes report grids as Excel workbooks.

PURPOSE:
  Workbook is the report.SheetWriter backed by excelize. It collects cells
  and fill directives, then applies the sheet formatting once when the
  workbook is written:

    header row    bold, centred, wrapped, grey fill, thin borders, height 30
    data rows     thin borders; the numeric column range is right-aligned
    fills         combined with the row style so borders and alignment stay;
                  applied in (row, col) order so style IDs are stable
    lists         drop-down validations, in the order they were added
    panes         frozen below the header (A2)
    widths        fixed per column when configured, otherwise estimated
                  from the longest line in each column

  The same input always produces the same bytes.

SEE ALSO:
  report/grid.go    - the leave layout and the highlight decisions
  tracking/sheet.go - the project assignment layout
*/
package xlsx

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/warp/attendance-export/report"
	"github.com/warp/attendance-export/tracking"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of a written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	headerFill   = "E0E0E0"
	headerHeight = 30
	minColWidth  = 6
	maxColWidth  = 40
)

// Options controls the sheet formatting.
type Options struct {
	// NumericFrom and NumericTo bound the right-aligned columns (1-based,
	// inclusive). NumericTo 0 means up to the last column; NumericFrom 0
	// means no numeric columns.
	NumericFrom int
	NumericTo   int
	// NumberFormat is an Excel format code for the numeric columns.
	NumberFormat string
	// Widths fixes the width of the listed columns.
	Widths map[int]float64
	// AutoFilter adds a filter to the header row.
	AutoFilter bool
}

// LeaveOptions formats the leave attendance grid.
func LeaveOptions() Options {
	return Options{NumericFrom: report.ColBaseline}
}

type styleKey struct {
	header  bool
	numeric bool
	fill    report.Fill
}

type cellPos struct {
	col, row int
}

type dropList struct {
	rng    report.CellRange
	values []string
}

// Workbook implements report.SheetWriter and report.ListWriter.
type Workbook struct {
	file   *excelize.File
	sheet  string
	opts   Options
	maxCol int
	maxRow int
	widths map[int]int
	fills  map[cellPos]report.Fill
	lists  []dropList
	styles map[styleKey]int
}

// NewWorkbook creates an empty single-sheet workbook with LeaveOptions.
func NewWorkbook() *Workbook {
	return NewWorkbookWith(LeaveOptions())
}

// NewWorkbookWith creates an empty single-sheet workbook.
func NewWorkbookWith(opts Options) *Workbook {
	f := excelize.NewFile()
	return &Workbook{
		file:   f,
		sheet:  f.GetSheetName(0),
		opts:   opts,
		widths: make(map[int]int),
		fills:  make(map[cellPos]report.Fill),
		styles: make(map[styleKey]int),
	}
}

// SetTitle renames the sheet.
func (w *Workbook) SetTitle(title string) error {
	if title == "" || title == w.sheet {
		return nil
	}
	if err := w.file.SetSheetName(w.sheet, title); err != nil {
		return err
	}
	w.sheet = title
	return nil
}

// SetCell writes one value.
func (w *Workbook) SetCell(col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.file.SetCellValue(w.sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}

	w.maxCol = max(w.maxCol, col)
	w.maxRow = max(w.maxRow, row)
	w.widths[col] = max(w.widths[col], displayWidth(value))
	return nil
}

// SetStyle records a fill for every cell of rng. Fills are applied by Write.
func (w *Workbook) SetStyle(rng report.CellRange, style report.Style) error {
	if rng.FromCol < 1 || rng.FromRow < 1 || rng.ToCol < rng.FromCol || rng.ToRow < rng.FromRow {
		return fmt.Errorf("invalid range %+v", rng)
	}
	for r := rng.FromRow; r <= rng.ToRow; r++ {
		for c := rng.FromCol; c <= rng.ToCol; c++ {
			w.fills[cellPos{c, r}] = style.Fill
			w.maxCol = max(w.maxCol, c)
			w.maxRow = max(w.maxRow, r)
		}
	}
	return nil
}

// SetDropList records a list validation over rng. Lists are applied by
// Write.
func (w *Workbook) SetDropList(rng report.CellRange, values []string) error {
	if rng.FromCol < 1 || rng.FromRow < 1 || rng.ToCol < rng.FromCol || rng.ToRow < rng.FromRow {
		return fmt.Errorf("invalid range %+v", rng)
	}
	if len(values) == 0 {
		return fmt.Errorf("empty drop-down list for %+v", rng)
	}
	w.lists = append(w.lists, dropList{rng: rng, values: slices.Clone(values)})
	return nil
}

// Sheet returns the current sheet name.
func (w *Workbook) Sheet() string { return w.sheet }

// File exposes the underlying workbook.
func (w *Workbook) File() *excelize.File { return w.file }

// Write formats the sheet and writes the workbook to out.
func (w *Workbook) Write(out io.Writer) error {
	if err := w.format(); err != nil {
		return fmt.Errorf("format sheet: %w", err)
	}
	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error { return w.file.Close() }

// Renderer writes a sheet through a SheetWriter.
type Renderer interface {
	Render(w report.SheetWriter) error
}

// Export renders the leave grid g into a new workbook and writes it to out.
func Export(g *report.Grid, out io.Writer) error {
	return ExportWith(g, LeaveOptions(), out)
}

// ExportProjects renders the project assignment sheet into a new workbook
// and writes it to out.
func ExportProjects(s *tracking.Sheet, out io.Writer) error {
	return ExportWith(s, ProjectOptions(), out)
}

// ExportWith renders r into a new workbook formatted with opts.
func ExportWith(r Renderer, opts Options, out io.Writer) error {
	wb := NewWorkbookWith(opts)
	defer wb.Close()

	if err := r.Render(wb); err != nil {
		return err
	}
	return wb.Write(out)
}

// ProjectOptions formats the project assignment sheet: hour columns are
// right-aligned with one decimal, and widths follow the column groups.
func ProjectOptions() Options {
	widths := make(map[int]float64, tracking.ColumnCount)
	for col := 1; col <= tracking.ColumnCount; col++ {
		widths[col] = tracking.ColumnWidth(col)
	}
	return Options{
		NumericFrom:  tracking.FirstMonthCol,
		NumericTo:    tracking.ColTotal,
		NumberFormat: "0.0",
		Widths:       widths,
		AutoFilter:   true,
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

func (w *Workbook) format() error {
	if w.maxCol == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(w.maxCol)
	if err != nil {
		return err
	}
	header, err := w.style(styleKey{header: true})
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(w.sheet, "A1", last+"1", header); err != nil {
		return err
	}
	if err := w.file.SetRowHeight(w.sheet, report.HeaderRow, headerHeight); err != nil {
		return err
	}

	if w.maxRow >= report.FirstDataRow {
		if err := w.formatData(last); err != nil {
			return err
		}
	}

	if err := w.applyFills(); err != nil {
		return err
	}
	if err := w.applyLists(); err != nil {
		return err
	}

	for col := 1; col <= w.maxCol; col++ {
		name, _ := excelize.ColumnNumberToName(col)
		width, ok := w.opts.Widths[col]
		if !ok {
			width = float64(min(max(w.widths[col]+2, minColWidth), maxColWidth))
		}
		if err := w.file.SetColWidth(w.sheet, name, name, width); err != nil {
			return err
		}
	}

	if w.opts.AutoFilter {
		if err := w.file.AutoFilter(w.sheet, "A1:"+last+"1", nil); err != nil {
			return err
		}
	}

	return w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *Workbook) formatData(last string) error {
	text, err := w.style(styleKey{})
	if err != nil {
		return err
	}
	numeric, err := w.style(styleKey{numeric: true})
	if err != nil {
		return err
	}

	first := report.FirstDataRow
	from, to := w.numericRange()
	if from == 0 {
		return w.file.SetCellStyle(w.sheet, cellName("A", first), cellName(last, w.maxRow), text)
	}

	if from > 1 {
		end, _ := excelize.ColumnNumberToName(from - 1)
		if err := w.file.SetCellStyle(w.sheet, cellName("A", first), cellName(end, w.maxRow), text); err != nil {
			return err
		}
	}
	start, _ := excelize.ColumnNumberToName(from)
	end, _ := excelize.ColumnNumberToName(to)
	if err := w.file.SetCellStyle(w.sheet, cellName(start, first), cellName(end, w.maxRow), numeric); err != nil {
		return err
	}
	if to < w.maxCol {
		after, _ := excelize.ColumnNumberToName(to + 1)
		if err := w.file.SetCellStyle(w.sheet, cellName(after, first), cellName(last, w.maxRow), text); err != nil {
			return err
		}
	}
	return nil
}

// numericRange returns the clamped numeric column range, or 0, 0 when the
// sheet has no numeric columns.
func (w *Workbook) numericRange() (int, int) {
	from, to := w.opts.NumericFrom, w.opts.NumericTo
	if to == 0 || to > w.maxCol {
		to = w.maxCol
	}
	if from < 1 || from > to {
		return 0, 0
	}
	return from, to
}

func (w *Workbook) isNumeric(col int) bool {
	from, to := w.numericRange()
	return from > 0 && col >= from && col <= to
}

// applyFills overlays the recorded fills in (row, col) order. Styles are
// created on first use, so a fixed order keeps the style IDs stable.
func (w *Workbook) applyFills() error {
	positions := make([]cellPos, 0, len(w.fills))
	for pos := range w.fills {
		positions = append(positions, pos)
	}
	slices.SortFunc(positions, func(a, b cellPos) int {
		if c := cmp.Compare(a.row, b.row); c != 0 {
			return c
		}
		return cmp.Compare(a.col, b.col)
	})

	for _, pos := range positions {
		key := styleKey{fill: w.fills[pos]}
		if pos.row == report.HeaderRow {
			key.header = true
		} else {
			key.numeric = w.isNumeric(pos.col)
		}
		id, err := w.style(key)
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(pos.col, pos.row)
		if err := w.file.SetCellStyle(w.sheet, cell, cell, id); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) applyLists() error {
	for _, l := range w.lists {
		from, _ := excelize.CoordinatesToCellName(l.rng.FromCol, l.rng.FromRow)
		to, _ := excelize.CoordinatesToCellName(l.rng.ToCol, l.rng.ToRow)

		dv := excelize.NewDataValidation(true)
		dv.Sqref = from + ":" + to
		if err := dv.SetDropList(l.values); err != nil {
			return fmt.Errorf("drop-down %s: %w", dv.Sqref, err)
		}
		dv.SetError(excelize.DataValidationErrorStyleInformation, "", "")
		if err := w.file.AddDataValidation(w.sheet, dv); err != nil {
			return err
		}
	}
	return nil
}

// style returns the style ID for key, creating it on first use.
func (w *Workbook) style(key styleKey) (int, error) {
	if id, ok := w.styles[key]; ok {
		return id, nil
	}

	s := &excelize.Style{Border: thinBorders()}
	switch {
	case key.header:
		s.Font = &excelize.Font{Bold: true}
		s.Fill = solidFill(headerFill)
		s.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	case key.numeric:
		s.Alignment = &excelize.Alignment{Horizontal: "right"}
		if w.opts.NumberFormat != "" {
			format := w.opts.NumberFormat
			s.CustomNumFmt = &format
		}
	}
	if key.fill != "" {
		s.Fill = solidFill(string(key.fill))
	}

	id, err := w.file.NewStyle(s)
	if err != nil {
		return 0, err
	}
	w.styles[key] = id
	return id, nil
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	out := make([]excelize.Border, len(sides))
	for i, side := range sides {
		out[i] = excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	return out
}

func solidFill(rgb string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{rgb}, Pattern: 1}
}

func cellName(col string, row int) string { return col + strconv.Itoa(row) }

// displayWidth is the rune length of the longest line of v.
func displayWidth(v any) int {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	default:
		s = fmt.Sprint(x)
	}
	width := 0
	for _, line := range strings.Split(s, "\n") {
		width = max(width, utf8.RuneCountInString(line))
	}
	return width
}
