/*
sheet.go - Project assignment layout

LAYOUT (1-based columns, header on row 1, data from row 2):
  1  PRJ Type      always "Project Base"
  2  Market        always "JP"
  3  Status        Contracted | Project Closed
  4  直接・間接     always "直接"
  5  Client        always "株式会社AGEST"
  6  Prj Name      project title without bracketed tags
  7  Role          member role, "DEV" when absent
  8  Division      member team
  9  ID            member employee ID
  10 PIC           member name
  11…22 1月…12月   hours booked per month, blank when zero
  23 TOTAL(h)      sum of the months
  24…27 Start Plan, Start Actual, End Plan, End Actual (left blank)

ROWS:
  One row per (project, resolvable member), in feed order. A project with
  no resolvable member gets a single row with Role "DEV" and no hours.
  At most MaxRows data rows are written.

STYLES:
  Month headers light yellow, TOTAL header light blue. Status and Role
  carry drop-down lists over the data rows (at least TemplateRows rows).
*/
package tracking

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	ColPrjType     = 1
	ColMarket      = 2
	ColStatus      = 3
	ColDirect      = 4
	ColClient      = 5
	ColProjectName = 6
	ColRole        = 7
	ColDivision    = 8
	ColID          = 9
	ColPIC         = 10
	FirstMonthCol  = 11
	ColTotal       = 23
	ColStartPlan   = 24
	ColEndActual   = 27
	ColumnCount    = ColEndActual

	// MaxRows caps the data rows of one sheet.
	MaxRows = 99
	// TemplateRows is the minimum number of rows given drop-down lists, so
	// an empty sheet still works as an input template.
	TemplateRows = 10
)

const (
	prjTypeProjectBase = "Project Base"
	marketJP           = "JP"
	directContract     = "直接"
	defaultClient      = "株式会社AGEST"
	defaultRole        = "DEV"
)

// MonthCol returns the column of month (1-12).
func MonthCol(month int) int { return FirstMonthCol + month - 1 }

var headers = []string{
	"PRJ Type", "Market", "Status", "直接・間接", "Client", "Prj Name", "Role", "Division", "ID", "PIC",
	"1月", "2月", "3月", "4月", "5月", "6月", "7月", "8月", "9月", "10月", "11月", "12月",
	"TOTAL(h)", "Start Plan", "Start Actual", "End Plan", "End Actual",
}

// Header returns the header row.
func Header() []string { return append([]string(nil), headers...) }

// ColumnWidth returns the fixed width of col.
func ColumnWidth(col int) float64 {
	switch {
	case col == ColMarket || col == ColID || (col >= FirstMonthCol && col <= ColTotal):
		return 8
	case col == ColProjectName || col == ColClient || col == ColPIC:
		return 25
	case col >= ColStartPlan:
		return 12
	default:
		return 15
	}
}

var (
	statusChoices = []string{"受注済み (Contracted)", string(StatusClosed)}
	roleChoices   = []string{"PM", "BrSE", "DEV", "DEVL", "QAL", "QA"}
)

// =============================================================================
// SHEET
// =============================================================================

// DropList restricts Range to Values.
type DropList struct {
	Range  report.CellRange
	Values []string
}

// Sheet is the rendered assignment list. Row values are string, float64 or
// nil for a blank cell.
type Sheet struct {
	Year      int
	Title     string
	Filename  string
	Header    []string
	Rows      [][]any
	Styles    []report.StyleDirective
	Lists     []DropList
	Members   int // rows backed by a resolved member
	Truncated int // rows dropped past MaxRows
}

// RenderSheet lays out the assignment list for year.
func RenderSheet(year int, registry *report.Registry, projects []Project, tally *Tally, log logrus.FieldLogger) *Sheet {
	log = orDiscard(log)
	s := &Sheet{
		Year:     year,
		Title:    fmt.Sprintf("%d_案件一覧", year),
		Filename: fmt.Sprintf("【%d】AGVN_ Assign List.xlsx", year),
		Header:   Header(),
	}

	add := func(row []any) bool {
		if len(s.Rows) >= MaxRows {
			s.Truncated++
			return false
		}
		s.Rows = append(s.Rows, row)
		return true
	}

	for _, p := range projects {
		members := make([]report.Employee, 0, len(p.MemberResultIDs))
		for _, id := range p.MemberResultIDs {
			if e, ok := registry.ByResultID(id); ok {
				members = append(members, e)
			}
		}

		if len(members) == 0 {
			row := projectRow(p)
			row[ColRole-1] = defaultRole
			add(row)
			continue
		}

		for _, e := range members {
			row := projectRow(p)
			row[ColRole-1] = defaultRole
			if e.Role != "" {
				row[ColRole-1] = e.Role
			}
			row[ColDivision-1] = e.Team
			row[ColID-1] = e.ID
			row[ColPIC-1] = e.Name

			hours, _ := tally.Hours(e.ID, p.IssueID)
			for i, h := range hours {
				if h.IsPositive() {
					row[MonthCol(i+1)-1] = h.InexactFloat64()
				}
			}
			row[ColTotal-1] = hours.Total().InexactFloat64()

			if add(row) {
				s.Members++
			}
		}
	}

	if s.Truncated > 0 {
		log.WithFields(logrus.Fields{"max_rows": MaxRows, "dropped": s.Truncated}).Warn("assignment list truncated")
	}

	s.Styles = []report.StyleDirective{
		{
			Range: report.CellRange{FromCol: MonthCol(1), FromRow: report.HeaderRow, ToCol: MonthCol(12), ToRow: report.HeaderRow},
			Style: report.Style{Fill: report.FillLightYellow},
		},
		{
			Range: report.SingleCell(ColTotal, report.HeaderRow),
			Style: report.Style{Fill: report.FillLightBlue},
		},
	}

	lastRow := report.FirstDataRow + max(len(s.Rows), TemplateRows) - 1
	s.Lists = []DropList{
		{Range: report.CellRange{FromCol: ColStatus, FromRow: report.FirstDataRow, ToCol: ColStatus, ToRow: lastRow}, Values: statusChoices},
		{Range: report.CellRange{FromCol: ColRole, FromRow: report.FirstDataRow, ToCol: ColRole, ToRow: lastRow}, Values: roleChoices},
	}
	return s
}

func projectRow(p Project) []any {
	row := make([]any, ColumnCount)
	row[ColPrjType-1] = prjTypeProjectBase
	row[ColMarket-1] = marketJP
	row[ColStatus-1] = string(p.Status)
	row[ColDirect-1] = directContract
	row[ColClient-1] = defaultClient
	row[ColProjectName-1] = p.Title
	return row
}

// Render writes the sheet to w: title, header row, data rows, styles, then
// drop-down lists when w supports them. Blank cells are not written.
func (s *Sheet) Render(w report.SheetWriter) error {
	if err := w.SetTitle(s.Title); err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	for i, h := range s.Header {
		if err := w.SetCell(i+1, report.HeaderRow, h); err != nil {
			return fmt.Errorf("set header %d: %w", i+1, err)
		}
	}
	for r, row := range s.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			if err := w.SetCell(c+1, report.FirstDataRow+r, v); err != nil {
				return fmt.Errorf("set cell %d,%d: %w", c+1, report.FirstDataRow+r, err)
			}
		}
	}
	for _, st := range s.Styles {
		if err := w.SetStyle(st.Range, st.Style); err != nil {
			return fmt.Errorf("set style: %w", err)
		}
	}

	lw, ok := w.(report.ListWriter)
	if !ok {
		return nil
	}
	for _, l := range s.Lists {
		if err := lw.SetDropList(l.Range, l.Values); err != nil {
			return fmt.Errorf("set drop-down: %w", err)
		}
	}
	return nil
}
