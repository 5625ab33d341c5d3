/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Query and response shapes for the JSON endpoints. Domain types from the
  report package are converted here so the wire format can stay stable
  while the domain evolves.

CONVENTIONS:
  - Dates are "2006-01-02", months "2006-01", years "2006"
  - Hours are JSON numbers
  - Blank grid cells are null
*/
package api

import (
	"time"

	"github.com/warp/attendance-export/report"
	"github.com/warp/attendance-export/store/sqlite"
	"github.com/warp/attendance-export/tracking"
)

// =============================================================================
// QUERIES
// =============================================================================

// MonthQuery is the ?month= parameter shared by the report endpoints.
type MonthQuery struct {
	Month string `validate:"omitempty,datetime=2006-01"`
}

// YearQuery is the ?year= parameter of the project endpoints.
type YearQuery struct {
	Year string `validate:"omitempty,datetime=2006"`
}

// LimitQuery is the ?limit= parameter of the history endpoint.
type LimitQuery struct {
	Limit int `validate:"gte=1,lte=500"`
}

// =============================================================================
// WINDOW
// =============================================================================

// DayDTO is one column of the reporting window.
type DayDTO struct {
	Date       string `json:"date"`
	DayOfMonth int    `json:"day_of_month"`
	Weekday    string `json:"weekday"`
	IsWeekend  bool   `json:"is_weekend"`
}

// WindowDTO describes the reporting window of a month.
type WindowDTO struct {
	Month    string   `json:"month"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Workdays int      `json:"workdays"`
	Days     []DayDTO `json:"days"`
}

// =============================================================================
// REPORT
// =============================================================================

// SummaryDTO is the balance line of one employee.
type SummaryDTO struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Baseline   float64 `json:"baseline_hours"`
	Used       float64 `json:"used_hours"`
	Remaining  float64 `json:"remaining_hours"`
	Borrowed   float64 `json:"borrowed_hours"`
	Unpaid     bool    `json:"unpaid"`
}

// HighlightDTO is one filled cell, 1-based.
type HighlightDTO struct {
	Col  int    `json:"col"`
	Row  int    `json:"row"`
	Fill string `json:"fill"`
}

// ReportDTO is the JSON preview of a report.
type ReportDTO struct {
	Title         string         `json:"title"`
	Filename      string         `json:"filename"`
	DatasetStatus string         `json:"dataset_status"`
	Window        WindowDTO      `json:"window"`
	Header        []string       `json:"header"`
	Rows          [][]any        `json:"rows"`
	Summaries     []SummaryDTO   `json:"summaries"`
	Highlights    []HighlightDTO `json:"highlights"`
}

// =============================================================================
// PROJECTS
// =============================================================================

// DropListDTO is one drop-down list of the assignment list, 1-based.
type DropListDTO struct {
	Column  int      `json:"column"`
	FromRow int      `json:"from_row"`
	ToRow   int      `json:"to_row"`
	Values  []string `json:"values"`
}

// ProjectsDTO is the JSON preview of an assignment list.
type ProjectsDTO struct {
	Year          int            `json:"year"`
	Title         string         `json:"title"`
	Filename      string         `json:"filename"`
	DatasetStatus string         `json:"dataset_status"`
	Projects      int            `json:"projects"`
	Members       int            `json:"members"`
	Truncated     int            `json:"truncated"`
	Header        []string       `json:"header"`
	Rows          [][]any        `json:"rows"`
	Highlights    []HighlightDTO `json:"highlights"`
	DropLists     []DropListDTO  `json:"drop_lists"`
}

// =============================================================================
// HISTORY
// =============================================================================

// ExportRunDTO is one recorded export. Month holds the year for project
// runs.
type ExportRunDTO struct {
	ID            string    `json:"id"`
	Report        string    `json:"report"`
	Month         string    `json:"month"`
	Filename      string    `json:"filename"`
	Employees     int       `json:"employees"`
	LeaveRecords  int       `json:"leave_records"`
	LedgerCells   int       `json:"ledger_cells"`
	Highlights    int       `json:"highlights"`
	DatasetStatus string    `json:"dataset_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// HealthDTO is the health check response.
type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toWindowDTO(w *report.Window) WindowDTO {
	days := make([]DayDTO, len(w.Days))
	for i, d := range w.Days {
		days[i] = DayDTO{
			Date:       d.Date.Format(dateLayout),
			DayOfMonth: d.DayOfMonth,
			Weekday:    d.Weekday,
			IsWeekend:  d.IsWeekend,
		}
	}
	return WindowDTO{
		Month:    w.Month.String(),
		Start:    w.Start.Format(dateLayout),
		End:      w.End.Format(dateLayout),
		Workdays: w.WorkdayCount(),
		Days:     days,
	}
}

func toReportDTO(rep *report.Report, status string) ReportDTO {
	employees := rep.Registry.Employees()
	summaries := make([]SummaryDTO, len(rep.Summaries))
	for i, s := range rep.Summaries {
		summaries[i] = SummaryDTO{
			EmployeeID: s.EmployeeID,
			Name:       employees[i].Name,
			Baseline:   s.Baseline.InexactFloat64(),
			Used:       s.Used.InexactFloat64(),
			Remaining:  s.Remaining.InexactFloat64(),
			Borrowed:   s.Borrowed.InexactFloat64(),
			Unpaid:     s.Unpaid,
		}
	}

	return ReportDTO{
		Title:         rep.Grid.Title,
		Filename:      rep.Grid.Filename,
		DatasetStatus: status,
		Window:        toWindowDTO(rep.Window),
		Header:        rep.Grid.Header,
		Rows:          rep.Grid.Rows,
		Summaries:     summaries,
		Highlights:    toHighlights(rep.Grid.Styles),
	}
}

func toHighlights(styles []report.StyleDirective) []HighlightDTO {
	highlights := make([]HighlightDTO, 0, len(styles))
	for _, d := range styles {
		for row := d.Range.FromRow; row <= d.Range.ToRow; row++ {
			for col := d.Range.FromCol; col <= d.Range.ToCol; col++ {
				highlights = append(highlights, HighlightDTO{Col: col, Row: row, Fill: string(d.Style.Fill)})
			}
		}
	}
	return highlights
}

func toProjectsDTO(rep *tracking.Report, status string) ProjectsDTO {
	s := rep.Sheet
	lists := make([]DropListDTO, len(s.Lists))
	for i, l := range s.Lists {
		lists[i] = DropListDTO{
			Column:  l.Range.FromCol,
			FromRow: l.Range.FromRow,
			ToRow:   l.Range.ToRow,
			Values:  l.Values,
		}
	}
	rows := s.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return ProjectsDTO{
		Year:          s.Year,
		Title:         s.Title,
		Filename:      s.Filename,
		DatasetStatus: status,
		Projects:      len(rep.Projects),
		Members:       s.Members,
		Truncated:     s.Truncated,
		Header:        s.Header,
		Rows:          rows,
		Highlights:    toHighlights(s.Styles),
		DropLists:     lists,
	}
}

func toExportRunDTO(r sqlite.ExportRun) ExportRunDTO {
	return ExportRunDTO{
		ID:            r.ID,
		Report:        r.Report,
		Month:         r.Month,
		Filename:      r.Filename,
		Employees:     r.Employees,
		LeaveRecords:  r.LeaveRecords,
		LedgerCells:   r.LedgerCells,
		Highlights:    r.Highlights,
		DatasetStatus: r.DatasetStatus,
		CreatedAt:     r.CreatedAt,
	}
}
