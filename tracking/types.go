/*
Package tracking builds the yearly project assignment sheet.

PURPOSE:
  Joins the projects feed to the employee feed through each project's member
  list, and totals the hours booked in the working-time feed per member,
  project and calendar month. The result is laid out as one row per
  (project, member) ready for a spreadsheet writer.

PIPELINE:
  Mapper → Tally → Sheet

    registry := report.NewMapper(log).MapEmployees(ds.Employees)
    projects, entries := tracking.NewMapper(log).Map(ds)
    tally := tracking.BuildTally(registry, entries, year, log)
    sheet := tracking.RenderSheet(year, registry, projects, tally, log)

  Builder.Build runs all steps.

KEY CONCEPTS IN THIS FILE (types.go):
  - Dataset: raw employee, project and working-time records
  - Project / WorkEntry: typed entities produced by the Mapper
  - Status: the contract state shown in the sheet

SEE ALSO:
  - report/mapper.go: the shared field-table machinery and employee codes
  - sheet.go: layout, header colours and drop-down lists
*/
package tracking

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-export/report"
)

// =============================================================================
// RAW RECORDS
// =============================================================================

// Dataset is the input snapshot for one sheet.
type Dataset struct {
	Employees   []report.Record
	Projects    []report.Record
	WorkingTime []report.Record
}

// IsEmpty reports whether the dataset carries no records at all.
func (d Dataset) IsEmpty() bool {
	return len(d.Employees) == 0 && len(d.Projects) == 0 && len(d.WorkingTime) == 0
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the contract state of a project.
type Status string

const (
	StatusContracted Status = "Contracted"
	StatusClosed     Status = "Project Closed"
)

// closedStatusCodes are the upstream status codes of finished projects.
var closedStatusCodes = map[int]bool{100: true, 200: true, 900: true}

// MapStatus converts an upstream status code. Unknown or non-numeric codes
// read as contracted.
func MapStatus(code string) Status {
	n, err := strconv.Atoi(code)
	if err == nil && closedStatusCodes[n] {
		return StatusClosed
	}
	return StatusContracted
}

// =============================================================================
// ENTITIES
// =============================================================================

// Project is a typed project row.
type Project struct {
	IssueID         string
	Title           string // bracketed tags removed
	Status          Status
	MemberResultIDs []string // upstream employee record keys, in feed order
}

// WorkEntry is one booking of hours against a project.
type WorkEntry struct {
	EmployeeResultID string
	ProjectID        string
	Start            time.Time // UTC midnight
	Hours            decimal.Decimal
}
