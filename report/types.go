/*
Package report builds the monthly leave attendance report.

PURPOSE:
  Turns the loosely-typed employee and leave feeds of the upstream records
  service into a per-employee daily leave ledger, derives the balance
  columns, and lays the result out as a fixed-shape grid ready for a
  spreadsheet writer.

PIPELINE:
  Window → Mapper → Ledger → Summaries → Grid

    window := report.NewWindow(month)
    registry, leaves := report.NewMapper(log).Map(dataset)
    ledger := report.BuildLedger(registry, leaves, window, log)
    summaries := report.Summarize(registry, ledger, window)
    grid := report.RenderGrid(month, window, registry, ledger, summaries)

  Builder.Build runs all five steps.

KEY CONCEPTS IN THIS FILE (types.go):
  - Month: the reporting month (YYYY-MM)
  - Record / Dataset: raw upstream records, as decoded from JSON
  - Employee / LeaveRecord: typed entities produced by the Mapper

DESIGN PRINCIPLES:
  1. Pure: no I/O, no wall clock. Same inputs, same grid.
  2. Forgiving: bad records are dropped and logged, never fatal.
  3. Precision: hours are decimal.Decimal until the grid boundary.

SEE ALSO:
  - window.go: 26th-to-25th reporting window
  - mapper.go: field-code table for the upstream schema
  - ledger.go: signed-hours matrix
  - grid.go: layout and highlight rules
*/
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTH - The reporting month
// =============================================================================

// MonthLayout is the wire format of a reporting month.
const MonthLayout = "2006-01"

// Month identifies the target month of a report.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// First returns the first day of the month at UTC midnight.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Prev returns the month before m.
func (m Month) Prev() Month { return MonthOf(m.First().AddDate(0, -1, 0)) }

// Abbrev returns the three-letter month name (e.g. "Apr").
func (m Month) Abbrev() string { return m.First().Format("Jan") }

func (m Month) String() string { return m.First().Format(MonthLayout) }

// =============================================================================
// RAW RECORDS - Upstream schema, untyped
// =============================================================================

// Record is one upstream record: a nested key-value map as decoded from the
// records service JSON (decoded with UseNumber, so numbers are json.Number).
type Record map[string]any

// Dataset is the input snapshot for one report run.
type Dataset struct {
	Employees []Record
	Leaves    []Record
}

// IsEmpty reports whether the dataset carries no records at all.
func (d Dataset) IsEmpty() bool { return len(d.Employees) == 0 && len(d.Leaves) == 0 }

// =============================================================================
// ENTITIES
// =============================================================================

// Employee is a typed employee row.
type Employee struct {
	ID            string // external employee code, shown in the report
	ResultID      string // upstream record key, joins only
	Name          string
	BaselineHours decimal.Decimal // cumulative leave balance from the feed
	Location      string
	Gender        string
	Team          string
	Role          string
}

// UnpaidLeaveType is the leave category that marks unpaid leave.
const UnpaidLeaveType = "Unpaid Leave"

// DefaultLeaveHours applies when a leave record carries no hours.
var DefaultLeaveHours = decimal.NewFromInt(8)

// LeaveRecord is a typed leave entry.
type LeaveRecord struct {
	EmployeeResultID string
	Date             time.Time // UTC midnight
	Hours            decimal.Decimal
	Type             string
	Unpaid           bool
}
