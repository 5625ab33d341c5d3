/*
ledger.go - Per-employee daily leave ledger

PURPOSE:
  Collects leave records into a matrix of (employee ID, date) → signed
  hours for one reporting window. A cell holds the NEGATIVE leave hours
  (a debit) for a weekday leave. Days without leave have no cell.

RULES:
  1. Records whose employee cannot be resolved are skipped silently.
  2. Only dates inside the window are recorded.
  3. Weekend dates never receive a cell.
  4. Same employee + same date: the last record processed wins (overwrite).
  5. The unpaid flag is tracked across ALL records, in or out of window.

The Ledger is built once per run by BuildLedger and is read-only after.
*/
package report

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CellKey identifies a ledger cell.
type CellKey struct {
	EmployeeID string
	Date       time.Time
}

// Cell is one ledger entry.
type Cell struct {
	CellKey
	Hours decimal.Decimal // negative: a debit
}

// Ledger is an ordered map of leave debits. Iteration order is the order
// in which each key was first written.
type Ledger struct {
	cells  map[CellKey]decimal.Decimal
	order  []CellKey
	unpaid map[string]bool
}

// BuildLedger aggregates leaves for the employees in registry over window.
func BuildLedger(registry *Registry, leaves []LeaveRecord, window *Window, log logrus.FieldLogger) *Ledger {
	log = orDiscard(log)
	l := &Ledger{
		cells:  make(map[CellKey]decimal.Decimal),
		unpaid: make(map[string]bool),
	}

	for _, leave := range leaves {
		emp, ok := registry.ByResultID(leave.EmployeeResultID)
		if !ok {
			log.WithField("result_id", leave.EmployeeResultID).Debug("leave record for unknown employee")
			continue
		}

		if leave.Unpaid {
			l.unpaid[emp.ID] = true
		}

		day, ok := window.Lookup(leave.Date)
		if !ok || day.IsWeekend {
			continue
		}
		l.set(CellKey{EmployeeID: emp.ID, Date: day.Date}, leave.Hours.Neg())
	}
	return l
}

func (l *Ledger) set(k CellKey, hours decimal.Decimal) {
	if _, exists := l.cells[k]; !exists {
		l.order = append(l.order, k)
	}
	l.cells[k] = hours
}

// Get returns the cell value for an employee on a date.
func (l *Ledger) Get(employeeID string, date time.Time) (decimal.Decimal, bool) {
	v, ok := l.cells[CellKey{EmployeeID: employeeID, Date: truncateDay(date)}]
	return v, ok
}

// Cells returns all cells in insertion order.
func (l *Ledger) Cells() []Cell {
	out := make([]Cell, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, Cell{CellKey: k, Hours: l.cells[k]})
	}
	return out
}

// CellsFor returns one employee's cells in insertion order.
func (l *Ledger) CellsFor(employeeID string) []Cell {
	var out []Cell
	for _, k := range l.order {
		if k.EmployeeID == employeeID {
			out = append(out, Cell{CellKey: k, Hours: l.cells[k]})
		}
	}
	return out
}

// Len returns the number of cells.
func (l *Ledger) Len() int { return len(l.order) }

// Unpaid reports whether the employee has any unpaid leave record.
func (l *Ledger) Unpaid(employeeID string) bool { return l.unpaid[employeeID] }
