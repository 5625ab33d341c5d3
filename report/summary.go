package report

import (
	"github.com/shopspring/decimal"
)

// Summary is the balance line for one employee.
type Summary struct {
	EmployeeID string
	Baseline   decimal.Decimal
	Used       decimal.Decimal // sum of |cell| in the window
	Remaining  decimal.Decimal // Baseline - Used
	Borrowed   decimal.Decimal // max(0, -Remaining)
	Unpaid     bool
}

// Summarize derives one Summary per registry employee, in registry order.
// Only cells on the window's weekdays are counted.
func Summarize(registry *Registry, ledger *Ledger, window *Window) []Summary {
	out := make([]Summary, 0, registry.Len())
	for _, e := range registry.Employees() {
		used := decimal.Zero
		for _, c := range ledger.CellsFor(e.ID) {
			if day, ok := window.Lookup(c.Date); !ok || day.IsWeekend {
				continue
			}
			used = used.Add(c.Hours.Abs())
		}
		remaining := e.BaselineHours.Sub(used)
		out = append(out, Summary{
			EmployeeID: e.ID,
			Baseline:   e.BaselineHours,
			Used:       used,
			Remaining:  remaining,
			Borrowed:   decimal.Max(decimal.Zero, remaining.Neg()),
			Unpaid:     ledger.Unpaid(e.ID),
		})
	}
	return out
}
