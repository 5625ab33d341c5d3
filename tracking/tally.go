package tracking

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
)

// MonthlyHours holds hours per calendar month; index 0 is January.
type MonthlyHours [12]decimal.Decimal

// Total returns the sum over all months.
func (m MonthlyHours) Total() decimal.Decimal {
	total := decimal.Zero
	for _, h := range m {
		total = total.Add(h)
	}
	return total
}

type tallyKey struct {
	employeeID string
	projectID  string
}

// Tally is the booked hours per (employee ID, project) for one year.
//
// RULES:
//  1. Entries are joined to employees by ResultId, then keyed by the
//     employee's external ID, so two records of the same person share hours.
//  2. Entries for unknown employees or outside the year are skipped.
//  3. Hours are summed, never overwritten.
type Tally struct {
	Year  int
	hours map[tallyKey]*MonthlyHours
}

// BuildTally sums entries for year.
func BuildTally(registry *report.Registry, entries []WorkEntry, year int, log logrus.FieldLogger) *Tally {
	log = orDiscard(log)
	t := &Tally{Year: year, hours: make(map[tallyKey]*MonthlyHours)}

	skipped := 0
	for _, e := range entries {
		emp, ok := registry.ByResultID(e.EmployeeResultID)
		if !ok {
			log.WithField("result_id", e.EmployeeResultID).Debug("working time for unknown employee")
			skipped++
			continue
		}
		if e.Start.Year() != year {
			skipped++
			continue
		}

		k := tallyKey{employeeID: emp.ID, projectID: e.ProjectID}
		m, ok := t.hours[k]
		if !ok {
			m = new(MonthlyHours)
			for i := range m {
				m[i] = decimal.Zero
			}
			t.hours[k] = m
		}
		i := int(e.Start.Month() - time.January)
		m[i] = m[i].Add(e.Hours)
	}

	if skipped > 0 {
		log.WithField("skipped", skipped).Debug("working time entries not counted")
	}
	return t
}

// Hours returns the monthly hours of an employee on a project. The second
// result is false when nothing was booked.
func (t *Tally) Hours(employeeID, projectID string) (MonthlyHours, bool) {
	m, ok := t.hours[tallyKey{employeeID: employeeID, projectID: projectID}]
	if !ok {
		var zero MonthlyHours
		for i := range zero {
			zero[i] = decimal.Zero
		}
		return zero, false
	}
	return *m, true
}

// Len returns the number of (employee, project) pairs with bookings.
func (t *Tally) Len() int { return len(t.hours) }
