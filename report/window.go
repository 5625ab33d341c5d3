package report

import (
	"time"
)

// =============================================================================
// WINDOW - The 26th-to-25th reporting period
// =============================================================================

const (
	windowStartDay = 26
	windowEndDay   = 25
)

var weekdayAbbrevs = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Day is one calendar day of the window.
type Day struct {
	Date       time.Time // UTC midnight
	DayOfMonth int
	Weekday    string // "Mon".."Sun"
	IsWeekend  bool
}

// Window is the ordered list of days for one reporting month.
//
// INVARIANTS:
//   - Starts on the 26th of the previous month, ends on the 25th of Month.
//   - One Day per calendar date, in order (28 to 31 days).
type Window struct {
	Month Month
	Start time.Time
	End   time.Time
	Days  []Day

	index map[time.Time]int
}

// NewWindow computes the window for m.
func NewWindow(m Month) *Window {
	prev := m.Prev()
	start := time.Date(prev.Year, prev.Month, windowStartDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(m.Year, m.Month, windowEndDay, 0, 0, 0, 0, time.UTC)

	w := &Window{Month: m, Start: start, End: end, index: make(map[time.Time]int)}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		w.index[d] = len(w.Days)
		w.Days = append(w.Days, Day{
			Date:       d,
			DayOfMonth: d.Day(),
			Weekday:    weekdayAbbrevs[wd],
			IsWeekend:  wd == time.Saturday || wd == time.Sunday,
		})
	}
	return w
}

// Len returns the number of days.
func (w *Window) Len() int { return len(w.Days) }

// Lookup returns the window day for date. The time of day is ignored.
func (w *Window) Lookup(date time.Time) (Day, bool) {
	i, ok := w.index[truncateDay(date)]
	if !ok {
		return Day{}, false
	}
	return w.Days[i], true
}

// Contains reports whether date lies in [Start, End].
func (w *Window) Contains(date time.Time) bool {
	_, ok := w.Lookup(date)
	return ok
}

// WorkdayCount returns the number of weekdays in the window.
func (w *Window) WorkdayCount() int {
	n := 0
	for _, d := range w.Days {
		if !d.IsWeekend {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
