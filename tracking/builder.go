package tracking

import (
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
)

// Report is the full result of one assignment-list run.
type Report struct {
	Year     int
	Registry *report.Registry
	Projects []Project
	Entries  []WorkEntry
	Tally    *Tally
	Sheet    *Sheet
}

// Builder runs the assignment-list pipeline.
type Builder struct {
	log       logrus.FieldLogger
	employees *report.Mapper
	mapper    *Mapper
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(log logrus.FieldLogger) *Builder {
	log = orDiscard(log)
	return &Builder{log: log, employees: report.NewMapper(log), mapper: NewMapper(log)}
}

// Build produces the assignment list for year from ds. An empty dataset
// yields a header-only sheet.
func (b *Builder) Build(year int, ds Dataset) *Report {
	log := b.log.WithField("year", year)
	if ds.IsEmpty() {
		log.Warn("empty dataset, rendering header only")
	}

	registry := b.employees.MapEmployees(ds.Employees)
	projects, entries := b.mapper.Map(ds)
	tally := BuildTally(registry, entries, year, log)
	sheet := RenderSheet(year, registry, projects, tally, log)

	log.WithFields(logrus.Fields{
		"employees":    registry.Len(),
		"projects":     len(projects),
		"entries":      len(entries),
		"booked_pairs": tally.Len(),
		"rows":         len(sheet.Rows),
		"truncated":    sheet.Truncated,
	}).Info("assignment list built")

	return &Report{
		Year:     year,
		Registry: registry,
		Projects: projects,
		Entries:  entries,
		Tally:    tally,
		Sheet:    sheet,
	}
}
