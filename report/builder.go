package report

import (
	"github.com/sirupsen/logrus"
)

// Report is the full result of one run. Every part is derived from the
// month and the dataset; nothing is shared between runs.
type Report struct {
	Month     Month
	Window    *Window
	Registry  *Registry
	Leaves    []LeaveRecord
	Ledger    *Ledger
	Summaries []Summary
	Grid      *Grid
}

// Builder runs the report pipeline.
type Builder struct {
	log    logrus.FieldLogger
	mapper *Mapper
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(log logrus.FieldLogger) *Builder {
	log = orDiscard(log)
	return &Builder{log: log, mapper: NewMapper(log)}
}

// Build produces the report for month from ds. An empty dataset yields a
// header-only grid.
func (b *Builder) Build(month Month, ds Dataset) *Report {
	log := b.log.WithField("month", month.String())
	if ds.IsEmpty() {
		log.Warn("empty dataset, rendering header only")
	}

	window := NewWindow(month)
	registry, leaves := b.mapper.Map(ds)
	ledger := BuildLedger(registry, leaves, window, log)
	summaries := Summarize(registry, ledger, window)
	grid := RenderGrid(month, window, registry, ledger, summaries)

	outside := 0
	for _, l := range leaves {
		if !window.Contains(l.Date) {
			outside++
		}
	}

	log.WithFields(logrus.Fields{
		"employees":     registry.Len(),
		"leaves":        len(leaves),
		"out_of_window": outside,
		"ledger_cells":  ledger.Len(),
		"highlights":    len(grid.Styles),
	}).Info("report built")

	return &Report{
		Month:     month,
		Window:    window,
		Registry:  registry,
		Leaves:    leaves,
		Ledger:    ledger,
		Summaries: summaries,
		Grid:      grid,
	}
}
