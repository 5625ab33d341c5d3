package report_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-export/report"
)

func sampleDataset() report.Dataset {
	return report.Dataset{
		Employees: []report.Record{
			employeeRecord("R1", "E1", "Alice", 40),
			employeeRecord("R2", "E2", "Bob", 8),
			employeeRecord("R3", "", "Broken", 8),
		},
		Leaves: []report.Record{
			leaveRecord("R1", "2025-04-02", "Annual", "8"),
			leaveRecord("R2", "2025-03-31", "Unpaid Leave", "8"),
			leaveRecord("R2", "2025-04-01", "Annual", "4"),
			leaveRecord("R9", "2025-04-01", "Annual", "4"),
		},
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	month := mustMonth(t, "2025-04")
	b := report.NewBuilder(nil)

	first := b.Build(month, sampleDataset())
	second := b.Build(month, sampleDataset())

	assert.Equal(t, first.Grid, second.Grid)
	assert.Equal(t, first.Ledger.Cells(), second.Ledger.Cells())
}

func TestBuilder_FullPipeline(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	r := report.NewBuilder(log).Build(mustMonth(t, "2025-04"), sampleDataset())

	assert.Equal(t, 2, r.Registry.Len())
	assert.Len(t, r.Leaves, 4)
	assert.Equal(t, 3, r.Ledger.Len())
	require.Len(t, r.Summaries, 2)
	require.Len(t, r.Grid.Rows, 2)

	// Alice: 32 remaining → yellow; Bob: 8-12 = -4, unpaid → red
	require.Len(t, r.Grid.Styles, 2)
	assert.Equal(t, report.FillYellow, r.Grid.Styles[0].Style.Fill)
	assert.Equal(t, report.FillRed, r.Grid.Styles[1].Style.Fill)

	assert.Len(t, warnings(hook), 1, "only the broken employee warns")
	assert.Equal(t, "report built", hook.LastEntry().Message)
}

func TestBuilder_EmptyDataset(t *testing.T) {
	log, hook := test.NewNullLogger()

	r := report.NewBuilder(log).Build(mustMonth(t, "2025-02"), report.Dataset{})

	assert.Equal(t, 0, r.Registry.Len())
	assert.Empty(t, r.Grid.Rows)
	assert.Equal(t, "Feb leave", r.Grid.Title)
	require.NotEmpty(t, warnings(hook))
	assert.Equal(t, "empty dataset, rendering header only", warnings(hook)[0].Message)
}

func TestBuilder_LogsLeavesOutsideWindow(t *testing.T) {
	// GIVEN: one leave inside the April window and two after it
	log, hook := test.NewNullLogger()
	ds := report.Dataset{
		Employees: []report.Record{employeeRecord("R1", "E1", "Alice", 40)},
		Leaves: []report.Record{
			leaveRecord("R1", "2025-04-25", "Annual", "8"),
			leaveRecord("R1", "2025-04-28", "Annual", "8"),
			leaveRecord("R1", "2025-05-02", "Annual", "8"),
		},
	}

	// WHEN: the report is built
	r := report.NewBuilder(log).Build(mustMonth(t, "2025-04"), ds)

	// THEN: only the leave inside the window is counted
	assert.Equal(t, 1, r.Ledger.Len())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "report built", entry.Message)
	assert.Equal(t, 3, entry.Data["leaves"])
	assert.Equal(t, 2, entry.Data["out_of_window"])
}
