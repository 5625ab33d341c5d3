/*
mapper.go - Project and working-time records → typed entities

FIELD TABLE:
  Project.IssueID             IssueId                  required
  Project.Title               Title                    bracketed tags removed
  Project.Status              Status                   default Contracted
  Project.MemberResultIDs     ClassHash.ClassH         JSON list of ResultIds

  WorkEntry.EmployeeResultID  ClassHash.ClassA         required
  WorkEntry.ProjectID         ClassHash.ClassB         required
  WorkEntry.Start             StartTime                required
  WorkEntry.Hours             WorkValue                required

Employees are mapped by report.Mapper. Role comes from ClassHash.ClassC
there.
*/
package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
)

var (
	fieldIssueID = report.FieldRef{Block: report.BlockTop, Code: "IssueId"}
	fieldTitle   = report.FieldRef{Block: report.BlockTop, Code: "Title"}
	fieldStatus  = report.FieldRef{Block: report.BlockTop, Code: "Status"}
	fieldMembers = report.FieldRef{Block: report.BlockIdentity, Code: "H"}

	fieldWorkEmployee = report.FieldRef{Block: report.BlockIdentity, Code: "A"}
	fieldWorkProject  = report.FieldRef{Block: report.BlockIdentity, Code: "B"}
	fieldWorkStart    = report.FieldRef{Block: report.BlockTop, Code: "StartTime"}
	fieldWorkValue    = report.FieldRef{Block: report.BlockTop, Code: "WorkValue"}
)

var titleTags = regexp.MustCompile(`\[.*?\]\s*`)

// CleanTitle removes bracketed tags such as "[AGV] " from a project title.
func CleanTitle(s string) string {
	return strings.TrimSpace(titleTags.ReplaceAllString(s, ""))
}

var projectFields = []report.FieldSpec[Project]{
	{Name: "issue_id", Ref: fieldIssueID, Required: true, Set: func(p *Project, v string) error { p.IssueID = v; return nil }},
	{Name: "title", Ref: fieldTitle, Set: func(p *Project, v string) error { p.Title = CleanTitle(v); return nil }},
	{Name: "status", Ref: fieldStatus, Set: func(p *Project, v string) error { p.Status = MapStatus(v); return nil }},
	{Name: "members", Ref: fieldMembers, Set: func(p *Project, v string) error {
		ids, err := parseMemberIDs(v)
		if err != nil {
			return err
		}
		p.MemberResultIDs = ids
		return nil
	}},
}

var workFields = []report.FieldSpec[WorkEntry]{
	{Name: "employee_result_id", Ref: fieldWorkEmployee, Required: true, Set: func(w *WorkEntry, v string) error { w.EmployeeResultID = v; return nil }},
	{Name: "project_id", Ref: fieldWorkProject, Required: true, Set: func(w *WorkEntry, v string) error { w.ProjectID = v; return nil }},
	{Name: "start", Ref: fieldWorkStart, Required: true, Set: func(w *WorkEntry, v string) error {
		d, err := report.ParseDate(v)
		if err != nil {
			return err
		}
		w.Start = d
		return nil
	}},
	{Name: "hours", Ref: fieldWorkValue, Required: true, Set: func(w *WorkEntry, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("work value %q: %w", v, err)
		}
		w.Hours = d
		return nil
	}},
}

// parseMemberIDs reads a JSON list of ResultIds. Elements may be strings or
// numbers.
func parseMemberIDs(raw string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var list []any
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("member list: %w", err)
	}
	ids := make([]string, 0, len(list))
	for _, v := range list {
		switch x := v.(type) {
		case string:
			if x != "" {
				ids = append(ids, x)
			}
		case json.Number:
			ids = append(ids, x.String())
		}
	}
	return ids, nil
}

// Mapper converts project and working-time records into entities.
type Mapper struct {
	log logrus.FieldLogger
}

// NewMapper creates a Mapper. A nil logger discards output.
func NewMapper(log logrus.FieldLogger) *Mapper {
	return &Mapper{log: orDiscard(log)}
}

// Map maps the project and working-time collections of ds.
func (m *Mapper) Map(ds Dataset) ([]Project, []WorkEntry) {
	return m.MapProjects(ds.Projects), m.MapWorkingTime(ds.WorkingTime)
}

// MapProjects maps project records, in source order.
func (m *Mapper) MapProjects(records []report.Record) []Project {
	projects := make([]Project, 0, len(records))
	for i, rec := range records {
		p := Project{Status: StatusContracted}
		if err := report.ApplyFields(projectFields, rec, &p, "project", i, m.log); err != nil {
			report.LogSkipped(m.log, err)
			continue
		}
		projects = append(projects, p)
	}
	m.log.WithField("count", len(projects)).Info("loaded projects")
	return projects
}

// MapWorkingTime maps working-time records, in source order.
func (m *Mapper) MapWorkingTime(records []report.Record) []WorkEntry {
	entries := make([]WorkEntry, 0, len(records))
	for i, rec := range records {
		var w WorkEntry
		if err := report.ApplyFields(workFields, rec, &w, "working_time", i, m.log); err != nil {
			report.LogSkipped(m.log, err)
			continue
		}
		entries = append(entries, w)
	}
	m.log.WithField("count", len(entries)).Info("loaded working time")
	return entries
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
