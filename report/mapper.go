/*
mapper.go - Upstream record schema → typed entities

PURPOSE:
  The records service exposes every site as generic records whose columns
  are opaque codes grouped in blocks ("ClassHash.ClassD", "NumHash.NumS").
  This file is the only place that knows those codes. Everything downstream
  works on Employee and LeaveRecord.

FIELD TABLE:
  Employee.ID               ClassHash.ClassD              required
  Employee.ResultID         ResultId                      required
  Employee.Name             DescriptionHash.DescriptionA  default "Unknown"
  Employee.BaselineHours    NumHash.NumS                  default 0
  Employee.Location         DescriptionHash.DescriptionC
  Employee.Gender           ClassHash.ClassF
  Employee.Team             ClassHash.ClassT
  Employee.Role             ClassHash.ClassC

  LeaveRecord.EmployeeResultID  ClassHash.ClassE          required
  LeaveRecord.Type              ClassHash.ClassA
  LeaveRecord.Date              DateHash.DateC            required
  LeaveRecord.Hours             ClassHash.ClassB          default 8

FAILURES:
  Required field missing or unparseable → record dropped, warning logged.
  Optional field unparseable → default kept, warning logged.
*/
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// FIELD REFERENCES
// =============================================================================

// Block is a group of coded columns in an upstream record.
type Block string

const (
	BlockTop         Block = ""
	BlockIdentity    Block = "Class"
	BlockDescription Block = "Description"
	BlockNumeric     Block = "Num"
	BlockDate        Block = "Date"
)

// FieldRef addresses one value in a Record.
type FieldRef struct {
	Block Block
	Code  string
}

// Path returns the dotted path of the field, e.g. "ClassHash.ClassD".
func (f FieldRef) Path() string {
	if f.Block == BlockTop {
		return f.Code
	}
	return string(f.Block) + "Hash." + string(f.Block) + f.Code
}

// Lookup returns the raw value at f.
func (f FieldRef) Lookup(r Record) (any, bool) {
	if f.Block == BlockTop {
		v, ok := r[f.Code]
		return v, ok
	}
	block, ok := r[string(f.Block)+"Hash"].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := block[string(f.Block)+f.Code]
	return v, ok
}

// Text returns the value at f as a string. Absent, null and "" are missing.
func (f FieldRef) Text(r Record) (string, bool) {
	v, ok := f.Lookup(r)
	if !ok {
		return "", false
	}
	s := textValue(v)
	return s, s != ""
}

func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any, map[string]any:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}

var (
	fieldResultID = FieldRef{BlockTop, "ResultId"}

	fieldEmployeeID       = FieldRef{BlockIdentity, "D"}
	fieldEmployeeName     = FieldRef{BlockDescription, "A"}
	fieldEmployeeBaseline = FieldRef{BlockNumeric, "S"}
	fieldEmployeeLocation = FieldRef{BlockDescription, "C"}
	fieldEmployeeGender   = FieldRef{BlockIdentity, "F"}
	fieldEmployeeTeam     = FieldRef{BlockIdentity, "T"}
	fieldEmployeeRole     = FieldRef{BlockIdentity, "C"}

	fieldLeaveEmployee = FieldRef{BlockIdentity, "E"}
	fieldLeaveType     = FieldRef{BlockIdentity, "A"}
	fieldLeaveDate     = FieldRef{BlockDate, "C"}
	fieldLeaveHours    = FieldRef{BlockIdentity, "B"}
)

// =============================================================================
// FIELD TABLES
// =============================================================================

// FieldSpec maps one upstream field onto a target entity. A required field
// that is missing or rejected by Set drops the record; an optional one keeps
// the entity's default.
type FieldSpec[T any] struct {
	Name     string
	Ref      FieldRef
	Required bool
	Set      func(dst *T, value string) error
}

var employeeFields = []FieldSpec[Employee]{
	{"id", fieldEmployeeID, true, func(e *Employee, v string) error { e.ID = v; return nil }},
	{"result_id", fieldResultID, true, func(e *Employee, v string) error { e.ResultID = v; return nil }},
	{"name", fieldEmployeeName, false, func(e *Employee, v string) error { e.Name = v; return nil }},
	{"baseline_hours", fieldEmployeeBaseline, false, func(e *Employee, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		e.BaselineHours = d
		return nil
	}},
	{"location", fieldEmployeeLocation, false, func(e *Employee, v string) error { e.Location = v; return nil }},
	{"gender", fieldEmployeeGender, false, func(e *Employee, v string) error { e.Gender = v; return nil }},
	{"team", fieldEmployeeTeam, false, func(e *Employee, v string) error { e.Team = v; return nil }},
	{"role", fieldEmployeeRole, false, func(e *Employee, v string) error { e.Role = v; return nil }},
}

var leaveFields = []FieldSpec[LeaveRecord]{
	{"employee_result_id", fieldLeaveEmployee, true, func(l *LeaveRecord, v string) error { l.EmployeeResultID = v; return nil }},
	{"type", fieldLeaveType, false, func(l *LeaveRecord, v string) error {
		l.Type = v
		l.Unpaid = v == UnpaidLeaveType
		return nil
	}},
	{"date", fieldLeaveDate, true, func(l *LeaveRecord, v string) error {
		d, err := ParseDate(v)
		if err != nil {
			return err
		}
		l.Date = d
		return nil
	}},
	{"hours", fieldLeaveHours, false, func(l *LeaveRecord, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		if !d.IsPositive() {
			return fmt.Errorf("hours must be positive, got %s", v)
		}
		l.Hours = d
		return nil
	}},
}

// dateLayouts are the accepted upstream date forms, tried in order. Month
// and day may be unpadded, and a fractional second is accepted after any
// seconds field. Slashed dates with the year last read month first (m/d/Y);
// dotted ones read day first (d.m.Y). Relative forms ("yesterday") are not
// accepted.
var dateLayouts = []string{
	time.RFC3339,
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006",
	"2.1.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses an upstream date value to its calendar date at UTC
// midnight. The time-of-day part is discarded.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// =============================================================================
// MAPPER
// =============================================================================

// Mapper converts upstream records into entities.
type Mapper struct {
	log logrus.FieldLogger
}

// NewMapper creates a Mapper. A nil logger discards output.
func NewMapper(log logrus.FieldLogger) *Mapper {
	return &Mapper{log: orDiscard(log)}
}

// Map maps both collections of a dataset.
func (m *Mapper) Map(ds Dataset) (*Registry, []LeaveRecord) {
	return m.MapEmployees(ds.Employees), m.MapLeaves(ds.Leaves)
}

// MapEmployees maps employee records into a Registry, in source order.
func (m *Mapper) MapEmployees(records []Record) *Registry {
	employees := make([]Employee, 0, len(records))
	for i, rec := range records {
		e := Employee{Name: "Unknown", BaselineHours: decimal.Zero}
		if err := ApplyFields(employeeFields, rec, &e, "employee", i, m.log); err != nil {
			LogSkipped(m.log, err)
			continue
		}
		employees = append(employees, e)
	}
	m.log.WithField("count", len(employees)).Info("loaded employees")
	return NewRegistry(employees)
}

// MapLeaves maps leave records, in source order.
func (m *Mapper) MapLeaves(records []Record) []LeaveRecord {
	leaves := make([]LeaveRecord, 0, len(records))
	for i, rec := range records {
		l := LeaveRecord{Hours: DefaultLeaveHours}
		if err := ApplyFields(leaveFields, rec, &l, "leave", i, m.log); err != nil {
			LogSkipped(m.log, err)
			continue
		}
		leaves = append(leaves, l)
	}
	m.log.WithField("count", len(leaves)).Info("loaded leave records")
	return leaves
}

// ApplyFields fills dst from rec following table. Optional fields that fail
// to parse are logged and skipped; the first failing required field is
// returned as a *MalformedRecordError.
func ApplyFields[T any](table []FieldSpec[T], rec Record, dst *T, kind string, index int, log logrus.FieldLogger) error {
	for _, f := range table {
		v, ok := f.Ref.Text(rec)
		if !ok {
			if f.Required {
				return &MalformedRecordError{Kind: kind, Index: index, Field: f.Ref.Path(), Err: ErrMissingField}
			}
			continue
		}
		if err := f.Set(dst, v); err != nil {
			if f.Required {
				return &MalformedRecordError{Kind: kind, Index: index, Field: f.Ref.Path(), Err: err}
			}
			log.WithFields(logrus.Fields{
				"kind":   kind,
				"index":  index,
				"field":  f.Ref.Path(),
				"target": f.Name,
				"value":  v,
			}).WithError(err).Warn("ignoring invalid optional field")
		}
	}
	return nil
}

// LogSkipped logs a record dropped by ApplyFields. Missing fields and bad
// dates are expected upstream noise and log at warn; anything else a
// required setter rejected logs at error.
func LogSkipped(log logrus.FieldLogger, err error) {
	entry := log.WithError(err)
	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		entry = entry.WithFields(logrus.Fields{"kind": mre.Kind, "index": mre.Index, "field": mre.Field})
	}
	if IsMalformed(err) {
		entry.Warn("skipping malformed record")
		return
	}
	entry.Error("skipping rejected record")
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the ordered set of employees for one run.
type Registry struct {
	employees  []Employee
	byResultID map[string]int
}

// NewRegistry indexes employees by ResultID. When two employees share a
// ResultID the later one wins the lookup; both stay in the list.
func NewRegistry(employees []Employee) *Registry {
	r := &Registry{employees: employees, byResultID: make(map[string]int, len(employees))}
	for i, e := range employees {
		r.byResultID[e.ResultID] = i
	}
	return r
}

// Employees returns the employees in source order. Read-only.
func (r *Registry) Employees() []Employee { return r.employees }

// Len returns the number of employees.
func (r *Registry) Len() int { return len(r.employees) }

// ByResultID resolves an employee by upstream record key.
func (r *Registry) ByResultID(resultID string) (Employee, bool) {
	i, ok := r.byResultID[resultID]
	if !ok {
		return Employee{}, false
	}
	return r.employees[i], true
}
