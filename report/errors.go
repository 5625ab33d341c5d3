/*
errors.go - Error types for the report pipeline

ERROR CATEGORIES:
  1. Malformed records - missing required field or bad date (record skipped)
  2. Input errors - invalid month parameter
  3. Source errors - dataset unavailable (report degrades to empty grid)

Nothing here is fatal to a report run. Record-level errors are logged by
the Mapper and the record is dropped.
*/
package report

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingField is returned when a required field is absent or blank.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidDate is returned when a leave date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidMonth is returned for a month parameter not in YYYY-MM form.
	ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

	// ErrDatasetUnavailable is how data source failures reach the report.
	// The report is still produced, with no rows.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// MalformedRecordError describes a record dropped by the Mapper.
type MalformedRecordError struct {
	Kind  string // "employee", "leave", "project" or "working_time"
	Index int    // position in the source collection
	Field string // target field name
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s record %d: %s: %v", e.Kind, e.Index, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err describes a dropped record.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrInvalidDate)
}
