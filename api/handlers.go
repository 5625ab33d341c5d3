/*
handlers.go - HTTP API handlers for the leave and project reports

PURPOSE:
  Exposes the report pipelines over HTTP. Handles request parsing and
  validation, loads the dataset, delegates to report.Builder or
  tracking.Builder and writes the workbook or its JSON preview.

ENDPOINTS:
  Reports:
    GET    /api/leave/export?month=YYYY-MM   Download the workbook
    GET    /api/leave/report?month=YYYY-MM   JSON preview of the same report
    GET    /api/leave/window?month=YYYY-MM   Reporting window days
    GET    /api/projects/export?year=YYYY    Download the assignment list
    GET    /api/projects/report?year=YYYY    JSON preview of the assignment list

  History:
    GET    /api/exports?limit=N              Recorded exports, newest first

  Ops:
    GET    /api/health                       Liveness and database check

MONTH RESOLUTION:
  month query  →  DefaultMonth (REPORT_DEFAULT_MONTH)  →  current month

YEAR RESOLUTION:
  year query   →  DefaultYear (REPORT_DEFAULT_YEAR)    →  current year

FILENAMES:
  Content-Disposition carries filename="..." for ASCII names. Non-ASCII
  names (the assignment list) are sent as filename*=UTF-8''... instead.

REQUEST FLOW:
  1. Parse and validate the query
  2. Load the dataset (source failures degrade to empty collections)
  3. Build the report
  4. Serialize the workbook or the preview
  5. Record the export run

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid month, year or limit
  - 500: Workbook or database failures
  - 503: Database unreachable (health only)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
	"github.com/warp/attendance-export/source"
	"github.com/warp/attendance-export/store/sqlite"
	"github.com/warp/attendance-export/tracking"
	"github.com/warp/attendance-export/xlsx"
)

const defaultHistoryLimit = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Source   source.Source
	Builder  *report.Builder
	Projects *tracking.Builder

	// DefaultMonth is used when a request has no month. Empty means the
	// current month.
	DefaultMonth string
	// DefaultYear is used when a project request has no year. Empty means
	// the current year.
	DefaultYear string

	log      logrus.FieldLogger
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, src source.Source, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Source:   src,
		Builder:  report.NewBuilder(log),
		Projects: tracking.NewBuilder(log),
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ExportLeave builds the report and returns it as an xlsx attachment.
func (h *Handler) ExportLeave(w http.ResponseWriter, r *http.Request) {
	month, err := h.resolveMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	rep, status := h.buildReport(r.Context(), month)

	var buf bytes.Buffer
	if err := xlsx.Export(rep.Grid, &buf); err != nil {
		h.requestLog(r).WithError(err).Error("workbook export failed")
		writeError(w, http.StatusInternalServerError, "Failed to write workbook", err)
		return
	}

	run, err := h.Store.RecordExportRun(r.Context(), sqlite.ExportRun{
		Report:        sqlite.ReportLeave,
		Month:         month.String(),
		Filename:      rep.Grid.Filename,
		Employees:     rep.Registry.Len(),
		LeaveRecords:  len(rep.Leaves),
		LedgerCells:   rep.Ledger.Len(),
		Highlights:    len(rep.Grid.Styles),
		DatasetStatus: status,
	})
	if err != nil {
		h.requestLog(r).WithError(err).Warn("could not record export run")
	} else {
		w.Header().Set("X-Export-Run", run.ID)
	}

	h.writeWorkbook(w, r, rep.Grid.Filename, status, &buf)
}

// GetReport returns the report as JSON.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	month, err := h.resolveMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	rep, status := h.buildReport(r.Context(), month)
	writeJSON(w, http.StatusOK, toReportDTO(rep, status))
}

// GetWindow returns the reporting window of a month.
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	month, err := h.resolveMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowDTO(report.NewWindow(month)))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ExportProjects builds the assignment list of a year and returns it as an
// xlsx attachment.
func (h *Handler) ExportProjects(w http.ResponseWriter, r *http.Request) {
	year, err := h.resolveYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	rep, status := h.buildProjects(r.Context(), year)

	var buf bytes.Buffer
	if err := xlsx.ExportProjects(rep.Sheet, &buf); err != nil {
		h.requestLog(r).WithError(err).Error("assignment list export failed")
		writeError(w, http.StatusInternalServerError, "Failed to write workbook", err)
		return
	}

	run, err := h.Store.RecordExportRun(r.Context(), sqlite.ExportRun{
		Report:        sqlite.ReportProjects,
		Month:         strconv.Itoa(year),
		Filename:      rep.Sheet.Filename,
		Employees:     rep.Registry.Len(),
		LeaveRecords:  len(rep.Entries),
		LedgerCells:   rep.Tally.Len(),
		Highlights:    len(rep.Sheet.Styles),
		DatasetStatus: status,
	})
	if err != nil {
		h.requestLog(r).WithError(err).Warn("could not record export run")
	} else {
		w.Header().Set("X-Export-Run", run.ID)
	}

	h.writeWorkbook(w, r, rep.Sheet.Filename, status, &buf)
}

// GetProjects returns the assignment list of a year as JSON.
func (h *Handler) GetProjects(w http.ResponseWriter, r *http.Request) {
	year, err := h.resolveYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	rep, status := h.buildProjects(r.Context(), year)
	writeJSON(w, http.StatusOK, toProjectsDTO(rep, status))
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// ListExports returns recorded export runs, newest first.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	q := LimitQuery{Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		q.Limit = n
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.Store.ListExportRuns(r.Context(), q.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exports", err)
		return
	}

	dtos := make([]ExportRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toExportRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "degraded", Database: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Database: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveMonth reads ?month=, falling back to DefaultMonth, then the
// current month.
func (h *Handler) resolveMonth(r *http.Request) (report.Month, error) {
	q := MonthQuery{Month: r.URL.Query().Get("month")}
	if err := h.validate.Struct(q); err != nil {
		return report.Month{}, fmt.Errorf("%w: %q", report.ErrInvalidMonth, q.Month)
	}

	switch {
	case q.Month != "":
		return report.ParseMonth(q.Month)
	case h.DefaultMonth != "":
		return report.ParseMonth(h.DefaultMonth)
	default:
		return report.MonthOf(h.now()), nil
	}
}

// resolveYear reads ?year=, falling back to DefaultYear, then the current
// year.
func (h *Handler) resolveYear(r *http.Request) (int, error) {
	q := YearQuery{Year: r.URL.Query().Get("year")}
	if err := h.validate.Struct(q); err != nil {
		return 0, fmt.Errorf("year must be YYYY: %q", q.Year)
	}

	raw := q.Year
	if raw == "" {
		raw = h.DefaultYear
	}
	if raw == "" {
		return h.now().Year(), nil
	}
	return strconv.Atoi(raw)
}

// buildReport loads the dataset and builds the report. The returned status
// is sqlite.DatasetDegraded when a collection could not be fetched.
func (h *Handler) buildReport(ctx context.Context, month report.Month) (*report.Report, string) {
	log := h.log.WithField("month", month.String())
	if id := requestID(ctx); id != "" {
		log = log.WithField("request_id", id)
	}

	status := sqlite.DatasetComplete
	ds, err := source.LoadDataset(ctx, h.Source, log)
	if err != nil {
		status = sqlite.DatasetDegraded
		if !errors.Is(err, report.ErrDatasetUnavailable) {
			log.WithError(err).Error("unexpected dataset error")
		}
	}
	return h.Builder.Build(month, ds), status
}

// buildProjects loads the project dataset and builds the assignment list.
func (h *Handler) buildProjects(ctx context.Context, year int) (*tracking.Report, string) {
	log := h.log.WithField("year", year)
	if id := requestID(ctx); id != "" {
		log = log.WithField("request_id", id)
	}

	status := sqlite.DatasetComplete
	ds, err := source.LoadProjectDataset(ctx, h.Source, log)
	if err != nil {
		status = sqlite.DatasetDegraded
		if !errors.Is(err, report.ErrDatasetUnavailable) {
			log.WithError(err).Error("unexpected dataset error")
		}
	}
	return h.Projects.Build(year, ds), status
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, filename, status string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Dataset-Status", status)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.requestLog(r).WithError(err).Warn("client went away during download")
	}
}

// contentDisposition returns an attachment header for filename.
func contentDisposition(filename string) string {
	if isASCII(filename) {
		return fmt.Sprintf("attachment; filename=%q", filename)
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (h *Handler) requestLog(r *http.Request) logrus.FieldLogger {
	if id := requestID(r.Context()); id != "" {
		return h.log.WithField("request_id", id)
	}
	return h.log
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
