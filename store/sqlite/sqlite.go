/*
Package sqlite provides the SQLite-backed store of the export service.

PURPOSE:
  Keeps the two pieces of state that outlive a single report run:
  - export history (which month was exported, when, with how many rows)
  - source snapshots (the last good payload fetched from the records
    service, served when the service is unreachable)

  The report itself is never persisted. It is rebuilt from the source on
  every request.

KEY TABLES:
  export_runs:       One row per generated report, leave or projects
  source_snapshots:  Raw JSON payloads per source kind, newest last

SCHEMA CHANGES:
  Columns added after the first release are added to older databases by
  migrate with ALTER TABLE when missing.

NO UPDATES:
  Rows are inserted, never updated. Old snapshots are removed by
  PruneSnapshots.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The store is shared by all HTTP
  handlers.

USAGE:
  store, err := sqlite.New("./data/export.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - source/snapshot.go: reads and writes snapshots
  - api/handlers.go: records export runs
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements export history and snapshot storage using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Export runs (one per generated report)
	CREATE TABLE IF NOT EXISTS export_runs (
		id TEXT PRIMARY KEY,
		report TEXT NOT NULL DEFAULT 'leave',
		month TEXT NOT NULL,
		filename TEXT NOT NULL,
		employees INTEGER NOT NULL DEFAULT 0,
		leave_records INTEGER NOT NULL DEFAULT 0,
		ledger_cells INTEGER NOT NULL DEFAULT 0,
		highlights INTEGER NOT NULL DEFAULT 0,
		dataset_status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_export_runs_month
		ON export_runs(month);

	-- Source snapshots (last good payload per kind)
	CREATE TABLE IF NOT EXISTS source_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload BLOB NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_source_snapshots_kind
		ON source_snapshots(kind, id DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.addColumn("export_runs", "report", `TEXT NOT NULL DEFAULT 'leave'`)
}

// addColumn adds column to table unless it already exists.
func (s *Store) addColumn(table, column, decl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// =============================================================================
// EXPORT RUNS
// =============================================================================

// Dataset status values recorded with an export run.
const (
	DatasetComplete = "complete"
	DatasetDegraded = "degraded"
)

// Report kinds recorded with an export run.
const (
	ReportLeave    = "leave"
	ReportProjects = "projects"
)

// ExportRun records one generated report. For project runs LeaveRecords
// counts working-time entries and LedgerCells the booked (employee,
// project) pairs.
type ExportRun struct {
	ID            string
	Report        string // leave, projects
	Month         string // YYYY-MM for leave, YYYY for projects
	Filename      string
	Employees     int
	LeaveRecords  int
	LedgerCells   int
	Highlights    int
	DatasetStatus string // complete, degraded
	CreatedAt     time.Time
}

// RecordExportRun saves an export run. ID and CreatedAt are filled in when
// empty.
func (s *Store) RecordExportRun(ctx context.Context, r ExportRun) (ExportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if r.DatasetStatus == "" {
		r.DatasetStatus = DatasetComplete
	}
	if r.Report == "" {
		r.Report = ReportLeave
	}

	query := `
		INSERT INTO export_runs (id, report, month, filename, employees, leave_records,
			ledger_cells, highlights, dataset_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Report, r.Month, r.Filename,
		r.Employees, r.LeaveRecords, r.LedgerCells, r.Highlights,
		r.DatasetStatus, r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return ExportRun{}, fmt.Errorf("failed to record export run: %w", err)
	}
	return r, nil
}

// ListExportRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListExportRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, report, month, filename, employees, leave_records, ledger_cells,
			highlights, dataset_status, created_at
		FROM export_runs
		ORDER BY created_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []ExportRun{}
	for rows.Next() {
		var r ExportRun
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.Report, &r.Month, &r.Filename, &r.Employees, &r.LeaveRecords,
			&r.LedgerCells, &r.Highlights, &r.DatasetStatus, &createdAt,
		); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// SOURCE SNAPSHOTS
// =============================================================================

// SaveSnapshot appends a raw payload for kind.
func (s *Store) SaveSnapshot(ctx context.Context, kind string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_snapshots (kind, payload, fetched_at) VALUES (?, ?, ?)`,
		kind, payload, s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest payload for kind. A nil payload and
// nil error mean there is none.
func (s *Store) LatestSnapshot(ctx context.Context, kind string) ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	var fetchedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, fetched_at FROM source_snapshots
		WHERE kind = ?
		ORDER BY id DESC
		LIMIT 1
	`, kind).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	t, _ := time.Parse(time.RFC3339, fetchedAt)
	return payload, t, nil
}

// PruneSnapshots keeps the newest keep snapshots per kind and deletes the
// rest. Returns the number of rows removed.
func (s *Store) PruneSnapshots(ctx context.Context, kind string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM source_snapshots
		WHERE kind = ? AND id NOT IN (
			SELECT id FROM source_snapshots WHERE kind = ? ORDER BY id DESC LIMIT ?
		)
	`, kind, kind, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}
