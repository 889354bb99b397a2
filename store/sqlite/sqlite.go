/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists workspaces (reference data, time entries, analysis runs) so the
  HTTP API can accept entries over several requests and re-run analyses.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  workspaces:     One row per workspace; reference data as the wire JSON
                  produced by factory.EncodeStore (maps as [key, value] pairs)
  entries:        One row per (workspace, entry id); the entry body as JSON,
                  a position column keeps first-seen order across upserts
  analysis_runs:  Run history, newest first by created_at

INDEXES:
  - idx_entries_workspace_position: LoadEntries (hot path)
  - idx_entries_workspace_user: per-user inspection
  - idx_runs_workspace_created: ListRuns

UPSERT:
  Entries are written with INSERT ... ON CONFLICT(workspace_id, id) DO
  UPDATE. A replaced entry keeps its original position.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/overtime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  st.SaveReference(ctx, "acme", ref)
  st.UpsertEntries(ctx, "acme", entries)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: Interface definition
  - store/memory.go: In-memory implementation for testing
  - factory/store.go: Reference data wire shape
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		reference_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		start_at TEXT NOT NULL DEFAULT '',
		body_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (workspace_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_workspace_position
		ON entries(workspace_id, position);
	CREATE INDEX IF NOT EXISTS idx_entries_workspace_user
		ON entries(workspace_id, user_id, start_at);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		range_start TEXT NOT NULL DEFAULT '',
		range_end TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT,
		users INTEGER NOT NULL DEFAULT 0,
		entries INTEGER NOT NULL DEFAULT 0,
		total_hours TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		amount TEXT NOT NULL DEFAULT '0',
		duration_ns INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_workspace_created
		ON analysis_runs(workspace_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// ensureWorkspace creates the workspace row if it does not exist.
func ensureWorkspace(ctx context.Context, db execer, id string) error {
	ts := now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO workspaces (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (s *Store) requireWorkspace(ctx context.Context, id string) (string, error) {
	var referenceJSON string
	err := s.db.QueryRowContext(ctx, "SELECT reference_json FROM workspaces WHERE id = ?", id).Scan(&referenceJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", generic.ErrWorkspaceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load workspace: %w", err)
	}
	return referenceJSON, nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SaveReference replaces a workspace's reference data.
func (s *Store) SaveReference(ctx context.Context, workspaceID string, ref *overtime.ReferenceData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(factory.EncodeStore(ref))
	if err != nil {
		return fmt.Errorf("failed to encode reference data: %w", err)
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, reference_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reference_json = excluded.reference_json,
			updated_at = excluded.updated_at
	`, workspaceID, string(body), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to save reference data: %w", err)
	}
	return nil
}

// LoadReference returns the stored reference data.
func (s *Store) LoadReference(ctx context.Context, workspaceID string) (*overtime.ReferenceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := s.requireWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var wire factory.StoreJSON
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}
	return wire.Reference(overtime.CalcParams{}), nil
}

// =============================================================================
// ENTRIES
// =============================================================================

// UpsertEntries inserts new entries at the end and replaces existing ones
// in place.
func (s *Store) UpsertEntries(ctx context.Context, workspaceID string, entries []*overtime.TimeEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := store.Normalize(entries)

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := ensureWorkspace(ctx, sqlTx, workspaceID); err != nil {
		return 0, err
	}

	var next int64
	if err := sqlTx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM entries WHERE workspace_id = ?", workspaceID,
	).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read entry position: %w", err)
	}

	ts := now()
	for _, e := range stored {
		body, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
		start := ""
		if e.TimeInterval != nil {
			start = e.TimeInterval.Start
		}
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO entries (workspace_id, id, position, user_id, start_at, body_json, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(workspace_id, id) DO UPDATE SET
				user_id = excluded.user_id,
				start_at = excluded.start_at,
				body_json = excluded.body_json,
				updated_at = excluded.updated_at
		`, workspaceID, e.ID, next, e.UserID, start, string(body), ts)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}
		next++
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit entries: %w", err)
	}
	return len(stored), nil
}

// LoadEntries returns entries in first-seen order.
func (s *Store) LoadEntries(ctx context.Context, workspaceID string) ([]*overtime.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requireWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body_json FROM entries WHERE workspace_id = ? ORDER BY position ASC", workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []*overtime.TimeEntry{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		var e overtime.TimeEntry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteWorkspace removes a workspace. Entries and runs cascade.
func (s *Store) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrWorkspaceNotFound
	}
	return nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun records one analysis run.
func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := ensureWorkspace(ctx, sqlTx, run.WorkspaceID); err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO analysis_runs
		(id, workspace_id, range_start, range_end, status, error, users, entries,
		 total_hours, overtime_hours, amount, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.WorkspaceID,
		run.DateRange.Start,
		run.DateRange.End,
		string(run.Status),
		nullString(run.Error),
		run.Users,
		run.Entries,
		run.TotalHours.String(),
		run.OvertimeHours.String(),
		run.Amount.String(),
		int64(run.Duration),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return sqlTx.Commit()
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, workspaceID string, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requireWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, range_start, range_end, status, error, users, entries,
		       total_hours, overtime_hours, amount, duration_ns, created_at
		FROM analysis_runs
		WHERE workspace_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []store.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (store.Run, error) {
	var run store.Run
	var runErr sql.NullString
	var status, totalHours, overtime, amount, createdAt string
	var durationNs int64
	err := rows.Scan(
		&run.ID, &run.WorkspaceID, &run.DateRange.Start, &run.DateRange.End,
		&status, &runErr, &run.Users, &run.Entries,
		&totalHours, &overtime, &amount, &durationNs, &createdAt,
	)
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Status = store.RunStatus(status)
	run.Error = runErr.String
	run.TotalHours = parseDecimal(totalHours)
	run.OvertimeHours = parseDecimal(overtime)
	run.Amount = parseDecimal(amount)
	run.Duration = time.Duration(durationNs)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return run, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
