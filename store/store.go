/*
Package store persists workspaces around the engine.

PURPOSE:
  The engine is pure: it sees entries and reference data for one call and
  forgets them. A workspace keeps both between calls so the HTTP API can
  accept entries incrementally and re-run analyses, and it records a
  summary of every run.

WORKSPACE:
  id         - caller-chosen identifier
  reference  - overtime.ReferenceData (users, profiles, holidays, time off,
               overrides, config, calcParams)
  entries    - time entries, upserted by entry id, kept in first-seen order
  runs       - analysis history, newest first

  A workspace exists once either its reference or any entry was saved.
  Loading an unknown workspace returns generic.ErrWorkspaceNotFound.

IMPLEMENTATIONS:
  Memory          - maps behind a sync.RWMutex (tests, demo)
  sqlite.Store    - github.com/mattn/go-sqlite3 (production)

SEE ALSO:
  - store/sqlite/sqlite.go
  - api/handlers.go: workspace endpoints
*/
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/overtime"
)

// Store is the workspace persistence interface.
type Store interface {
	// SaveReference replaces a workspace's reference data, creating the
	// workspace if needed.
	SaveReference(ctx context.Context, workspaceID string, ref *overtime.ReferenceData) error

	// LoadReference returns the reference data. A workspace created only by
	// entries has empty reference data.
	LoadReference(ctx context.Context, workspaceID string) (*overtime.ReferenceData, error)

	// UpsertEntries inserts or replaces entries by id and returns how many
	// were stored. Malformed entries are skipped.
	UpsertEntries(ctx context.Context, workspaceID string, entries []*overtime.TimeEntry) (int, error)

	// LoadEntries returns entries in first-seen order.
	LoadEntries(ctx context.Context, workspaceID string) ([]*overtime.TimeEntry, error)

	// DeleteWorkspace removes the workspace with its entries and runs.
	DeleteWorkspace(ctx context.Context, workspaceID string) error

	// SaveRun records one analysis run.
	SaveRun(ctx context.Context, run Run) error

	// ListRuns returns a workspace's runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, workspaceID string, limit int) ([]Run, error)
}

// =============================================================================
// RUN - One recorded analysis
// =============================================================================

type RunStatus string

const (
	RunSucceeded  RunStatus = "succeeded"
	RunFailed     RunStatus = "failed"
	RunSuperseded RunStatus = "superseded"
)

// Run summarises one analysis of a workspace.
type Run struct {
	ID          string             `json:"id"`
	WorkspaceID string             `json:"workspaceId"`
	DateRange   overtime.DateRange `json:"dateRange"`
	Status      RunStatus          `json:"status"`
	Error       string             `json:"error,omitempty"`

	Users         int             `json:"users"`
	Entries       int             `json:"entries"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	Amount        decimal.Decimal `json:"amount"`

	Duration  time.Duration `json:"durationNs"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewRun summarises results into a succeeded run.
func NewRun(workspaceID string, rng *overtime.DateRange, entries int, results []overtime.UserAnalysisResult) Run {
	run := Run{
		ID:            uuid.NewString(),
		WorkspaceID:   workspaceID,
		Status:        RunSucceeded,
		Users:         len(results),
		Entries:       entries,
		TotalHours:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		Amount:        decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}
	if rng != nil {
		run.DateRange = *rng
	}
	for _, r := range results {
		run.TotalHours = run.TotalHours.Add(r.Totals.Total)
		run.OvertimeHours = run.OvertimeHours.Add(r.Totals.Overtime)
		run.Amount = run.Amount.Add(r.Totals.Amount)
	}
	return run
}

// FailedRun records a run that produced no result.
func FailedRun(workspaceID string, rng *overtime.DateRange, entries int, status RunStatus, err error) Run {
	run := NewRun(workspaceID, rng, entries, nil)
	run.Status = status
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// entryID returns the id to store an entry under; entries without one get
// a fresh id on a copy so the caller's value is untouched.
func entryID(e *overtime.TimeEntry) *overtime.TimeEntry {
	if e.ID != "" {
		return e
	}
	cp := *e
	cp.ID = uuid.NewString()
	return &cp
}

// Normalize drops unusable entries and assigns ids to the rest.
func Normalize(entries []*overtime.TimeEntry) []*overtime.TimeEntry {
	out := make([]*overtime.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Malformed() {
			continue
		}
		out = append(out, entryID(e))
	}
	return out
}
