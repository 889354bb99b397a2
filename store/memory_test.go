package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store"
)

func entry(id, user, start, dur string) *overtime.TimeEntry {
	return &overtime.TimeEntry{
		ID:           id,
		UserID:       user,
		TimeInterval: &overtime.TimeInterval{Start: start, Duration: dur},
	}
}

func TestMemory_UnknownWorkspace(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.LoadReference(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrWorkspaceNotFound)
	_, err = m.LoadEntries(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrWorkspaceNotFound)
	_, err = m.ListRuns(ctx, "nope", 0)
	assert.ErrorIs(t, err, generic.ErrWorkspaceNotFound)
	assert.ErrorIs(t, m.DeleteWorkspace(ctx, "nope"), generic.ErrWorkspaceNotFound)
}

func TestMemory_UpsertKeepsFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	n, err := m.UpsertEntries(ctx, "ws", []*overtime.TimeEntry{
		entry("a", "u1", "2025-03-10T09:00:00Z", "PT1H"),
		entry("b", "u1", "2025-03-11T09:00:00Z", "PT2H"),
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Replacing "a" keeps its slot; "c" goes last.
	_, err = m.UpsertEntries(ctx, "ws", []*overtime.TimeEntry{
		entry("c", "u2", "2025-03-12T09:00:00Z", "PT3H"),
		entry("a", "u1", "2025-03-10T09:00:00Z", "PT4H"),
	})
	require.NoError(t, err)

	got, err := m.LoadEntries(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "PT4H", got[0].TimeInterval.Duration)

	// Entries-only workspaces have empty reference data.
	ref, err := m.LoadReference(ctx, "ws")
	require.NoError(t, err)
	assert.Empty(t, ref.Users)
}

func TestMemory_EntriesWithoutIDGetOne(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	in := entry("", "u1", "2025-03-10T09:00:00Z", "PT1H")

	_, err := m.UpsertEntries(ctx, "ws", []*overtime.TimeEntry{in})
	require.NoError(t, err)

	got, err := m.LoadEntries(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Empty(t, in.ID)
}

func TestMemory_ReferenceAndDelete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	ref := &overtime.ReferenceData{Users: []overtime.User{{ID: "u1", Name: "Ada"}}}

	require.NoError(t, m.SaveReference(ctx, "ws", ref))
	got, err := m.LoadReference(ctx, "ws")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Users[0].Name)

	require.NoError(t, m.DeleteWorkspace(ctx, "ws"))
	_, err = m.LoadReference(ctx, "ws")
	assert.ErrorIs(t, err, generic.ErrWorkspaceNotFound)
}

func TestMemory_RunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := store.NewRun("ws", nil, i, nil)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.SaveRun(ctx, run))
	}

	runs, err := m.ListRuns(ctx, "ws", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{runs[0].Entries, runs[1].Entries, runs[2].Entries})

	runs, err = m.ListRuns(ctx, "ws", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestNewRun_SumsTotals(t *testing.T) {
	results := []overtime.UserAnalysisResult{
		{UserID: "u1", Totals: overtime.Totals{Total: decimal.NewFromInt(10), Overtime: decimal.NewFromInt(2), Amount: decimal.NewFromInt(550)}},
		{UserID: "u2", Totals: overtime.Totals{Total: decimal.NewFromInt(4), Overtime: decimal.Zero, Amount: decimal.NewFromInt(100)}},
	}
	rng := &overtime.DateRange{Start: "2025-03-10", End: "2025-03-16"}

	run := store.NewRun("ws", rng, 3, results)

	assert.Equal(t, store.RunSucceeded, run.Status)
	assert.Equal(t, 2, run.Users)
	assert.Equal(t, "2025-03-10", run.DateRange.Start)
	assert.True(t, run.TotalHours.Equal(decimal.NewFromInt(14)))
	assert.True(t, run.OvertimeHours.Equal(decimal.NewFromInt(2)))
	assert.True(t, run.Amount.Equal(decimal.NewFromInt(650)))

	failed := store.FailedRun("ws", nil, 3, store.RunSuperseded, generic.ErrSuperseded)
	assert.Equal(t, store.RunSuperseded, failed.Status)
	assert.Equal(t, generic.ErrSuperseded.Error(), failed.Error)
}
