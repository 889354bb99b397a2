/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built workspaces that demonstrate how the engine splits a
	day. Each scenario stores reference data and entries for one user on
	Monday 2025-03-10; analyzing the workspace reproduces the expected
	figures listed with it.

AVAILABLE SCENARIOS:

	regular-day:      8h at $50 against capacity 8, no overtime
	long-day:         10h, 2h overtime at 1.5x
	split-day:        Two entries, overtime lands on the later one
	holiday:          Holiday zeroes capacity, all work is overtime
	partial-time-off: 10h partial time off clamps capacity to 0
	nan-override:     A NaN multiplier override falls through to 1.5

HOW SCENARIOS WORK:
 1. Drop the target workspace (ignore "not found")
 2. Save reference data
 3. Upsert entries
 4. Remember the scenario as current

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "split-day"}
	POST /api/workspaces/split-day/analyze

ADDING NEW SCENARIOS:
 1. Add a scenario to the 'scenarios' slice with its data builder
 2. Add a case to TestScenarios_ExpectedFigures

NOTE:

	Loading replaces the target workspace.

SEE ALSO:
  - handlers.go: workspace endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	scenarioDay  = generic.DateKey("2025-03-10")
	scenarioUser = "alice"
)

type scenario struct {
	ScenarioDTO
	build func() (*overtime.ReferenceData, []*overtime.TimeEntry)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "regular-day",
			Name:        "Regular Day",
			Description: "One 8h entry at $50/h against the default 8h capacity",
			Expected:    "regular=8 overtime=0 amount=400",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			return scenarioReference(), []*overtime.TimeEntry{
				scenarioEntry("e1", "09:00", "17:00"),
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "long-day",
			Name:        "Long Day",
			Description: "One 10h entry; the last 2h are overtime at 1.5x",
			Expected:    "regular=8 overtime=2 amount=550 otPremium=50",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			return scenarioReference(), []*overtime.TimeEntry{
				scenarioEntry("e1", "09:00", "19:00"),
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "split-day",
			Name:        "Split Day",
			Description: "A 4h morning and a 5h afternoon; capacity fills chronologically",
			Expected:    "morning regular=4 overtime=0; afternoon regular=4 overtime=1",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			// Afternoon first: order of arrival must not matter.
			return scenarioReference(), []*overtime.TimeEntry{
				scenarioEntry("afternoon", "14:00", "19:00"),
				scenarioEntry("morning", "09:00", "13:00"),
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "holiday",
			Name:        "Holiday",
			Description: "Work on a reference holiday; capacity drops to 0",
			Expected:    "regular=0 overtime=8 holidayCount=1",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			ref := scenarioReference()
			ref.Config.ApplyHolidays = true
			ref.Holidays = map[string]map[generic.DateKey]overtime.HolidayRecord{
				scenarioUser: {scenarioDay: {Name: "Founders Day"}},
			}
			return ref, []*overtime.TimeEntry{scenarioEntry("e1", "09:00", "17:00")}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "partial-time-off",
			Name:        "Partial Time Off",
			Description: "10h partial time off against capacity 8 clamps capacity at 0",
			Expected:    "effectiveCapacity=0 regular=0 overtime=8",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			ref := scenarioReference()
			ref.Config.ApplyTimeOff = true
			ref.TimeOff = map[string]map[generic.DateKey]overtime.TimeOffRecord{
				scenarioUser: {scenarioDay: {IsFullDay: false, Hours: overtime.Num(10)}},
			}
			return ref, []*overtime.TimeEntry{scenarioEntry("e1", "09:00", "17:00")}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "nan-override",
			Name:        "NaN Override",
			Description: "A global multiplier override of NaN never wins over the 1.5 default",
			Expected:    "multiplier=1.5 overtime=2 amount=550",
		},
		build: func() (*overtime.ReferenceData, []*overtime.TimeEntry) {
			ref := scenarioReference()
			ref.Overrides = map[string]overtime.OverrideSpec{
				scenarioUser: {
					Mode:   overtime.ModeGlobal,
					Values: overtime.OverrideValues{Multiplier: overtime.Num(math.NaN())},
				},
			}
			return ref, []*overtime.TimeEntry{scenarioEntry("e1", "09:00", "19:00")}
		},
	},
}

func scenarioReference() *overtime.ReferenceData {
	return &overtime.ReferenceData{
		Users: []overtime.User{{ID: scenarioUser, Name: "Alice"}},
	}
}

func scenarioEntry(id, from, to string) *overtime.TimeEntry {
	day := string(scenarioDay)
	return &overtime.TimeEntry{
		ID:       id,
		UserID:   scenarioUser,
		UserName: "Alice",
		Type:     overtime.TypeRegular,
		TimeInterval: &overtime.TimeInterval{
			Start: day + "T" + from + ":00Z",
			End:   day + "T" + to + ":00Z",
		},
		HourlyRate: overtime.NewRate(50),
	}
}

func findScenario(id string) (scenario, error) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return scenario{}, fmt.Errorf("%w: %q", generic.ErrScenarioNotFound, id)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := findScenario(current)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario replaces a workspace with a scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.loadScenario(r.Context(), req)
	if err != nil {
		writeStatusError(w, "Failed to load scenario", err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("scenario", resp.Scenario.ID).
		Str("workspace_id", resp.WorkspaceID).
		Msg("scenario loaded")
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loadScenario(ctx context.Context, req LoadScenarioRequest) (*LoadScenarioResponse, error) {
	s, err := findScenario(req.ScenarioID)
	if err != nil {
		return nil, err
	}
	wsID := req.WorkspaceID
	if wsID == "" {
		wsID = s.ID
	}

	if err := h.Store.DeleteWorkspace(ctx, wsID); err != nil && !generic.IsNotFound(err) {
		return nil, fmt.Errorf("failed to reset workspace: %w", err)
	}
	h.workers.Release(wsID)

	ref, entries := s.build()
	if err := h.Store.SaveReference(ctx, wsID, ref); err != nil {
		return nil, fmt.Errorf("failed to save reference data: %w", err)
	}
	n, err := h.Store.UpsertEntries(ctx, wsID, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to save entries: %w", err)
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	return &LoadScenarioResponse{
		Scenario:    s.ScenarioDTO,
		WorkspaceID: wsID,
		Entries:     n,
		DateRange:   &overtime.DateRange{Start: string(scenarioDay), End: string(scenarioDay)},
	}, nil
}
