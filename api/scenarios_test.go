/*
scenarios_test.go - Demo scenarios reproduce their advertised figures

Each scenario is loaded through the API and analyzed through its
workspace worker, so these double as end-to-end tests.
*/
package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAndAnalyze(t *testing.T, s *testServer, id string) userResultBody {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loaded LoadScenarioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, id, loaded.WorkspaceID)

	rec = s.do(t, http.MethodPost, "/api/workspaces/"+loaded.WorkspaceID+"/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body analysisBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	require.Len(t, body.Results[0].Days, 1)
	return body.Results[0]
}

func TestScenarios_ExpectedFigures(t *testing.T) {
	tests := []struct {
		id           string
		regular      string
		overtime     string
		amount       string
		holidayCount int
		timeOffCount int
	}{
		{"regular-day", "8", "0", "400", 0, 0},
		{"long-day", "8", "2", "550", 0, 0},
		{"split-day", "8", "1", "475", 0, 0},
		{"holiday", "0", "8", "600", 1, 0},
		{"partial-time-off", "0", "8", "600", 0, 1},
		{"nan-override", "8", "2", "550", 0, 0},
	}
	require.Len(t, tests, len(scenarios))

	s := setupTestServer(t)
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			result := loadAndAnalyze(t, s, tt.id)

			assert.Equal(t, "alice", result.UserID)
			assert.Equal(t, tt.regular, result.Totals.Regular)
			assert.Equal(t, tt.overtime, result.Totals.Overtime)
			assert.Equal(t, tt.amount, result.Totals.Amount)
			assert.Equal(t, tt.holidayCount, result.Totals.HolidayCount)
			assert.Equal(t, tt.timeOffCount, result.Totals.TimeOffCount)
		})
	}
}

func TestScenario_LongDayPremium(t *testing.T) {
	s := setupTestServer(t)

	result := loadAndAnalyze(t, s, "long-day")
	assert.Equal(t, "50", result.Totals.OTPremium)
}

func TestScenario_SplitDayFillsChronologically(t *testing.T) {
	// GIVEN: the afternoon entry was stored before the morning entry
	s := setupTestServer(t)

	// WHEN: analyzing the day
	day := loadAndAnalyze(t, s, "split-day").day(t, 0)

	// THEN: entries keep input order, but capacity went to the morning first
	require.Len(t, day.Entries, 2)
	assert.Equal(t, entryBody{EntryID: "afternoon", Regular: "4", Overtime: "1"}, day.Entries[0])
	assert.Equal(t, entryBody{EntryID: "morning", Regular: "4", Overtime: "0"}, day.Entries[1])
}

func TestScenario_PartialTimeOffClampsCapacity(t *testing.T) {
	s := setupTestServer(t)

	day := loadAndAnalyze(t, s, "partial-time-off").day(t, 0)
	assert.Equal(t, "0", day.Meta.EffectiveCapacity)
}

func TestScenario_HolidayDay(t *testing.T) {
	s := setupTestServer(t)

	day := loadAndAnalyze(t, s, "holiday").day(t, 0)
	assert.True(t, day.Meta.IsHoliday)
}

func TestScenarios_ListAndCurrent(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, len(scenarios))

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.JSONEq(t, `null`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "holiday", "workspace_id": "demo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", "")
	var current ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "holiday", current.ID)

	rec = s.do(t, http.MethodGet, "/api/workspaces/demo/entries", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScenarios_LoadReplacesWorkspace(t *testing.T) {
	s := setupTestServer(t)

	loadAndAnalyze(t, s, "split-day")
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "split-day"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Reloading drops the previous run history.
	rec = s.do(t, http.MethodGet, "/api/workspaces/split-day/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs": []}`, rec.Body.String())
}

func TestScenarios_Unknown(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
