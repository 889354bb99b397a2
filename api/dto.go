/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types travel
  in their wire shapes from package factory (maps as [key, value] pairs);
  everything around them is defined here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Workspace:
    UpsertEntriesRequest, UpsertEntriesResponse, AnalyzeRequest,
    AnalysisResponse, RunDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/store.go, factory/results.go: wire shapes
*/
package api

import (
	"time"

	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store"
)

// =============================================================================
// WORKSPACE TYPES
// =============================================================================

// UpsertEntriesRequest adds or replaces entries by id.
type UpsertEntriesRequest struct {
	Entries []*overtime.TimeEntry `json:"entries"`
}

type UpsertEntriesResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Stored      int    `json:"stored"`
	Total       int    `json:"total"`
}

// AnalyzeRequest optionally narrows a workspace analysis to a date range.
type AnalyzeRequest struct {
	DateRange *overtime.DateRange `json:"dateRange,omitempty"`
}

// AnalysisResponse wraps a workspace analysis with the run it recorded.
type AnalysisResponse struct {
	RunID   string                   `json:"run_id"`
	Results []factory.UserResultJSON `json:"results"`
}

// RunDTO represents one recorded analysis.
type RunDTO struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	RangeStart    string `json:"range_start,omitempty"`
	RangeEnd      string `json:"range_end,omitempty"`
	Users         int    `json:"users"`
	Entries       int    `json:"entries"`
	TotalHours    string `json:"total_hours"`
	OvertimeHours string `json:"overtime_hours"`
	Amount        string `json:"amount"`
	DurationMs    int64  `json:"duration_ms"`
	CreatedAt     string `json:"created_at"`
}

func toRunDTO(run store.Run) RunDTO {
	return RunDTO{
		ID:            run.ID,
		Status:        string(run.Status),
		Error:         run.Error,
		RangeStart:    run.DateRange.Start,
		RangeEnd:      run.DateRange.End,
		Users:         run.Users,
		Entries:       run.Entries,
		TotalHours:    run.TotalHours.String(),
		OvertimeHours: run.OvertimeHours.String(),
		Amount:        run.Amount.StringFixed(2),
		DurationMs:    run.Duration.Milliseconds(),
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Expected    string `json:"expected"`
}

// LoadScenarioRequest is the request to load a scenario. WorkspaceID
// defaults to the scenario id.
type LoadScenarioRequest struct {
	ScenarioID  string `json:"scenario_id"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

type LoadScenarioResponse struct {
	Scenario    ScenarioDTO         `json:"scenario"`
	WorkspaceID string              `json:"workspace_id"`
	Entries     int                 `json:"entries"`
	DateRange   *overtime.DateRange `json:"dateRange,omitempty"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
