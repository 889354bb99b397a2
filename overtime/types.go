/*
Package overtime implements the Overtime Analysis Engine.

PURPOSE:
  Turns raw time-tracking entries plus per-workspace reference data into a
  per-user, per-day split of worked hours (regular / overtime / tier-2),
  billable and non-billable amounts, and anomaly metadata (holiday,
  non-working day, time off).

PIPELINE (leaves first):
  1. Override Resolver   - overrides.go: per-day > weekly > global > default
  2. Day Context Builder - daycontext.go: capacity, holiday, time off
  3. Entry Classifier    - classify.go: work / break / pto
  4. Tail Attribution    - split.go: earliest entries fill capacity first
  5. Tiered Overtime     - split.go: tier-1 up to threshold, tier-2 beyond
  6. Rate & Amounts      - rates.go: earned / cost / profit
  7. Aggregator          - engine.go: per-user totals and day records

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: Immutable input, decoded leniently from upstream JSON
  - ReferenceData: Profiles, holidays, time off, overrides, feature flags
  - DateRange: Optional inclusive analysis window

DESIGN PRINCIPLES:
  1. Pure: No I/O, no caching between calls, inputs are never mutated
  2. Defensive: Malformed per-entry data becomes zero/absent, never an error
  3. Exact: All hours and money use decimal.Decimal

SEE ALSO:
  - result.go: Output types (UserAnalysisResult, DayRecord, EntryAnalysis)
  - factory/store.go: Association-list wire format for ReferenceData
  - worker/protocol.go: Message transport around Analyze
*/
package overtime

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// TIME ENTRY - External, immutable input
// =============================================================================

type EntryType string

const (
	TypeRegular EntryType = "REGULAR"
	TypeBreak   EntryType = "BREAK"
	TypeHoliday EntryType = "HOLIDAY"
	TypeTimeOff EntryType = "TIME_OFF"
)

// Normalize upper-cases the type and defaults it to REGULAR.
func (t EntryType) Normalize() EntryType {
	n := strings.ToUpper(strings.TrimSpace(string(t)))
	if n == "" {
		return TypeRegular
	}
	return EntryType(strings.ReplaceAll(n, "-", "_"))
}

// TimeInterval holds the raw interval strings. Any of them may be empty or
// unparseable; see interval.go for how they become a duration.
type TimeInterval struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (ti *TimeInterval) UnmarshalJSON(data []byte) error {
	*ti = TimeInterval{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	ti.Start = lenientString(raw["start"])
	ti.End = lenientString(raw["end"])
	ti.Duration = lenientString(raw["duration"])
	return nil
}

// TimeEntry is one tracked block of time. The engine only reads it.
type TimeEntry struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	UserName     string        `json:"userName,omitempty"`
	Description  string        `json:"description,omitempty"`
	Type         EntryType     `json:"type,omitempty"`
	TimeInterval *TimeInterval `json:"timeInterval,omitempty"`

	// Rate candidates. Each may be a bare number or {amount, currency}.
	EarnedRate *Rate `json:"earnedRate,omitempty"`
	Rate       *Rate `json:"rate,omitempty"`
	HourlyRate *Rate `json:"hourlyRate,omitempty"`
	CostRate   *Rate `json:"costRate,omitempty"`

	// Billable is tri-state: nil means unknown.
	Billable *bool `json:"billable,omitempty"`

	malformed bool
}

// UnmarshalJSON never fails: fields with the wrong JSON type are treated as
// absent, and a non-object element is kept but marked malformed so the
// engine can skip it.
func (e *TimeEntry) UnmarshalJSON(data []byte) error {
	*e = TimeEntry{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		e.malformed = true
		return nil
	}

	e.ID = lenientString(raw["id"])
	e.UserID = lenientString(raw["userId"])
	e.UserName = lenientString(raw["userName"])
	e.Description = lenientString(raw["description"])
	e.Type = EntryType(lenientString(raw["type"]))
	e.Billable = lenientBool(raw["billable"])

	if iv, ok := raw["timeInterval"]; ok && isObject(iv) {
		e.TimeInterval = &TimeInterval{}
		_ = e.TimeInterval.UnmarshalJSON(iv)
	}

	e.EarnedRate = decodeRate(raw["earnedRate"])
	e.Rate = decodeRate(raw["rate"])
	e.HourlyRate = decodeRate(raw["hourlyRate"])
	e.CostRate = decodeRate(raw["costRate"])
	return nil
}

func decodeRate(data json.RawMessage) *Rate {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	r := &Rate{}
	_ = r.UnmarshalJSON(trimmed)
	return r
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Malformed reports an element that was not a JSON object.
func (e *TimeEntry) Malformed() bool { return e.malformed }

// =============================================================================
// REFERENCE DATA - Read-only context for one invocation
// =============================================================================

// User is a roster member.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is a user's contracted schedule.
type Profile struct {
	WorkCapacityHours Number               `json:"workCapacityHours"`
	WorkingDays       []generic.WeekdayKey `json:"workingDays,omitempty"`
}

// UnmarshalJSON accepts workCapacityHours as a number, or the raw upstream
// workCapacity as an ISO-8601 duration ("PT7H30M").
func (p *Profile) UnmarshalJSON(data []byte) error {
	*p = Profile{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if v, ok := raw["workCapacityHours"]; ok {
		_ = p.WorkCapacityHours.UnmarshalJSON(v)
	}
	if !p.WorkCapacityHours.Set {
		if d, ok := ParseISODuration(lenientString(raw["workCapacity"])); ok {
			p.WorkCapacityHours = Num(d.Hours())
		}
	}
	var days []string
	if err := json.Unmarshal(raw["workingDays"], &days); err == nil {
		for _, d := range days {
			p.WorkingDays = append(p.WorkingDays, generic.NormalizeWeekday(d))
		}
	}
	return nil
}

// HolidayRecord is a reference-data holiday for one user and day.
type HolidayRecord struct {
	Name string `json:"name"`
}

// TimeOffRecord is a reference-data time-off booking for one user and day.
type TimeOffRecord struct {
	IsFullDay bool   `json:"isFullDay"`
	Hours     Number `json:"hours"`
}

// Basis selects which threshold produces overtime.
type Basis string

const (
	BasisDaily  Basis = "daily"
	BasisWeekly Basis = "weekly"
	BasisBoth   Basis = "both"
)

func (b Basis) normalize() Basis {
	switch Basis(strings.ToLower(strings.TrimSpace(string(b)))) {
	case BasisWeekly:
		return BasisWeekly
	case BasisBoth:
		return BasisBoth
	default:
		return BasisDaily
	}
}

// Config holds the workspace feature flags.
type Config struct {
	UseProfileCapacity    bool   `json:"useProfileCapacity"`
	UseProfileWorkingDays bool   `json:"useProfileWorkingDays"`
	ApplyHolidays         bool   `json:"applyHolidays"`
	ApplyTimeOff          bool   `json:"applyTimeOff"`
	EnableTieredOT        bool   `json:"enableTieredOT"`
	OvertimeBasis         Basis  `json:"overtimeBasis,omitempty"`
	TimeZone              string `json:"timeZone,omitempty"`
}

// CalcParams are the workspace-level defaults, the lowest override level.
type CalcParams struct {
	DailyThreshold     Number `json:"dailyThreshold"`
	WeeklyThreshold    Number `json:"weeklyThreshold"`
	OvertimeMultiplier Number `json:"overtimeMultiplier"`
	Tier2Threshold     Number `json:"tier2Threshold"`
	Tier2Multiplier    Number `json:"tier2Multiplier"`
}

// DefaultCalcParams returns the built-in defaults.
func DefaultCalcParams() CalcParams {
	return CalcParams{
		DailyThreshold:     Num(8),
		WeeklyThreshold:    Num(40),
		OvertimeMultiplier: Num(1.5),
		Tier2Threshold:     Num(4),
		Tier2Multiplier:    Num(2),
	}
}

// ReferenceData is everything besides entries that shapes an analysis.
// Maps are keyed by user id; nil maps are valid and mean "no data".
type ReferenceData struct {
	Users      []User
	Profiles   map[string]Profile
	Holidays   map[string]map[generic.DateKey]HolidayRecord
	TimeOff    map[string]map[generic.DateKey]TimeOffRecord
	Overrides  map[string]OverrideSpec
	Config     Config
	CalcParams CalcParams
}

// DateRange is the optional analysis window. Either bound may be empty.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// complete reports whether both bounds are present.
func (r *DateRange) complete() bool {
	return r != nil && strings.TrimSpace(r.Start) != "" && strings.TrimSpace(r.End) != ""
}
