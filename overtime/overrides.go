/*
overrides.go - Per-user override resolution

PURPOSE:
  Resolves the four per-day parameters (capacity, multiplier, tier-2
  threshold, tier-2 multiplier) for one user and day.

PRECEDENCE (highest first), evaluated independently per field:
  1. perDayOverrides[dateKey][field]      only when mode = perDay
  2. weeklyOverrides[weekday][field]      only when mode = weekly
  3. top-level override field             in every mode
  4. workspace default                    calcParams / profile capacity

HOLES:
  A level whose value is missing or not finite (NaN, ±Inf, "abc") is
  invisible. Resolution falls through to the next level; an invalid value
  never propagates.

EXAMPLE:
  spec := OverrideSpec{
      Mode:   ModeWeekly,
      Values: OverrideValues{Multiplier: Num(2)},
      Weekly: map[generic.WeekdayKey]OverrideValues{
          generic.Saturday: {Multiplier: Num(3)},
      },
  }
  // Saturday -> 3, any other day -> 2, user without spec -> calcParams
*/
package overtime

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// OVERRIDE SPEC
// =============================================================================

type OverrideMode string

const (
	ModeGlobal OverrideMode = "global"
	ModePerDay OverrideMode = "perDay"
	ModeWeekly OverrideMode = "weekly"
)

// normalizeMode accepts "perDay", "per_day", "PERDAY"; unknown is global.
func normalizeMode(m OverrideMode) OverrideMode {
	switch strings.ReplaceAll(strings.ToLower(string(m)), "_", "") {
	case "perday":
		return ModePerDay
	case "weekly":
		return ModeWeekly
	default:
		return ModeGlobal
	}
}

// Field names one resolvable parameter.
type Field int

const (
	FieldCapacity Field = iota
	FieldMultiplier
	FieldTier2Threshold
	FieldTier2Multiplier
)

func (f Field) String() string {
	switch f {
	case FieldCapacity:
		return "capacity"
	case FieldMultiplier:
		return "multiplier"
	case FieldTier2Threshold:
		return "tier2Threshold"
	case FieldTier2Multiplier:
		return "tier2Multiplier"
	default:
		return "unknown"
	}
}

// OverrideValues is one level's partial set of fields.
type OverrideValues struct {
	Capacity        Number `json:"capacity,omitzero"`
	Multiplier      Number `json:"multiplier,omitzero"`
	Tier2Threshold  Number `json:"tier2Threshold,omitzero"`
	Tier2Multiplier Number `json:"tier2Multiplier,omitzero"`
}

// Get returns the field value when present and finite.
func (v OverrideValues) Get(f Field) (float64, bool) {
	switch f {
	case FieldCapacity:
		return v.Capacity.Get()
	case FieldMultiplier:
		return v.Multiplier.Get()
	case FieldTier2Threshold:
		return v.Tier2Threshold.Get()
	case FieldTier2Multiplier:
		return v.Tier2Multiplier.Get()
	default:
		return 0, false
	}
}

// OverrideSpec is a user's override configuration.
type OverrideSpec struct {
	Mode   OverrideMode
	Values OverrideValues
	PerDay map[generic.DateKey]OverrideValues
	Weekly map[generic.WeekdayKey]OverrideValues
}

// overrideSpecJSON is the wire shape: global fields sit at the top level.
type overrideSpecJSON struct {
	Mode OverrideMode `json:"mode"`
	OverrideValues
	PerDayOverrides map[generic.DateKey]OverrideValues `json:"perDayOverrides,omitempty"`
	WeeklyOverrides map[string]OverrideValues          `json:"weeklyOverrides,omitempty"`
}

func (s *OverrideSpec) UnmarshalJSON(data []byte) error {
	*s = OverrideSpec{}
	var w overrideSpecJSON
	if err := json.Unmarshal(data, &w); err != nil {
		// A spec we cannot read overrides nothing.
		return nil
	}
	s.Mode = normalizeMode(w.Mode)
	s.Values = w.OverrideValues
	s.PerDay = w.PerDayOverrides
	if len(w.WeeklyOverrides) > 0 {
		s.Weekly = make(map[generic.WeekdayKey]OverrideValues, len(w.WeeklyOverrides))
		for k, v := range w.WeeklyOverrides {
			s.Weekly[generic.NormalizeWeekday(k)] = v
		}
	}
	return nil
}

func (s OverrideSpec) MarshalJSON() ([]byte, error) {
	w := overrideSpecJSON{
		Mode:            normalizeMode(s.Mode),
		OverrideValues:  s.Values,
		PerDayOverrides: s.PerDay,
	}
	if len(s.Weekly) > 0 {
		w.WeeklyOverrides = make(map[string]OverrideValues, len(s.Weekly))
		for k, v := range s.Weekly {
			w.WeeklyOverrides[string(k)] = v
		}
	}
	return json.Marshal(w)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver walks the precedence levels. It is a pure function of the specs
// and workspace defaults it was built with.
type Resolver struct {
	overrides map[string]OverrideSpec
	defaults  CalcParams
}

// NewResolver copies nothing; callers must not mutate the maps during use.
func NewResolver(overrides map[string]OverrideSpec, defaults CalcParams) *Resolver {
	return &Resolver{overrides: overrides, defaults: defaults}
}

// Resolve returns the effective value of field for a user and day.
// fallback is the level-4 value; use Default(field) when no profile-derived
// value applies.
func (r *Resolver) Resolve(field Field, userID string, day generic.DateKey, weekday generic.WeekdayKey, fallback decimal.Decimal) decimal.Decimal {
	for _, candidate := range r.levels(field, userID, day, weekday) {
		if v, ok := candidate(); ok {
			return decimal.NewFromFloat(v)
		}
	}
	return fallback
}

// Default returns the level-4 workspace default for a field.
func (r *Resolver) Default(field Field) decimal.Decimal {
	builtin := DefaultCalcParams()
	switch field {
	case FieldCapacity:
		return r.defaults.DailyThreshold.DecimalOr(generic.DefaultDailyCapacity)
	case FieldMultiplier:
		return r.defaults.OvertimeMultiplier.DecimalOr(builtin.OvertimeMultiplier.DecimalOr(decimal.Zero))
	case FieldTier2Threshold:
		return r.defaults.Tier2Threshold.DecimalOr(builtin.Tier2Threshold.DecimalOr(decimal.Zero))
	case FieldTier2Multiplier:
		return r.defaults.Tier2Multiplier.DecimalOr(builtin.Tier2Multiplier.DecimalOr(decimal.Zero))
	default:
		return decimal.Zero
	}
}

// levels lists the override lookups in precedence order. The workspace
// default is not part of the list; Resolve falls back to it.
func (r *Resolver) levels(field Field, userID string, day generic.DateKey, weekday generic.WeekdayKey) []func() (float64, bool) {
	spec, ok := r.overrides[userID]
	if !ok {
		return nil
	}
	var levels []func() (float64, bool)
	switch normalizeMode(spec.Mode) {
	case ModePerDay:
		levels = append(levels, func() (float64, bool) { return spec.PerDay[day].Get(field) })
	case ModeWeekly:
		levels = append(levels, func() (float64, bool) { return spec.weekly(weekday).Get(field) })
	}
	levels = append(levels, func() (float64, bool) { return spec.Values.Get(field) })
	return levels
}

func (s OverrideSpec) weekly(wd generic.WeekdayKey) OverrideValues {
	if v, ok := s.Weekly[wd]; ok {
		return v
	}
	// Specs built in code may carry non-normalized keys.
	for k, v := range s.Weekly {
		if generic.NormalizeWeekday(string(k)) == wd {
			return v
		}
	}
	return OverrideValues{}
}
