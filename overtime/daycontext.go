/*
daycontext.go - Capacity and anomaly detection for one user and day

PURPOSE:
  Answers "how many regular hours does this user owe on this day, and why?"

BASE CAPACITY:
  capacity override (per-day > weekly > global), else the profile's
  workCapacityHours when useProfileCapacity is on, else calcParams
  dailyThreshold, else 8. A non-working day (weekday missing from the
  profile's workingDays while useProfileWorkingDays is on) has base 0.

DUAL DETECTION:
  Holiday and time off each have two independent sources OR-ed together:
    - reference maps (only when applyHolidays / applyTimeOff is on)
    - entry types (a HOLIDAY or TIME_OFF entry on that day)
  Neither source suppresses the other. The reference holiday name wins when
  both supply one.

EFFECTIVE CAPACITY:
  isHoliday ? 0 : max(0, base - timeOffHours)
  Holiday dominates time off, but both flags stay set so both counters
  increment in the totals.
*/
package overtime

import (
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// DayContext is everything the splitters and calculators need for one day.
type DayContext struct {
	Date generic.TimePoint

	BaseCapacity      decimal.Decimal
	EffectiveCapacity decimal.Decimal

	IsHoliday    bool
	HolidayName  string
	IsNonWorking bool
	IsTimeOff    bool
	TimeOffHours decimal.Decimal

	Multiplier      decimal.Decimal
	Tier2Threshold  decimal.Decimal
	Tier2Multiplier decimal.Decimal
}

// Meta converts the context into the day record's metadata.
func (c DayContext) Meta() DayMeta {
	return DayMeta{
		IsHoliday:         c.IsHoliday,
		HolidayName:       c.HolidayName,
		IsNonWorking:      c.IsNonWorking,
		IsTimeOff:         c.IsTimeOff,
		TimeOffHours:      c.TimeOffHours,
		BaseCapacity:      c.BaseCapacity,
		EffectiveCapacity: c.EffectiveCapacity,
	}
}

// Tags are the day-level tags every entry on the day carries.
func (c DayContext) Tags() Tags {
	var ts Tags
	if c.IsHoliday {
		ts = ts.With(TagHoliday)
	}
	if c.IsNonWorking {
		ts = ts.With(TagOffDay)
	}
	if c.IsTimeOff {
		ts = ts.With(TagTimeOff)
	}
	return ts
}

// EntrySignals is what a day's own entries say about holidays and time off.
type EntrySignals struct {
	Holiday      bool
	HolidayName  string
	TimeOff      bool
	TimeOffHours decimal.Decimal
}

// observe folds one entry into the signals.
func (s EntrySignals) observe(e *TimeEntry, hours decimal.Decimal) EntrySignals {
	switch e.Type.Normalize() {
	case TypeHoliday:
		s.Holiday = true
		if s.HolidayName == "" {
			s.HolidayName = e.Description
		}
	case TypeTimeOff:
		s.TimeOff = true
		s.TimeOffHours = s.TimeOffHours.Add(hours)
	}
	return s
}

// =============================================================================
// BUILDER
// =============================================================================

// DayContextBuilder builds contexts from one invocation's reference data.
type DayContextBuilder struct {
	ref      *ReferenceData
	resolver *Resolver
}

func NewDayContextBuilder(ref *ReferenceData) *DayContextBuilder {
	return &DayContextBuilder{
		ref:      ref,
		resolver: NewResolver(ref.Overrides, ref.CalcParams),
	}
}

// Build resolves the context for userID on day.
func (b *DayContextBuilder) Build(userID string, day generic.TimePoint, signals EntrySignals) DayContext {
	cfg := b.ref.Config
	key, weekday := day.Key(), day.WeekdayKey()
	profile, hasProfile := b.ref.Profiles[userID]

	ctx := DayContext{Date: day}

	// Base capacity: override chain with the profile/workspace value as default.
	fallback := b.resolver.Default(FieldCapacity)
	if cfg.UseProfileCapacity && hasProfile {
		if d, ok := profile.WorkCapacityHours.Decimal(); ok {
			fallback = generic.ClampZero(d)
		}
	}
	ctx.BaseCapacity = generic.ClampZero(b.resolver.Resolve(FieldCapacity, userID, key, weekday, fallback))

	if cfg.UseProfileWorkingDays && hasProfile && len(profile.WorkingDays) > 0 {
		ctx.IsNonWorking = !worksOn(profile.WorkingDays, weekday)
	}
	if ctx.IsNonWorking {
		ctx.BaseCapacity = decimal.Zero
	}

	// Holiday: reference OR entry type.
	refHoliday, hasRefHoliday := b.holiday(userID, key)
	ctx.IsHoliday = hasRefHoliday || signals.Holiday
	if hasRefHoliday && refHoliday.Name != "" {
		ctx.HolidayName = refHoliday.Name
	} else if ctx.IsHoliday {
		ctx.HolidayName = signals.HolidayName
	}

	// Time off: reference OR entry type. Hours come from the record when one
	// applies, else from the TIME_OFF entries themselves.
	refTimeOff, hasRefTimeOff := b.timeOff(userID, key)
	ctx.IsTimeOff = hasRefTimeOff || signals.TimeOff
	ctx.TimeOffHours = decimal.Zero
	switch {
	case hasRefTimeOff && refTimeOff.IsFullDay:
		ctx.TimeOffHours = ctx.BaseCapacity
	case hasRefTimeOff:
		ctx.TimeOffHours = generic.ClampZero(refTimeOff.Hours.DecimalOr(decimal.Zero))
	case signals.TimeOff:
		ctx.TimeOffHours = generic.ClampZero(signals.TimeOffHours)
	}

	if ctx.IsHoliday {
		ctx.EffectiveCapacity = decimal.Zero
	} else {
		ctx.EffectiveCapacity = generic.ClampZero(ctx.BaseCapacity.Sub(ctx.TimeOffHours))
	}

	ctx.Multiplier = b.resolver.Resolve(FieldMultiplier, userID, key, weekday, b.resolver.Default(FieldMultiplier))
	ctx.Tier2Threshold = generic.ClampZero(b.resolver.Resolve(FieldTier2Threshold, userID, key, weekday, b.resolver.Default(FieldTier2Threshold)))
	ctx.Tier2Multiplier = b.resolver.Resolve(FieldTier2Multiplier, userID, key, weekday, b.resolver.Default(FieldTier2Multiplier))
	return ctx
}

func (b *DayContextBuilder) holiday(userID string, key generic.DateKey) (HolidayRecord, bool) {
	if !b.ref.Config.ApplyHolidays {
		return HolidayRecord{}, false
	}
	rec, ok := b.ref.Holidays[userID][key]
	return rec, ok
}

func (b *DayContextBuilder) timeOff(userID string, key generic.DateKey) (TimeOffRecord, bool) {
	if !b.ref.Config.ApplyTimeOff {
		return TimeOffRecord{}, false
	}
	rec, ok := b.ref.TimeOff[userID][key]
	return rec, ok
}

func worksOn(days []generic.WeekdayKey, wd generic.WeekdayKey) bool {
	for _, d := range days {
		if generic.NormalizeWeekday(string(d)) == wd {
			return true
		}
	}
	return false
}
