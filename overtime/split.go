/*
split.go - Tail attribution and tiered overtime

PURPOSE:
  Decides, for every work or break entry on a day, how many of its hours are
  regular and how many are overtime, then how the overtime divides into
  tier-1 and tier-2.

TAIL ATTRIBUTION:
  Entries are ordered by start (stable; missing start sorts last). Walking in
  that order with a running total of worked hours:

    regular  = max(0, min(d, capacity - accumulated))
    overtime = d - regular
    accumulated += d

  The earliest entries fill capacity; once it is exhausted every later entry
  is 100% overtime. Only the allocation order is chronological: callers keep
  their own slice order for output.

TIERS:
  tier1 = min(overtime, threshold), tier2 = max(0, overtime - threshold).
  At exactly the threshold tier2 is zero. Per entry, the day's tier-1 room
  is consumed in the same chronological order as capacity.

WEEKLY PASS:
  For the weekly and both bases, regular hours beyond the weekly threshold
  are moved to overtime, again earliest first.

EXAMPLE:
  09:00-13:00 (4h) and 14:00-19:00 (5h), capacity 8
  -> first: regular 4, overtime 0
  -> second: regular 4, overtime 1
*/
package overtime

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// ALLOCATION - One entry's share of a day's capacity
// =============================================================================

// Allocation is the mutable split of one entry's hours.
type Allocation struct {
	Start    time.Time
	HasStart bool
	Duration decimal.Decimal

	Regular  decimal.Decimal
	Overtime decimal.Decimal
	Tier1    decimal.Decimal
	Tier2    decimal.Decimal
}

// NewAllocation starts with every hour regular.
func NewAllocation(start time.Time, hasStart bool, hours decimal.Decimal) *Allocation {
	hours = generic.ClampZero(hours)
	return &Allocation{Start: start, HasStart: hasStart, Duration: hours, Regular: hours}
}

// Chronological returns a stably sorted copy: ascending start, entries
// without a start last, ties in input order.
func Chronological(items []*Allocation) []*Allocation {
	sorted := make([]*Allocation, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasStart != b.HasStart {
			return a.HasStart
		}
		if !a.HasStart {
			return false
		}
		return a.Start.Before(b.Start)
	})
	return sorted
}

// SplitDay performs tail attribution against a day's effective capacity.
func SplitDay(items []*Allocation, capacity decimal.Decimal) {
	capacity = generic.ClampZero(capacity)
	accumulated := decimal.Zero
	for _, a := range Chronological(items) {
		room := generic.ClampZero(capacity.Sub(accumulated))
		a.Regular = generic.MinDecimal(a.Duration, room)
		a.Overtime = a.Duration.Sub(a.Regular)
		accumulated = accumulated.Add(a.Duration)
	}
}

// =============================================================================
// TIERS
// =============================================================================

// SplitTiers divides a day's overtime at the tier-2 threshold.
func SplitTiers(overtime, threshold decimal.Decimal) (tier1, tier2 decimal.Decimal) {
	overtime = generic.ClampZero(overtime)
	threshold = generic.ClampZero(threshold)
	tier1 = generic.MinDecimal(overtime, threshold)
	tier2 = generic.ClampZero(overtime.Sub(threshold))
	return tier1, tier2
}

// SplitDayTiers distributes the day's tier-1 room across overtime-bearing
// entries in chronological order. The per-entry sums equal
// SplitTiers(Σ overtime, threshold).
func SplitDayTiers(items []*Allocation, threshold decimal.Decimal) {
	room := generic.ClampZero(threshold)
	for _, a := range Chronological(items) {
		a.Tier1, a.Tier2 = SplitTiers(a.Overtime, room)
		room = room.Sub(a.Tier1)
	}
}

// flatTiers is used when tiering is off: all overtime is tier-1.
func flatTiers(items []*Allocation) {
	for _, a := range items {
		a.Tier1 = a.Overtime
		a.Tier2 = decimal.Zero
	}
}

// =============================================================================
// WEEKLY PASS
// =============================================================================

// ApplyWeeklyThreshold moves regular hours beyond threshold to overtime.
// items must already be in the order hours were worked across the week.
func ApplyWeeklyThreshold(items []*Allocation, threshold decimal.Decimal) {
	threshold = generic.ClampZero(threshold)
	accumulated := decimal.Zero
	for _, a := range items {
		room := generic.ClampZero(threshold.Sub(accumulated))
		keep := generic.MinDecimal(a.Regular, room)
		a.Overtime = a.Overtime.Add(a.Regular.Sub(keep))
		a.Regular = keep
		accumulated = accumulated.Add(keep)
	}
}
