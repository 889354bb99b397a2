/*
Package generic provides the domain-agnostic primitives of the overtime engine.

PURPOSE:
  This package contains the building blocks every other package shares:
  calendar days and periods, exact decimal quantities, finite-number guards,
  and the error taxonomy. Nothing here knows about time entries, users, or
  overtime rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A decimal quantity of hours
  - DefaultCurrency: Currency assumed for rates that omit one
  - Finite guards: float64 inputs are only turned into decimals when finite

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift when
     summing hundreds of entries
  2. Safety: decimal.NewFromFloat panics on NaN/Inf, so every float crossing
     into decimal goes through DecimalFromFloat
  3. Neutral values: invalid numbers become "absent", never zero silently

USAGE:
  h, ok := generic.DecimalFromFloat(profile.WorkCapacityHours)
  if !ok {
      h = generic.DefaultDailyCapacity
  }

SEE ALSO:
  - time.go: DateKey, WeekdayKey, TimePoint
  - period.go: Inclusive day ranges
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS & CURRENCY
// =============================================================================

// DefaultDailyCapacity is the built-in daily capacity when neither a profile,
// an override, nor a workspace default supplies one.
var DefaultDailyCapacity = decimal.NewFromInt(8)

var secondsPerHour = decimal.NewFromInt(3600)

// HoursFromDuration converts a duration to decimal hours.
func HoursFromDuration(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}
	// Whole seconds keep the division exact for every realistic entry.
	return decimal.NewFromInt(int64(d / time.Second)).
		Add(decimal.New(int64(d%time.Second), -9)).
		Div(secondsPerHour)
}

// DefaultCurrency is applied when upstream data omits one.
const DefaultCurrency = "USD"

// =============================================================================
// FINITE GUARDS
// =============================================================================

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DecimalFromFloat converts a finite float. ok is false for NaN/±Inf.
func DecimalFromFloat(v float64) (decimal.Decimal, bool) {
	if !IsFinite(v) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// MinDecimal returns the smaller value.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampZero returns max(0, d).
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
