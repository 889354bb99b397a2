package overtime

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE RESOLUTION
// =============================================================================

// ResolveRate scans candidates in priority order. The first strictly
// positive finite candidate wins; failing that, the first finite one
// (including zero); failing that, zero. Nil and non-finite candidates are
// absent.
func ResolveRate(candidates ...*Rate) decimal.Decimal {
	firstFinite, haveFinite := decimal.Zero, false
	for _, c := range candidates {
		v, ok := c.value()
		if !ok {
			continue
		}
		if v.IsPositive() {
			return v
		}
		if !haveFinite {
			firstFinite, haveFinite = v, true
		}
	}
	return firstFinite
}

// EarnedRate is the billing rate: earnedRate, rate, hourlyRate.
func EarnedRate(e *TimeEntry) decimal.Decimal {
	return ResolveRate(e.EarnedRate, e.Rate, e.HourlyRate)
}

// CostRate is the internal cost rate: costRate.
func CostRate(e *TimeEntry) decimal.Decimal {
	return ResolveRate(e.CostRate)
}

// =============================================================================
// AMOUNTS
// =============================================================================

// Amounts is one amount-kind (earned, cost, or profit) for an entry or a
// total.
type Amounts struct {
	Rate         decimal.Decimal `json:"rate"`
	Regular      decimal.Decimal `json:"regularAmount"`
	Base         decimal.Decimal `json:"baseAmount"`
	OTPremium    decimal.Decimal `json:"otPremium"`
	Tier2Premium decimal.Decimal `json:"tier2Premium"`
	Total        decimal.Decimal `json:"totalAmount"`
}

// Premiums groups the multipliers that apply on a day.
type Premiums struct {
	Multiplier      decimal.Decimal
	Tier2Multiplier decimal.Decimal
}

var one = decimal.NewFromInt(1)

// ComputeAmounts prices an allocation at rate.
//
//	regular      = regular × rate
//	base         = (regular + overtime) × rate
//	otPremium    = tier1 × rate × (multiplier − 1)
//	tier2Premium = tier2 × rate × (tier2Multiplier − 1)
//	total        = base + otPremium + tier2Premium
//
// otPremium prices tier-1 overtime only: tier-2 hours carry their own
// multiplier in tier2Premium, and with tiered overtime on, otPremium is less
// than overtime × rate × (multiplier − 1). Without tiering tier1 equals
// overtime, so otPremium covers all overtime.
func ComputeAmounts(a *Allocation, rate decimal.Decimal, p Premiums) Amounts {
	return Amounts{
		Rate:         rate,
		Regular:      a.Regular.Mul(rate),
		Base:         a.Regular.Add(a.Overtime).Mul(rate),
		OTPremium:    a.Tier1.Mul(rate).Mul(p.Multiplier.Sub(one)),
		Tier2Premium: a.Tier2.Mul(rate).Mul(p.Tier2Multiplier.Sub(one)),
	}.withTotal()
}

func (a Amounts) withTotal() Amounts {
	a.Total = a.Base.Add(a.OTPremium).Add(a.Tier2Premium)
	return a
}

// Sub returns a − b field by field. Used for profit = earned − cost.
func (a Amounts) Sub(b Amounts) Amounts {
	return Amounts{
		Rate:         a.Rate.Sub(b.Rate),
		Regular:      a.Regular.Sub(b.Regular),
		Base:         a.Base.Sub(b.Base),
		OTPremium:    a.OTPremium.Sub(b.OTPremium),
		Tier2Premium: a.Tier2Premium.Sub(b.Tier2Premium),
		Total:        a.Total.Sub(b.Total),
	}
}

// zeroAmounts is used for non-billable earned amounts.
func zeroAmounts() Amounts {
	return Amounts{
		Rate: decimal.Zero, Regular: decimal.Zero, Base: decimal.Zero,
		OTPremium: decimal.Zero, Tier2Premium: decimal.Zero, Total: decimal.Zero,
	}
}
