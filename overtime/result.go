package overtime

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// TAGS
// =============================================================================

type Tag string

const (
	TagHoliday Tag = "HOLIDAY"
	TagOffDay  Tag = "OFF-DAY"
	TagTimeOff Tag = "TIME-OFF"
)

// Tags is a small ordered set.
type Tags []Tag

// With returns the set including t.
func (ts Tags) With(t Tag) Tags {
	if ts.Has(t) {
		return ts
	}
	out := append(Tags{}, ts...)
	out = append(out, t)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (ts Tags) Has(t Tag) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

// =============================================================================
// ENTRY ANALYSIS
// =============================================================================

// EntryAnalysis is the derived record attached to each entry.
type EntryAnalysis struct {
	EntryID  string          `json:"entryId"`
	Type     EntryType       `json:"type"`
	Class    EntryClass      `json:"class"`
	Start    string          `json:"start,omitempty"`
	Duration decimal.Decimal `json:"duration"`

	Regular  decimal.Decimal `json:"regular"`
	Overtime decimal.Decimal `json:"overtime"`
	Tier1    decimal.Decimal `json:"tier1"`
	Tier2    decimal.Decimal `json:"tier2"`

	IsBillable bool            `json:"isBillable"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	CostRate   decimal.Decimal `json:"costRate"`

	Earned Amounts `json:"earned"`
	Cost   Amounts `json:"cost"`
	Profit Amounts `json:"profit"`

	Tags Tags `json:"tags"`

	// Entry is the original input. Read-only.
	Entry *TimeEntry `json:"-"`

	alloc *Allocation
}

// =============================================================================
// DAY RECORD
// =============================================================================

// DayMeta carries the anomaly flags of a day.
type DayMeta struct {
	IsHoliday         bool            `json:"isHoliday"`
	HolidayName       string          `json:"holidayName,omitempty"`
	IsNonWorking      bool            `json:"isNonWorking"`
	IsTimeOff         bool            `json:"isTimeOff"`
	TimeOffHours      decimal.Decimal `json:"timeOffHours"`
	BaseCapacity      decimal.Decimal `json:"baseCapacity"`
	EffectiveCapacity decimal.Decimal `json:"effectiveCapacity"`
}

// DayRecord is one user's calendar day. Entries keep input order.
type DayRecord struct {
	Date    generic.DateKey  `json:"date"`
	Entries []*EntryAnalysis `json:"entries"`
	Meta    DayMeta          `json:"meta"`
}

// =============================================================================
// TOTALS & USER RESULT
// =============================================================================

// Totals are per-user sums over the analysed days.
type Totals struct {
	Total             decimal.Decimal `json:"total"`
	Regular           decimal.Decimal `json:"regular"`
	Overtime          decimal.Decimal `json:"overtime"`
	Tier2             decimal.Decimal `json:"tier2"`
	Breaks            decimal.Decimal `json:"breaks"`
	BillableWorked    decimal.Decimal `json:"billableWorked"`
	BillableOT        decimal.Decimal `json:"billableOT"`
	NonBillableWorked decimal.Decimal `json:"nonBillableWorked"`
	NonBillableOT     decimal.Decimal `json:"nonBillableOT"`

	Amount       decimal.Decimal `json:"amount"`
	OTPremium    decimal.Decimal `json:"otPremium"`
	Tier2Premium decimal.Decimal `json:"tier2Premium"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`

	HolidayCount     int             `json:"holidayCount"`
	HolidayHours     decimal.Decimal `json:"holidayHours"`
	TimeOffCount     int             `json:"timeOffCount"`
	TimeOffHours     decimal.Decimal `json:"timeOffHours"`
	ExpectedCapacity decimal.Decimal `json:"expectedCapacity"`
}

// UserAnalysisResult is the top-level output for one user.
type UserAnalysisResult struct {
	UserID   string                         `json:"userId"`
	UserName string                         `json:"userName"`
	Days     map[generic.DateKey]*DayRecord `json:"days"`
	Totals   Totals                         `json:"totals"`
}

// SortedDays returns the day records in date order.
func (r *UserAnalysisResult) SortedDays() []*DayRecord {
	keys := make([]generic.DateKey, 0, len(r.Days))
	for k := range r.Days {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]*DayRecord, len(keys))
	for i, k := range keys {
		out[i] = r.Days[k]
	}
	return out
}
