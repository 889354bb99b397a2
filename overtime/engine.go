/*
engine.go - The Aggregator and public entry point

PURPOSE:
  Analyze(entries, referenceData, dateRange) runs the whole pipeline and
  returns one UserAnalysisResult per user in the roster.

ROSTER:
  Union of referenceData.Users, every userId in entries (including entries
  later dropped for a missing interval or the range), and every userId
  keyed in the reference maps. Supplied users keep their order; the rest
  follow sorted by id. An entry without userId belongs to "unknown". A user
  with no roster name takes the first entry userName, else "Unknown".

DAYS:
  With both range bounds every calendar day in [start, end] is visited and
  entries outside the range are dropped. With a missing or partial range
  only the days that have entries are visited. No entries and no range
  yields an empty result.

CAPACITY BACKFILL:
  A visited day without entries still adds its effective capacity to
  expectedCapacity, and its holiday/time off to the counters. It gets a
  DayRecord (with no entries) only when it is a holiday or time-off day.

FAILURE POLICY:
  nil entries, non-object entries, unparseable intervals: skipped or zero,
  logged at debug level. Errors are returned only for a nil ReferenceData
  or a date range that cannot be parsed or ends before it starts.

ACCUMULATION:
  Per-user totals are folded through an accumulator value; nothing is
  shared between users or between calls.
*/
package overtime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// UnknownUserID buckets entries that carry no userId.
const UnknownUserID = "unknown"

// UnknownUserName is used when no name is known for a user.
const UnknownUserName = "Unknown"

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs analyses. It holds no state between calls and is safe for
// concurrent use.
type Engine struct {
	logger zerolog.Logger
}

type Option func(*Engine)

// WithLogger sets the logger used for debug-level notes about skipped input.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs a default engine.
func Analyze(entries []*TimeEntry, ref *ReferenceData, rng *DateRange) ([]UserAnalysisResult, error) {
	return New().Analyze(entries, ref, rng)
}

// Analyze computes per-user results. It never mutates its arguments.
func (e *Engine) Analyze(entries []*TimeEntry, ref *ReferenceData, rng *DateRange) ([]UserAnalysisResult, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: reference data is required", generic.ErrInvalidInput)
	}
	loc := e.location(ref.Config.TimeZone)

	var period *generic.Period
	if rng.complete() {
		p, err := generic.ParsePeriod(rng.Start, rng.End, loc)
		if err != nil {
			return nil, fmt.Errorf("date range: %w", err)
		}
		period = &p
	}

	prepared, seen := e.prepare(entries, period, loc)
	if len(seen) == 0 && period == nil {
		return []UserAnalysisResult{}, nil
	}

	byUser := make(map[string][]*preparedEntry)
	for _, pe := range prepared {
		byUser[pe.userID] = append(byUser[pe.userID], pe)
	}

	run := &userRun{
		builder:         NewDayContextBuilder(ref),
		config:          ref.Config,
		basis:           ref.Config.OvertimeBasis.normalize(),
		weeklyThreshold: ref.CalcParams.WeeklyThreshold.DecimalOr(DefaultCalcParams().WeeklyThreshold.DecimalOr(decimal.Zero)),
		period:          period,
	}

	roster := buildRoster(ref, seen)
	results := make([]UserAnalysisResult, 0, len(roster))
	for _, u := range roster {
		results = append(results, run.analyze(u, byUser[u.ID]))
	}
	return results, nil
}

func (e *Engine) location(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		e.logger.Debug().Str("time_zone", name).Err(err).Msg("unknown time zone, using UTC")
		return time.UTC
	}
	return loc
}

// =============================================================================
// ENTRY PREPARATION
// =============================================================================

type preparedEntry struct {
	entry  *TimeEntry
	userID string
	class  EntryClass
	day    generic.TimePoint
	iv     interval
}

// prepare resolves every usable entry once. Unusable entries are dropped,
// but their users are still reported in seen, in input order.
func (e *Engine) prepare(entries []*TimeEntry, period *generic.Period, loc *time.Location) (out []*preparedEntry, seen []User) {
	out = make([]*preparedEntry, 0, len(entries))
	for i, entry := range entries {
		if entry == nil || entry.Malformed() {
			e.logger.Debug().Int("index", i).Msg("skipping null or malformed entry")
			continue
		}
		userID := strings.TrimSpace(entry.UserID)
		if userID == "" {
			userID = UnknownUserID
		}
		seen = append(seen, User{ID: userID, Name: strings.TrimSpace(entry.UserName)})

		iv := resolveInterval(entry.TimeInterval)
		day, ok := iv.day(loc)
		if !ok {
			e.logger.Debug().Str("entry_id", entry.ID).Msg("entry has no usable start or end, skipped")
			continue
		}
		if period != nil && !period.Contains(day) {
			e.logger.Debug().Str("entry_id", entry.ID).Str("day", day.String()).Msg("entry outside date range, skipped")
			continue
		}
		out = append(out, &preparedEntry{
			entry:  entry,
			userID: userID,
			class:  Classify(entry.Type),
			day:    day,
			iv:     iv,
		})
	}
	return out, seen
}

// =============================================================================
// ROSTER
// =============================================================================

// buildRoster merges the supplied users, the users seen on entries and the
// users keyed in reference maps.
func buildRoster(ref *ReferenceData, seen []User) []User {
	var roster []User
	index := make(map[string]int)

	for _, u := range ref.Users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			continue
		}
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = len(roster)
		roster = append(roster, User{ID: id, Name: u.Name})
	}

	extra := make(map[string]struct{})
	note := func(id string) {
		if _, ok := index[id]; !ok && id != "" {
			extra[id] = struct{}{}
		}
	}
	for _, u := range seen {
		note(u.ID)
	}
	for id := range ref.Profiles {
		note(id)
	}
	for id := range ref.Holidays {
		note(id)
	}
	for id := range ref.TimeOff {
		note(id)
	}
	for id := range ref.Overrides {
		note(id)
	}

	ids := make([]string, 0, len(extra))
	for id := range extra {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		index[id] = len(roster)
		roster = append(roster, User{ID: id})
	}

	for _, su := range seen {
		u := &roster[index[su.ID]]
		if u.Name == "" && su.Name != "" {
			u.Name = su.Name
		}
	}
	for i := range roster {
		if roster[i].Name == "" {
			roster[i].Name = UnknownUserName
		}
	}
	return roster
}

// =============================================================================
// PER-USER RUN
// =============================================================================

// userRun carries the invocation-wide settings through each user's fold.
type userRun struct {
	builder         *DayContextBuilder
	config          Config
	basis           Basis
	weeklyThreshold decimal.Decimal
	period          *generic.Period
}

// dayWork is one visited day that produces a DayRecord.
type dayWork struct {
	ctx    DayContext
	record *DayRecord
	pool   []*Allocation // work and break, in input order
	allocs []*Allocation
	all    []*EntryAnalysis
}

func (r *userRun) analyze(user User, entries []*preparedEntry) UserAnalysisResult {
	result := UserAnalysisResult{
		UserID:   user.ID,
		UserName: user.Name,
		Days:     make(map[generic.DateKey]*DayRecord),
	}

	byDay := make(map[generic.DateKey][]*preparedEntry)
	for _, pe := range entries {
		byDay[pe.day.Key()] = append(byDay[pe.day.Key()], pe)
	}

	acc := newAccumulator()
	var worked []*dayWork
	for _, day := range r.days(entries) {
		dayEntries := byDay[day.Key()]
		signals := EntrySignals{TimeOffHours: decimal.Zero}
		for _, pe := range dayEntries {
			signals = signals.observe(pe.entry, pe.iv.hours)
		}
		ctx := r.builder.Build(user.ID, day, signals)
		acc = acc.addDay(ctx)

		if len(dayEntries) == 0 && !ctx.IsHoliday && !ctx.IsTimeOff {
			continue
		}
		worked = append(worked, newDayWork(ctx, dayEntries))
	}

	if r.basis != BasisWeekly {
		for _, dw := range worked {
			SplitDay(dw.pool, dw.ctx.EffectiveCapacity)
		}
	}
	if r.basis != BasisDaily {
		applyWeekly(worked, r.weeklyThreshold)
	}

	for _, dw := range worked {
		flatTiers(dw.allocs)
		if r.config.EnableTieredOT {
			SplitDayTiers(dw.pool, dw.ctx.Tier2Threshold)
		}
		for _, ea := range dw.all {
			ea.price(dw.ctx)
			acc = acc.addEntry(ea)
		}
		result.Days[dw.record.Date] = dw.record
	}

	result.Totals = acc.totals
	return result
}

// days lists the calendar days to visit for a user.
func (r *userRun) days(entries []*preparedEntry) []generic.TimePoint {
	if r.period != nil {
		return r.period.Days()
	}
	seen := make(map[generic.DateKey]generic.TimePoint)
	for _, pe := range entries {
		seen[pe.day.Key()] = pe.day
	}
	days := make([]generic.TimePoint, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func newDayWork(ctx DayContext, entries []*preparedEntry) *dayWork {
	dw := &dayWork{
		ctx: ctx,
		record: &DayRecord{
			Date:    ctx.Date.Key(),
			Entries: make([]*EntryAnalysis, 0, len(entries)),
			Meta:    ctx.Meta(),
		},
	}
	dayTags := ctx.Tags()
	for _, pe := range entries {
		alloc := NewAllocation(pe.iv.start, pe.iv.hasStart, pe.iv.hours)
		ea := &EntryAnalysis{
			EntryID:  pe.entry.ID,
			Type:     pe.entry.Type.Normalize(),
			Class:    pe.class,
			Duration: alloc.Duration,
			Tags:     dayTags,
			Entry:    pe.entry,
			alloc:    alloc,
		}
		if pe.iv.hasStart {
			ea.Start = pe.iv.start.Format(time.RFC3339)
		}
		switch ea.Type {
		case TypeHoliday:
			ea.Tags = ea.Tags.With(TagHoliday)
		case TypeTimeOff:
			ea.Tags = ea.Tags.With(TagTimeOff)
		}
		if pe.class.inPool() {
			dw.pool = append(dw.pool, alloc)
		}
		dw.allocs = append(dw.allocs, alloc)
		dw.all = append(dw.all, ea)
		dw.record.Entries = append(dw.record.Entries, ea)
	}
	return dw
}

// applyWeekly runs the weekly pass per ISO week. worked is in day order.
func applyWeekly(worked []*dayWork, threshold decimal.Decimal) {
	var week []*Allocation
	var current generic.TimePoint
	flush := func() {
		if len(week) > 0 {
			ApplyWeeklyThreshold(week, threshold)
		}
		week = nil
	}
	for _, dw := range worked {
		ws := dw.ctx.Date.WeekStart()
		if !ws.Equal(current) {
			flush()
			current = ws
		}
		week = append(week, Chronological(dw.pool)...)
	}
	flush()
}

// price copies the final split and computes amounts.
func (ea *EntryAnalysis) price(ctx DayContext) {
	a := ea.alloc
	ea.Regular, ea.Overtime, ea.Tier1, ea.Tier2 = a.Regular, a.Overtime, a.Tier1, a.Tier2

	e := ea.Entry
	ea.IsBillable = e.Billable == nil || *e.Billable
	ea.HourlyRate = EarnedRate(e)
	ea.CostRate = CostRate(e)

	premiums := Premiums{Multiplier: ctx.Multiplier, Tier2Multiplier: ctx.Tier2Multiplier}
	ea.Earned = zeroAmounts()
	if ea.IsBillable {
		ea.Earned = ComputeAmounts(a, ea.HourlyRate, premiums)
	}
	ea.Cost = ComputeAmounts(a, ea.CostRate, premiums)
	ea.Profit = ea.Earned.Sub(ea.Cost)
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

type accumulator struct {
	totals Totals
}

func newAccumulator() accumulator {
	z := decimal.Zero
	return accumulator{totals: Totals{
		Total: z, Regular: z, Overtime: z, Tier2: z, Breaks: z,
		BillableWorked: z, BillableOT: z, NonBillableWorked: z, NonBillableOT: z,
		Amount: z, OTPremium: z, Tier2Premium: z, Cost: z, Profit: z,
		HolidayHours: z, TimeOffHours: z, ExpectedCapacity: z,
	}}
}

// addDay folds one visited day's capacity and anomalies.
func (a accumulator) addDay(ctx DayContext) accumulator {
	t := a.totals
	t.ExpectedCapacity = t.ExpectedCapacity.Add(ctx.EffectiveCapacity)
	if ctx.IsHoliday {
		t.HolidayCount++
		t.HolidayHours = t.HolidayHours.Add(ctx.BaseCapacity)
	}
	if ctx.IsTimeOff {
		t.TimeOffCount++
		t.TimeOffHours = t.TimeOffHours.Add(ctx.TimeOffHours)
	}
	return accumulator{totals: t}
}

// addEntry folds one priced entry.
func (a accumulator) addEntry(ea *EntryAnalysis) accumulator {
	t := a.totals
	t.Total = t.Total.Add(ea.Duration)
	t.Regular = t.Regular.Add(ea.Regular)
	t.Overtime = t.Overtime.Add(ea.Overtime)
	t.Tier2 = t.Tier2.Add(ea.Tier2)
	if ea.Class == ClassBreak {
		t.Breaks = t.Breaks.Add(ea.Duration)
	}
	if ea.Class.inPool() {
		if ea.IsBillable {
			t.BillableWorked = t.BillableWorked.Add(ea.Duration)
			t.BillableOT = t.BillableOT.Add(ea.Overtime)
		} else {
			t.NonBillableWorked = t.NonBillableWorked.Add(ea.Duration)
			t.NonBillableOT = t.NonBillableOT.Add(ea.Overtime)
		}
	}
	t.Amount = t.Amount.Add(ea.Earned.Total)
	t.OTPremium = t.OTPremium.Add(ea.Earned.OTPremium)
	t.Tier2Premium = t.Tier2Premium.Add(ea.Earned.Tier2Premium)
	t.Cost = t.Cost.Add(ea.Cost.Total)
	t.Profit = t.Profit.Add(ea.Profit.Total)
	return accumulator{totals: t}
}
