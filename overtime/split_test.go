package overtime_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/overtime-engine/overtime"
)

func at(hour int) time.Time { return time.Date(2025, 3, 10, hour, 0, 0, 0, time.UTC) }

func alloc(hour int, h float64) *overtime.Allocation {
	return overtime.NewAllocation(at(hour), true, hours(h))
}

func TestSplitDay_FillsCapacityEarliestFirst(t *testing.T) {
	// GIVEN: 3 entries listed out of order
	late := alloc(15, 3)
	early := alloc(8, 4)
	mid := alloc(12, 3)

	// WHEN: capacity 8
	overtime.SplitDay([]*overtime.Allocation{late, early, mid}, hours(8))

	// THEN: early 4/0, mid 3/0, late 1/2
	assertDec(t, 4, early.Regular)
	assertDec(t, 3, mid.Regular)
	assertDec(t, 1, late.Regular)
	assertDec(t, 2, late.Overtime)
}

func TestSplitDay_ZeroCapacity_AllOvertime(t *testing.T) {
	a, b := alloc(9, 2), alloc(11, 1.5)
	overtime.SplitDay([]*overtime.Allocation{a, b}, decimal.Zero)
	assertDec(t, 0, a.Regular)
	assertDec(t, 2, a.Overtime)
	assertDec(t, 1.5, b.Overtime)
}

func TestSplitDay_NegativeCapacity_TreatedAsZero(t *testing.T) {
	a := alloc(9, 2)
	overtime.SplitDay([]*overtime.Allocation{a}, hours(-3))
	assertDec(t, 0, a.Regular)
	assertDec(t, 2, a.Overtime)
}

func TestSplitDay_MissingStartSortsLast(t *testing.T) {
	noStart := overtime.NewAllocation(time.Time{}, false, hours(5))
	started := alloc(9, 5)

	overtime.SplitDay([]*overtime.Allocation{noStart, started}, hours(8))

	assertDec(t, 5, started.Regular)
	assertDec(t, 3, noStart.Regular)
	assertDec(t, 2, noStart.Overtime)
}

func TestSplitDay_TiesKeepInputOrder(t *testing.T) {
	first, second := alloc(9, 6), alloc(9, 6)
	overtime.SplitDay([]*overtime.Allocation{first, second}, hours(8))
	assertDec(t, 6, first.Regular)
	assertDec(t, 2, second.Regular)
}

func TestChronological_DoesNotReorderInput(t *testing.T) {
	a, b := alloc(12, 1), alloc(8, 1)
	in := []*overtime.Allocation{a, b}
	out := overtime.Chronological(in)
	assert.Same(t, b, out[0])
	assert.Same(t, a, in[0])
}

func TestSplitTiers(t *testing.T) {
	tests := []struct {
		name      string
		ot, thr   float64
		t1, t2    float64
	}{
		{"below threshold", 3, 4, 3, 0},
		{"exactly at threshold", 4, 4, 4, 0},
		{"above threshold", 6.5, 4, 4, 2.5},
		{"zero threshold", 2, 0, 0, 2},
		{"no overtime", 0, 4, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1, t2 := overtime.SplitTiers(hours(tt.ot), hours(tt.thr))
			assertDec(t, tt.t1, t1)
			assertDec(t, tt.t2, t2)
		})
	}
}

func TestSplitDayTiers_SumsMatchDayLevelSplit(t *testing.T) {
	a, b, c := alloc(6, 3), alloc(10, 4), alloc(15, 3)
	items := []*overtime.Allocation{c, a, b}
	overtime.SplitDay(items, hours(2)) // OT: a=1, b=4, c=3 → 8

	overtime.SplitDayTiers(items, hours(4))

	assertDec(t, 1, a.Tier1)
	assertDec(t, 3, b.Tier1)
	assertDec(t, 1, b.Tier2)
	assertDec(t, 0, c.Tier1)
	assertDec(t, 3, c.Tier2)

	sumT1 := a.Tier1.Add(b.Tier1).Add(c.Tier1)
	sumT2 := a.Tier2.Add(b.Tier2).Add(c.Tier2)
	wantT1, wantT2 := overtime.SplitTiers(hours(8), hours(4))
	assert.True(t, sumT1.Equal(wantT1))
	assert.True(t, sumT2.Equal(wantT2))
}

func TestApplyWeeklyThreshold(t *testing.T) {
	mon, tue, wed := alloc(9, 10), alloc(9, 10), alloc(9, 10)
	overtime.ApplyWeeklyThreshold([]*overtime.Allocation{mon, tue, wed}, hours(25))

	assertDec(t, 10, mon.Regular)
	assertDec(t, 10, tue.Regular)
	assertDec(t, 5, wed.Regular)
	assertDec(t, 5, wed.Overtime)
}
