package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
)

func TestNormalizeWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want generic.WeekdayKey
	}{
		{"MONDAY", generic.Monday},
		{"monday", generic.Monday},
		{" Tue ", generic.Tuesday},
		{"sun", generic.Sunday},
		{"SATURDAY", generic.Saturday},
		{"mo", "MO"},
		{"funday", "FUNDAY"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, generic.NormalizeWeekday(tt.in), tt.in)
	}
}

func TestTimePoint_Keys(t *testing.T) {
	d := generic.NewTimePoint(2025, time.March, 10)

	assert.Equal(t, generic.DateKey("2025-03-10"), d.Key())
	assert.Equal(t, generic.Monday, d.WeekdayKey())
	assert.Equal(t, generic.DateKey("2025-03-16"), d.AddDays(6).Key())
	assert.Equal(t, generic.Sunday, d.AddDays(6).WeekdayKey())
}

func TestTimePoint_WeekStartIsMonday(t *testing.T) {
	monday := generic.NewTimePoint(2025, time.March, 10)

	for i := 0; i < 7; i++ {
		assert.True(t, monday.AddDays(i).WeekStart().Equal(monday), "offset %d", i)
	}
	assert.True(t, monday.AddDays(7).WeekStart().Equal(monday.AddDays(7)))
}

func TestDayOf_UsesLocation(t *testing.T) {
	instant := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, generic.DateKey("2025-03-10"), generic.DayOf(instant, nil).Key())
	assert.Equal(t, generic.DateKey("2025-03-11"), generic.DayOf(instant, tokyo).Key())
}

func TestParseDay(t *testing.T) {
	d, err := generic.ParseDay("2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, generic.DateKey("2025-03-10"), d.Key())

	d, err = generic.ParseDay("2025-03-10T22:00:00-05:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, generic.DateKey("2025-03-11"), d.Key())

	_, err = generic.ParseDay("10/03/2025", time.UTC)
	var dateErr *generic.InvalidDateError
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, "10/03/2025", dateErr.Value)
	assert.ErrorIs(t, err, generic.ErrInvalidDate)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod(t *testing.T) {
	p, err := generic.ParsePeriod("2025-03-10", "2025-03-16", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 7, p.Len())
	days := p.Days()
	require.Len(t, days, 7)
	assert.Equal(t, generic.DateKey("2025-03-10"), days[0].Key())
	assert.Equal(t, generic.DateKey("2025-03-16"), days[6].Key())
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.March, 16)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.March, 17)))
	assert.Equal(t, "[2025-03-10, 2025-03-16]", p.String())

	single, err := generic.ParsePeriod("2025-03-10", "2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Len())

	_, err = generic.ParsePeriod("2025-03-16", "2025-03-10", time.UTC)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestHoursFromDuration(t *testing.T) {
	assert.True(t, generic.HoursFromDuration(90*time.Minute).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, generic.HoursFromDuration(-time.Hour).IsZero())
	assert.True(t, generic.HoursFromDuration(0).IsZero())
	assert.Equal(t, "0.25", generic.HoursFromDuration(15*time.Minute).String())
}

func TestDecimalGuards(t *testing.T) {
	_, ok := generic.DecimalFromFloat(nanValue())
	assert.False(t, ok)
	d, ok := generic.DecimalFromFloat(7.5)
	assert.True(t, ok)
	assert.Equal(t, "7.5", d.String())

	a, b := decimal.NewFromInt(3), decimal.NewFromInt(5)
	assert.True(t, generic.MinDecimal(a, b).Equal(a))
	assert.True(t, generic.MinDecimal(b, a).Equal(a))
	assert.True(t, generic.ClampZero(decimal.NewFromInt(-2)).IsZero())
	assert.True(t, generic.ClampZero(b).Equal(b))
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
