package factory_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

const payloadJSON = `{
	"entries": [
		{"id": "e1", "userId": "u1", "userName": "Ada", "hourlyRate": 50,
		 "timeInterval": {"start": "2025-03-10T09:00:00Z", "end": "2025-03-10T19:00:00Z"}}
	],
	"dateRange": {"start": "2025-03-10", "end": "2025-03-11"},
	"store": {
		"users": [{"id": "u1", "name": "Ada"}],
		"profiles": [["u1", {"workCapacityHours": 7, "workingDays": ["MONDAY", "TUESDAY"]}], ["broken"], 5],
		"holidays": [["u1", [["2025-03-11", {"name": "Founders Day"}]]]],
		"timeOff": {"u1": [["2025-03-10", {"isFullDay": false, "hours": 2}]]},
		"overrides": {"u1": {"mode": "global", "multiplier": 2}},
		"config": {"useProfileCapacity": true, "applyHolidays": true, "applyTimeOff": true},
		"calcParams": {"dailyThreshold": 8, "overtimeMultiplier": "NaN"}
	}
}`

func TestParsePayload_RebuildsMaps(t *testing.T) {
	// WHEN: the association-list payload is parsed
	p, err := factory.ParsePayload([]byte(payloadJSON), overtime.DefaultCalcParams())
	require.NoError(t, err)

	// THEN: maps are keyed by user and date, malformed pairs are skipped
	require.Len(t, p.Entries, 1)
	assert.Equal(t, "2025-03-10", p.DateRange.Start)

	ref := p.Reference
	require.Contains(t, ref.Profiles, "u1")
	assert.Len(t, ref.Profiles, 1)
	assert.Equal(t, "Founders Day", ref.Holidays["u1"]["2025-03-11"].Name)
	v, ok := ref.TimeOff["u1"]["2025-03-10"].Hours.Get()
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, overtime.ModeGlobal, ref.Overrides["u1"].Mode)
	assert.True(t, ref.Config.ApplyHolidays)

	// AND: the NaN multiplier is filled from defaults
	m, ok := ref.CalcParams.OvertimeMultiplier.Get()
	require.True(t, ok)
	assert.Equal(t, 1.5, m)
}

func TestParsePayload_DrivesEngine(t *testing.T) {
	p, err := factory.ParsePayload([]byte(payloadJSON), overtime.DefaultCalcParams())
	require.NoError(t, err)

	results, err := overtime.Analyze(p.Entries, p.Reference, p.DateRange)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// capacity 7 - 2h time off = 5; 10h worked → 5 regular, 5 overtime
	totals := results[0].Totals
	assert.True(t, totals.Regular.Equal(hours(5)), totals.Regular.String())
	assert.True(t, totals.Overtime.Equal(hours(5)), totals.Overtime.String())
	assert.Equal(t, 1, totals.HolidayCount)
	assert.Equal(t, 1, totals.TimeOffCount)
}

func TestParsePayload_Invalid(t *testing.T) {
	for _, raw := range []string{`"nope"`, `[]`, `{"entries": []}`, `{"store": 7}`} {
		_, err := factory.ParsePayload([]byte(raw), overtime.DefaultCalcParams())
		assert.True(t, errors.Is(err, generic.ErrInvalidInput), raw)
	}
}

func TestParsePayload_EntriesNotAnArray(t *testing.T) {
	for _, raw := range []string{
		`{"entries": {"id": 1}, "store": {}}`,
		`{"entries": "oops", "store": {}}`,
		`{"entries": 3, "store": {}}`,
	} {
		_, err := factory.ParsePayload([]byte(raw), overtime.DefaultCalcParams())
		assert.True(t, errors.Is(err, generic.ErrInvalidInput), raw)
	}
}

func TestParsePayload_EntriesNullOrAbsent(t *testing.T) {
	for _, raw := range []string{`{"entries": null, "store": {}}`, `{"store": {}}`} {
		p, err := factory.ParsePayload([]byte(raw), overtime.DefaultCalcParams())
		require.NoError(t, err, raw)
		assert.Empty(t, p.Entries, raw)
	}
}

func TestEncodeStore_RoundTrip(t *testing.T) {
	// GIVEN: reference data decoded from the wire
	p, err := factory.ParsePayload([]byte(payloadJSON), overtime.DefaultCalcParams())
	require.NoError(t, err)

	// WHEN: it is encoded and decoded again
	data, err := json.Marshal(factory.EncodeStore(p.Reference))
	require.NoError(t, err)
	var again factory.StoreJSON
	require.NoError(t, json.Unmarshal(data, &again))
	ref := again.Reference(overtime.CalcParams{})

	// THEN: the maps survive
	assert.Equal(t, p.Reference.Holidays, ref.Holidays)
	assert.Equal(t, p.Reference.Profiles["u1"].WorkingDays, ref.Profiles["u1"].WorkingDays)
	assert.Equal(t, p.Reference.TimeOff, ref.TimeOff)
}

func TestEncodeStore_PairsAreSortedArrays(t *testing.T) {
	ref := &overtime.ReferenceData{
		Holidays: map[string]map[generic.DateKey]overtime.HolidayRecord{
			"u2": {"2025-01-02": {Name: "B"}, "2025-01-01": {Name: "A"}},
			"u1": {},
		},
	}
	data, err := json.Marshal(factory.EncodeStore(ref).Holidays)
	require.NoError(t, err)
	assert.JSONEq(t, `[["u1", []], ["u2", [["2025-01-01", {"name": "A"}], ["2025-01-02", {"name": "B"}]]]]`, string(data))
}

func TestWithDefaults(t *testing.T) {
	got := factory.WithDefaults(
		overtime.CalcParams{DailyThreshold: overtime.Num(6)},
		overtime.DefaultCalcParams(),
	)
	d, _ := got.DailyThreshold.Get()
	w, _ := got.WeeklyThreshold.Get()
	assert.Equal(t, 6.0, d)
	assert.Equal(t, 40.0, w)
}
