package overtime_test

import (
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

func TestAnalyze_TimeZoneDecidesDay(t *testing.T) {
	// GIVEN: a shift starting 20:00 UTC, which is 05:00 the next day in Tokyo
	entry := &overtime.TimeEntry{
		ID:     "night",
		UserID: "u1",
		TimeInterval: &overtime.TimeInterval{
			Start: "2025-03-10T20:00:00Z",
			End:   "2025-03-11T04:00:00Z",
		},
	}

	// WHEN: analyzed in UTC and in Asia/Tokyo
	utc := analyzeOne(t, []*overtime.TimeEntry{entry}, emptyRef())
	ref := emptyRef()
	ref.Config.TimeZone = "Asia/Tokyo"
	tokyo := analyzeOne(t, []*overtime.TimeEntry{entry}, ref)

	// THEN: the entry lands on the start day in each zone
	dayOf(t, utc, "2025-03-10")
	dayOf(t, tokyo, "2025-03-11")
	assert.NotContains(t, tokyo.Days, generic.DateKey("2025-03-10"))
	assertDec(t, 8, tokyo.Totals.Regular)
}

func TestAnalyze_UnknownTimeZoneFallsBackToUTC(t *testing.T) {
	ref := emptyRef()
	ref.Config.TimeZone = "Mars/Olympus_Mons"
	r := analyzeOne(t, []*overtime.TimeEntry{workEntry("e1", "u1", "09:00", "17:00")}, ref)

	dayOf(t, r, testDay)
	assertDec(t, 8, r.Totals.Regular)
}
