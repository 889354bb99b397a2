package overtime_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testDay = "2025-03-10" // a Monday

func hours(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func assertDec(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(hours(want)), append([]interface{}{"want %v, got %v", want, got.String()}, msgAndArgs...)...)
}

// workEntry builds a REGULAR entry on testDay between two HH:MM times.
func workEntry(id, user, from, to string) *overtime.TimeEntry {
	return &overtime.TimeEntry{
		ID:     id,
		UserID: user,
		TimeInterval: &overtime.TimeInterval{
			Start: testDay + "T" + from + ":00Z",
			End:   testDay + "T" + to + ":00Z",
		},
	}
}

func withRate(e *overtime.TimeEntry, rate float64) *overtime.TimeEntry {
	e.HourlyRate = overtime.NewRate(rate)
	return e
}

func withType(e *overtime.TimeEntry, t overtime.EntryType) *overtime.TimeEntry {
	e.Type = t
	return e
}

func emptyRef() *overtime.ReferenceData {
	return &overtime.ReferenceData{CalcParams: overtime.DefaultCalcParams()}
}

func analyzeOne(t *testing.T, entries []*overtime.TimeEntry, ref *overtime.ReferenceData) overtime.UserAnalysisResult {
	t.Helper()
	results, err := overtime.Analyze(entries, ref, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func dayOf(t *testing.T, r overtime.UserAnalysisResult, key string) *overtime.DayRecord {
	t.Helper()
	d, ok := r.Days[generic.DateKey(key)]
	require.True(t, ok, "missing day %s", key)
	return d
}
