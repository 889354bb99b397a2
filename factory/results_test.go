package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/overtime"
)

func hours(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func sampleResults(t *testing.T) []overtime.UserAnalysisResult {
	t.Helper()
	entries := []*overtime.TimeEntry{
		{ID: "b", UserID: "u1", TimeInterval: &overtime.TimeInterval{Start: "2025-03-11T09:00:00Z", Duration: "PT9H"}},
		{ID: "a", UserID: "u1", TimeInterval: &overtime.TimeInterval{Start: "2025-03-10T09:00:00Z", Duration: "PT4H"}},
	}
	results, err := overtime.Analyze(entries, &overtime.ReferenceData{CalcParams: overtime.DefaultCalcParams()}, nil)
	require.NoError(t, err)
	return results
}

func TestEncodeResults_DaysAsSortedPairs(t *testing.T) {
	data, err := json.Marshal(factory.EncodeResults(sampleResults(t)))
	require.NoError(t, err)

	var raw []struct {
		UserID string              `json:"userId"`
		Days   [][]json.RawMessage `json:"days"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	require.Len(t, raw[0].Days, 2)
	assert.JSONEq(t, `"2025-03-10"`, string(raw[0].Days[0][0]))
	assert.JSONEq(t, `"2025-03-11"`, string(raw[0].Days[1][0]))
}

func TestDecodeResults_RoundTrip(t *testing.T) {
	original := sampleResults(t)
	data, err := json.Marshal(factory.EncodeResults(original))
	require.NoError(t, err)

	var wire []factory.UserResultJSON
	require.NoError(t, json.Unmarshal(data, &wire))
	decoded := factory.DecodeResults(wire)

	require.Len(t, decoded, 1)
	assert.Equal(t, "u1", decoded[0].UserID)
	assert.True(t, decoded[0].Totals.Overtime.Equal(hours(1)))
	day := decoded[0].Days["2025-03-11"]
	require.NotNil(t, day)
	assert.True(t, day.Entries[0].Overtime.Equal(hours(1)))
}
