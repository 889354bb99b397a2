package factory

import (
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// UserResultJSON is overtime.UserAnalysisResult with days as date-sorted
// [dateKey, DayRecord] pairs.
type UserResultJSON struct {
	UserID   string                     `json:"userId"`
	UserName string                     `json:"userName"`
	Days     Pairs[*overtime.DayRecord] `json:"days"`
	Totals   overtime.Totals            `json:"totals"`
}

// EncodeResults flattens every result's days map.
func EncodeResults(results []overtime.UserAnalysisResult) []UserResultJSON {
	out := make([]UserResultJSON, 0, len(results))
	for _, r := range results {
		days := make(map[string]*overtime.DayRecord, len(r.Days))
		for k, d := range r.Days {
			days[string(k)] = d
		}
		out = append(out, UserResultJSON{
			UserID:   r.UserID,
			UserName: r.UserName,
			Days:     PairsOf(days),
			Totals:   r.Totals,
		})
	}
	return out
}

// DecodeResults rebuilds the days maps.
func DecodeResults(in []UserResultJSON) []overtime.UserAnalysisResult {
	out := make([]overtime.UserAnalysisResult, 0, len(in))
	for _, r := range in {
		days := make(map[generic.DateKey]*overtime.DayRecord, len(r.Days))
		for _, p := range r.Days {
			days[generic.DateKey(p.Key)] = p.Value
		}
		out = append(out, overtime.UserAnalysisResult{
			UserID:   r.UserID,
			UserName: r.UserName,
			Days:     days,
			Totals:   r.Totals,
		})
	}
	return out
}
