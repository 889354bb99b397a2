package main

import (
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/overtime"
)

var summaryHeader = []string{
	"User", "Period", "Days", "Total", "Regular", "Overtime", "Tier 2", "Breaks",
	"Holidays", "Time off", "Amount", "OT premium", "Cost", "Profit",
}

// renderSummary draws one row per user plus a totals row.
func renderSummary(results []overtime.UserAnalysisResult) (string, error) {
	data := pterm.TableData{summaryHeader}

	var sum overtime.Totals
	days := 0
	for _, r := range results {
		t := r.Totals
		name := r.UserName
		if name == "" {
			name = r.UserID
		}
		data = append(data, summaryRow(name, period(&r), len(r.Days), t))

		days += len(r.Days)
		sum.Total = sum.Total.Add(t.Total)
		sum.Regular = sum.Regular.Add(t.Regular)
		sum.Overtime = sum.Overtime.Add(t.Overtime)
		sum.Tier2 = sum.Tier2.Add(t.Tier2)
		sum.Breaks = sum.Breaks.Add(t.Breaks)
		sum.HolidayCount += t.HolidayCount
		sum.TimeOffCount += t.TimeOffCount
		sum.Amount = sum.Amount.Add(t.Amount)
		sum.OTPremium = sum.OTPremium.Add(t.OTPremium)
		sum.Cost = sum.Cost.Add(t.Cost)
		sum.Profit = sum.Profit.Add(t.Profit)
	}
	if len(results) > 1 {
		data = append(data, summaryRow("TOTAL", "", days, sum))
	}

	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
}

func summaryRow(name, span string, days int, t overtime.Totals) []string {
	return []string{
		name,
		span,
		decimal.NewFromInt(int64(days)).String(),
		hours(t.Total),
		hours(t.Regular),
		hours(t.Overtime),
		hours(t.Tier2),
		hours(t.Breaks),
		decimal.NewFromInt(int64(t.HolidayCount)).String(),
		decimal.NewFromInt(int64(t.TimeOffCount)).String(),
		t.Amount.StringFixed(2),
		t.OTPremium.StringFixed(2),
		t.Cost.StringFixed(2),
		t.Profit.StringFixed(2),
	}
}

// period is "first..last" over the user's day records, or "-" without any.
func period(r *overtime.UserAnalysisResult) string {
	days := r.SortedDays()
	switch len(days) {
	case 0:
		return "-"
	case 1:
		return string(days[0].Date)
	default:
		return string(days[0].Date) + ".." + string(days[len(days)-1].Date)
	}
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2) + "h"
}
