package overtime

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// ISO-8601 DURATIONS
// =============================================================================

var isoDurationPattern = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses the time-based subset of ISO-8601 durations used by
// time trackers ("PT8H", "PT1H30M", "P1DT2H", "PT45.5S"). Years and months are
// rejected because their length depends on the calendar. A bare number is read
// as seconds. Negative or malformed input returns ok=false.
func ParseISODuration(s string) (time.Duration, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 || !generic.IsFinite(secs) {
			return 0, false
		}
		return durationOf(secs * float64(time.Second))
	}
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total float64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += v * float64(unit)
	}
	return durationOf(total)
}

// maxDurationNanos is float64(math.MaxInt64), which rounds up to 2^63.
const maxDurationNanos = float64(math.MaxInt64)

// durationOf converts nanoseconds, rejecting values time.Duration cannot hold.
func durationOf(nanos float64) (time.Duration, bool) {
	if !generic.IsFinite(nanos) || nanos < 0 || nanos >= maxDurationNanos {
		return 0, false
	}
	return time.Duration(nanos), true
}

// =============================================================================
// ENTRY INTERVAL - Start instant and duration in hours
// =============================================================================

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// interval is the resolved timing of one entry.
type interval struct {
	start    time.Time
	hasStart bool
	end      time.Time
	hasEnd   bool
	hours    decimal.Decimal
}

// resolveInterval never fails. Without a usable start the entry has zero
// duration. Otherwise the duration string wins, then end minus start.
func resolveInterval(ti *TimeInterval) interval {
	var iv interval
	if ti == nil {
		return iv
	}
	iv.start, iv.hasStart = parseInstant(ti.Start)
	iv.end, iv.hasEnd = parseInstant(ti.End)
	iv.hours = decimal.Zero
	if !iv.hasStart {
		return iv
	}
	if d, ok := ParseISODuration(ti.Duration); ok {
		iv.hours = generic.HoursFromDuration(d)
		return iv
	}
	if iv.hasEnd && iv.end.After(iv.start) {
		iv.hours = generic.HoursFromDuration(iv.end.Sub(iv.start))
	}
	return iv
}

// day picks the calendar day an entry belongs to: its start, else its end.
func (iv interval) day(loc *time.Location) (generic.TimePoint, bool) {
	switch {
	case iv.hasStart:
		return generic.DayOf(iv.start, loc), true
	case iv.hasEnd:
		return generic.DayOf(iv.end, loc), true
	default:
		return generic.TimePoint{}, false
	}
}
