package generic

import (
	"strings"
	"time"
)

// =============================================================================
// DATE KEYS - Calendar day identifiers used as map keys everywhere
// =============================================================================

// DateKey identifies a calendar day as "YYYY-MM-DD".
type DateKey string

// DateLayout is the layout of a DateKey.
const DateLayout = "2006-01-02"

// WeekdayKey names a weekday the way profiles and weekly overrides do
// ("MONDAY" ... "SUNDAY").
type WeekdayKey string

const (
	Monday    WeekdayKey = "MONDAY"
	Tuesday   WeekdayKey = "TUESDAY"
	Wednesday WeekdayKey = "WEDNESDAY"
	Thursday  WeekdayKey = "THURSDAY"
	Friday    WeekdayKey = "FRIDAY"
	Saturday  WeekdayKey = "SATURDAY"
	Sunday    WeekdayKey = "SUNDAY"
)

var weekdayKeys = [...]WeekdayKey{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayKeyOf converts a time.Weekday.
func WeekdayKeyOf(wd time.Weekday) WeekdayKey { return weekdayKeys[wd] }

// NormalizeWeekday accepts "monday", "Monday", "MON" style input.
// Unknown names are returned upper-cased and will simply never match.
func NormalizeWeekday(s string) WeekdayKey {
	up := strings.ToUpper(strings.TrimSpace(s))
	if len(up) >= 3 {
		for _, k := range weekdayKeys {
			if strings.HasPrefix(string(k), up) {
				return k
			}
		}
	}
	return WeekdayKey(up)
}

// =============================================================================
// TIME POINT - A calendar day (no time-of-day component)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day an instant falls on in loc.
func DayOf(t time.Time, loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return NewTimePoint(lt.Year(), lt.Month(), lt.Day())
}

// ParseDateKey parses "YYYY-MM-DD".
func ParseDateKey(k DateKey) (TimePoint, error) {
	t, err := time.Parse(DateLayout, string(k))
	if err != nil {
		return TimePoint{}, &InvalidDateError{Value: string(k), Err: err}
	}
	return TimePoint{Time: t}, nil
}

// ParseDay accepts a bare date or an RFC 3339 instant. Instants are mapped to
// their calendar day in loc.
func ParseDay(s string, loc *time.Location) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(DateLayout) {
		return ParseDateKey(DateKey(s))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return TimePoint{}, &InvalidDateError{Value: s, Err: err}
	}
	return DayOf(t, loc), nil
}

func (tp TimePoint) Key() DateKey            { return DateKey(tp.Time.Format(DateLayout)) }
func (tp TimePoint) String() string          { return tp.Time.Format(DateLayout) }
func (tp TimePoint) Weekday() time.Weekday   { return tp.Time.Weekday() }
func (tp TimePoint) WeekdayKey() WeekdayKey  { return WeekdayKeyOf(tp.Weekday()) }
func (tp TimePoint) IsZero() bool            { return tp.Time.IsZero() }
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// WeekStart returns the Monday of the ISO week containing tp.
func (tp TimePoint) WeekStart() TimePoint {
	offset := (int(tp.Weekday()) + 6) % 7
	return tp.AddDays(-offset)
}
