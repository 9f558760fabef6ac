package core

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// printedDateLayout is the day-first form found on receipts and bills.
const printedDateLayout = "02/01/2006"

// CalendarDate is a year/month/day triple with no time-of-day and no zone.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDate builds a CalendarDate without normalising out-of-range days.
func NewCalendarDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// ParseCalendarDate parses a strict YYYY-MM-DD string.
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parse calendar date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// In returns midnight of the date in loc.
func (d CalendarDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Weekday is computed on the proleptic calendar, independent of any zone.
func (d CalendarDate) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// AddDays shifts the date by n days.
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns day, or the last day of the month when day overflows it.
func ClampDay(year int, month time.Month, day int) int {
	if last := DaysIn(year, month); day > last {
		return last
	}
	return day
}

// MonthOffset returns the year and month n months away from year/month.
func MonthOffset(year int, month time.Month, n int) (int, time.Month) {
	idx := year*12 + int(month-1) + n
	return idx / 12, time.Month(idx%12 + 1)
}

// ClampedDate builds a CalendarDate n months away from year/month, clamping day
// to that month's length.
func ClampedDate(year int, month time.Month, n, day int) CalendarDate {
	y, m := MonthOffset(year, month, n)
	return CalendarDate{Year: y, Month: m, Day: ClampDay(y, m, day)}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Normalizer turns the loose date inputs the system receives into instants in
// a fixed location. The process zone never takes part in the conversion.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer for loc. A nil loc means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize converts v into an instant.
//
// Calendar dates (a YYYY-MM-DD string, a CalendarDate, or a time value sitting
// on midnight of its own zone) become local midnight of that date. Values that
// carry a time of day keep their instant. Anything else reports false.
func (n *Normalizer) Normalize(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case CalendarDate:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.In(n.loc), true
	case *CalendarDate:
		if x == nil {
			return time.Time{}, false
		}
		return n.Normalize(*x)
	case time.Time:
		return n.fromTime(x)
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return n.fromTime(*x)
	case string:
		return n.fromString(x)
	case *string:
		if x == nil {
			return time.Time{}, false
		}
		return n.fromString(*x)
	default:
		return time.Time{}, false
	}
}

// Date normalizes v and returns its calendar date in the normalizer's location.
func (n *Normalizer) Date(v any) (CalendarDate, bool) {
	t, ok := n.Normalize(v)
	if !ok {
		return CalendarDate{}, false
	}
	return DateOf(t.In(n.loc)), true
}

func (n *Normalizer) fromTime(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	if isMidnight(t) {
		return DateOf(t).In(n.loc), true
	}
	return t.In(n.loc), true
}

func (n *Normalizer) fromString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if len(s) == len(dateLayout) {
		layout := dateLayout
		if strings.Contains(s, "/") {
			layout = printedDateLayout
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, false
		}
		return DateOf(t).In(n.loc), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t.In(n.loc), true
		}
	}
	return time.Time{}, false
}

// Today returns local midnight of now's date.
func (n *Normalizer) Today(now time.Time) time.Time {
	return n.StartOfDay(now)
}

// StartOfDay returns 00:00:00.000 of t's date in the normalizer's location.
func (n *Normalizer) StartOfDay(t time.Time) time.Time {
	return DateOf(t.In(n.loc)).In(n.loc)
}

// EndOfDay returns 23:59:59.999 of t's date in the normalizer's location.
func (n *Normalizer) EndOfDay(t time.Time) time.Time {
	return EndOfDate(DateOf(t.In(n.loc)), n.loc)
}

// EndOfDate returns the last millisecond of d in loc.
func EndOfDate(d CalendarDate, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, int(999*time.Millisecond), loc)
}

// MonthRange returns [first day of month, first day of next month) in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	ny, nm := MonthOffset(year, month, 1)
	return start, time.Date(ny, nm, 1, 0, 0, 0, 0, loc)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
