package core

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestNormalizer_CalendarDateInputs(t *testing.T) {
	zones := []string{"UTC", "America/Sao_Paulo", "Asia/Tokyo", "Pacific/Kiritimati", "Pacific/Pago_Pago"}
	want := CalendarDate{Year: 2025, Month: time.December, Day: 11}

	for _, zone := range zones {
		t.Run(zone, func(t *testing.T) {
			loc := mustLoad(t, zone)
			n := NewNormalizer(loc)

			inputs := map[string]any{
				"date string":     "2025-12-11",
				"printed date":    "11/12/2025",
				"utc midnight":    time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC),
				"calendar date":   want,
				"local midnight":  time.Date(2025, 12, 11, 0, 0, 0, 0, loc),
				"pointer to time": TimePtr(time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC)),
			}
			for name, in := range inputs {
				got, ok := n.Normalize(in)
				if !ok {
					t.Fatalf("%s: not ok", name)
				}
				if got.Location() != loc {
					t.Errorf("%s: location = %v, want %v", name, got.Location(), loc)
				}
				if DateOf(got) != want {
					t.Errorf("%s: date = %v, want %v", name, DateOf(got), want)
				}
				if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
					t.Errorf("%s: expected local midnight, got %v", name, got)
				}
			}
		})
	}
}

func TestNormalizer_StringAndTimeAgree(t *testing.T) {
	for _, zone := range []string{"UTC", "America/Sao_Paulo", "Asia/Tokyo"} {
		loc := mustLoad(t, zone)
		n := NewNormalizer(loc)
		a, _ := n.Normalize("2025-12-11")
		b, _ := n.Normalize(time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC))
		if !a.Equal(b) {
			t.Errorf("%s: string %v and utc date %v disagree", zone, a, b)
		}
	}
}

func TestNormalizer_ForeignMidnightKeepsItsDate(t *testing.T) {
	n := NewNormalizer(mustLoad(t, "America/Sao_Paulo"))
	tokyo := mustLoad(t, "Asia/Tokyo")

	// 2025-12-11 00:00 in Tokyo is still Dec 10 in UTC.
	got, ok := n.Normalize(time.Date(2025, 12, 11, 0, 0, 0, 0, tokyo))
	if !ok {
		t.Fatal("expected ok")
	}
	if want := (CalendarDate{Year: 2025, Month: time.December, Day: 11}); DateOf(got) != want {
		t.Errorf("date = %v, want %v", DateOf(got), want)
	}
	if h, m, _ := got.Clock(); h != 0 || m != 0 {
		t.Errorf("expected local midnight, got %v", got)
	}
}

func TestNormalizer_TimestampPreserved(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")
	n := NewNormalizer(loc)

	got, ok := n.Normalize("2025-12-11T15:30:00Z")
	if !ok {
		t.Fatal("expected ok")
	}
	want := time.Date(2025, 12, 11, 15, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Normalize = %v, want instant %v", got, want)
	}

	in := time.Date(2025, 12, 11, 22, 15, 0, 0, time.UTC)
	got, _ = n.Normalize(in)
	if !got.Equal(in) {
		t.Errorf("time with clock should keep its instant, got %v", got)
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	inputs := []any{
		"2024-02-29",
		"2025-12-11T15:30:00Z",
		"2025-01-01T03:00:00Z",
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC),
	}
	for _, zone := range []string{"UTC", "America/Sao_Paulo", "Asia/Tokyo", "Europe/Rome"} {
		n := NewNormalizer(mustLoad(t, zone))
		for _, in := range inputs {
			once, ok := n.Normalize(in)
			if !ok {
				t.Fatalf("%s: %v not ok", zone, in)
			}
			twice, ok := n.Normalize(once)
			if !ok || !twice.Equal(once) {
				t.Errorf("%s: Normalize(Normalize(%v)) = %v, want %v", zone, in, twice, once)
			}
		}
	}
}

func TestNormalizer_Rejects(t *testing.T) {
	n := NewNormalizer(time.UTC)
	var nilTime *time.Time
	var nilString *string
	for _, in := range []any{nil, "", "not a date", "2025-13-40", "31/02/2025", 42, nilTime, nilString, time.Time{}} {
		if _, ok := n.Normalize(in); ok {
			t.Errorf("Normalize(%#v) should not be ok", in)
		}
	}
}

func TestNormalizer_DayBounds(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")
	n := NewNormalizer(loc)
	// 02:00 UTC is still the previous evening in Sao Paulo.
	now := time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)

	start := n.StartOfDay(now)
	if got := DateOf(start); got != (CalendarDate{2024, time.March, 10}) {
		t.Errorf("StartOfDay date = %v", got)
	}
	end := n.EndOfDay(now)
	if end.Sub(start) != 24*time.Hour-time.Millisecond {
		t.Errorf("EndOfDay - StartOfDay = %v", end.Sub(start))
	}
	if !n.Today(now).Equal(start) {
		t.Errorf("Today = %v, want %v", n.Today(now), start)
	}
}

func TestClampDay(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		day   int
		want  int
	}{
		{2024, time.February, 31, 29},
		{2023, time.February, 31, 28},
		{2024, time.April, 31, 30},
		{2024, time.January, 31, 31},
		{2024, time.June, 15, 15},
	}
	for _, tt := range tests {
		if got := ClampDay(tt.year, tt.month, tt.day); got != tt.want {
			t.Errorf("ClampDay(%d, %v, %d) = %d, want %d", tt.year, tt.month, tt.day, got, tt.want)
		}
	}
}

func TestMonthOffset(t *testing.T) {
	tests := []struct {
		year      int
		month     time.Month
		n         int
		wantYear  int
		wantMonth time.Month
	}{
		{2024, time.December, 1, 2025, time.January},
		{2024, time.January, -1, 2023, time.December},
		{2024, time.March, 0, 2024, time.March},
		{2024, time.November, 14, 2026, time.January},
	}
	for _, tt := range tests {
		y, m := MonthOffset(tt.year, tt.month, tt.n)
		if y != tt.wantYear || m != tt.wantMonth {
			t.Errorf("MonthOffset(%d, %v, %d) = %d %v, want %d %v", tt.year, tt.month, tt.n, y, m, tt.wantYear, tt.wantMonth)
		}
	}
}

func TestCalendarDate(t *testing.T) {
	d := CalendarDate{2024, time.February, 28}
	if got := d.AddDays(1); got != (CalendarDate{2024, time.February, 29}) {
		t.Errorf("AddDays = %v", got)
	}
	if got := d.String(); got != "2024-02-28" {
		t.Errorf("String = %q", got)
	}
	if d.Weekday() != time.Wednesday {
		t.Errorf("Weekday = %v", d.Weekday())
	}
	if !d.Before(d.AddDays(1)) || d.AddDays(1).Before(d) {
		t.Error("Before ordering wrong")
	}
	if _, err := ParseCalendarDate("2024-02-30"); err == nil {
		t.Error("expected error for Feb 30")
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.December, time.UTC)
	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthRange = %v, %v", start, end)
	}
}
