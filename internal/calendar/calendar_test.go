package calendar

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestDateOfUsesZone(t *testing.T) {
	jerusalem := mustZone(t, "Asia/Jerusalem")
	// 2026-03-01 23:30 UTC is already March 2nd in Jerusalem.
	ts := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	if got := DateOf(ts, time.UTC); got != (Date{2026, time.March, 1}) {
		t.Errorf("utc date = %v, want 2026-03-01", got)
	}
	if got := DateOf(ts, jerusalem); got != (Date{2026, time.March, 2}) {
		t.Errorf("jerusalem date = %v, want 2026-03-02", got)
	}
}

func TestDateOfUnixFractional(t *testing.T) {
	sec := float64(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC).Unix()) + 0.75
	if got := DateOfUnix(sec, time.UTC); got.String() != "2026-01-31" {
		t.Errorf("date = %s, want 2026-01-31", got)
	}
}

func TestTimeRoundsToNanosecond(t *testing.T) {
	got := Time(1766390539.123456)
	want := time.Date(2025, 12, 22, 8, 2, 19, 123456000, time.UTC)
	if diff := got.Sub(want); diff < -time.Microsecond || diff > time.Microsecond {
		t.Errorf("Time = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
	if got := Time(10.25); !got.Equal(time.Unix(10, 250_000_000)) {
		t.Errorf("Time(10.25) = %v", got)
	}
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	tests := []struct {
		from Date
		n    int
		want string
	}{
		{Date{2026, time.January, 1}, -1, "2025-12-31"},
		{Date{2026, time.February, 28}, 1, "2026-03-01"},
		{Date{2024, time.February, 28}, 1, "2024-02-29"},
		{Date{2026, time.March, 3}, -6, "2026-02-25"},
		{Date{2026, time.March, 3}, 0, "2026-03-03"},
	}
	for _, tt := range tests {
		if got := tt.from.AddDays(tt.n).String(); got != tt.want {
			t.Errorf("%s + %d = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-16")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (Date{2026, time.October, 16}) {
		t.Errorf("date = %v", d)
	}
	if _, err := ParseDate("16/10/2026"); err == nil {
		t.Error("expected error for bad layout")
	}
}

func TestWithin(t *testing.T) {
	from := Date{2026, time.March, 1}
	to := Date{2026, time.March, 7}
	if !from.Within(from, to) || !to.Within(from, to) {
		t.Error("bounds should be inclusive")
	}
	if (Date{2026, time.February, 28}).Within(from, to) {
		t.Error("day before window should be outside")
	}
	if (Date{2026, time.March, 8}).Within(from, to) {
		t.Error("day after window should be outside")
	}
}

func TestCalendarTodayAndStart(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	fixed := time.Date(2026, 7, 4, 2, 0, 0, 0, time.UTC) // 22:00 on July 3rd in New York
	c := New(ny).WithClock(func() time.Time { return fixed })

	if got := c.Today().String(); got != "2026-07-03" {
		t.Errorf("today = %s, want 2026-07-03", got)
	}
	start := c.StartOfToday()
	if want := time.Date(2026, 7, 3, 0, 0, 0, 0, ny); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if c.Now().Location() != ny {
		t.Errorf("now location = %v, want %v", c.Now().Location(), ny)
	}

	justBefore := float64(start.Unix()) - 1
	if c.IsToday(justBefore) {
		t.Error("instant before start of today classified as today")
	}
	if !c.IsToday(float64(start.Unix())) {
		t.Error("start of today not classified as today")
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if c.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", c.Location())
	}
	if _, err := Load("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
