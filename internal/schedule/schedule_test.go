package schedule

import (
	"testing"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/model"
)

func fixedCalendar(t *testing.T, zone string, now time.Time) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.Load(zone)
	if err != nil {
		t.Skipf("zone %s unavailable: %v", zone, err)
	}
	return cal.WithClock(func() time.Time { return now })
}

func TestTodaySelectsHouseholdAndDate(t *testing.T) {
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	cal := fixedCalendar(t, "UTC", now)
	today := float64(time.Date(2026, 5, 20, 7, 0, 0, 0, time.UTC).Unix())
	yesterday := float64(time.Date(2026, 5, 19, 23, 59, 0, 0, time.UTC).Unix())

	events := []model.Event{
		{ID: "e1", HouseholdID: "h1", UserID: "u1", Type: "pee", Timestamp: today},
		{ID: "e2", HouseholdID: "h1", UserID: "u1", Type: "poop", Timestamp: yesterday},
		{ID: "e3", HouseholdID: "h2", UserID: "u9", Type: "pee", Timestamp: today},
		{ID: "e4", HouseholdID: "h1", UserID: "u2", Type: "walk_evening", Timestamp: today},
	}

	day := Today(cal, events, "h1")
	if len(day.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(day.Events))
	}
	if day.Events[0].ID != "e1" || day.Events[1].ID != "e4" {
		t.Errorf("order = %s,%s, want e1,e4", day.Events[0].ID, day.Events[1].ID)
	}

	f := day.Flags()
	if !f.HasPee || !f.HasWalk {
		t.Errorf("flags = %+v, want pee and walk", f)
	}
	if f.HasPoop || f.HasMorningFeed || f.HasEveningFeed {
		t.Errorf("flags = %+v, unexpected flag set", f)
	}
}

func TestTodayAgreesWithZone(t *testing.T) {
	// 22:30 UTC on May 19th is May 20th in Jerusalem (UTC+3 in summer).
	now := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	cal := fixedCalendar(t, "Asia/Jerusalem", now)
	ts := float64(time.Date(2026, 5, 19, 22, 30, 0, 0, time.UTC).Unix())
	events := []model.Event{{ID: "e1", HouseholdID: "h1", UserID: "u1", Type: "poop", Timestamp: ts}}

	if got := len(Today(cal, events, "h1").Events); got != 1 {
		t.Errorf("today events = %d, want 1", got)
	}
	yesterday := cal.Today().AddDays(-1)
	if got := len(OnDate(cal, events, "h1", yesterday).Events); got != 0 {
		t.Errorf("yesterday events = %d, want 0", got)
	}
}

func TestChallenge(t *testing.T) {
	ts := float64(time.Date(2026, 5, 20, 7, 0, 0, 0, time.UTC).Unix())
	day := Day{Events: []model.Event{
		{UserID: "u1", Type: "pee", Timestamp: ts},
		{UserID: "u1", Type: "poop", Timestamp: ts},
		{UserID: "u2", Type: "pee", Timestamp: ts},
		{UserID: "u1", Type: "walk", Timestamp: ts},
	}}

	c := day.Challenge("u1")
	if c.ID != ChallengeID || c.Target != 3 {
		t.Errorf("challenge = %+v", c)
	}
	if c.Progress != 2 || c.Completed {
		t.Errorf("progress = %d completed = %v, want 2 false", c.Progress, c.Completed)
	}

	day.Events = append(day.Events, model.Event{UserID: "u1", Type: "pee", Timestamp: ts})
	if c := day.Challenge("u1"); !c.Completed {
		t.Errorf("expected completed at progress %d", c.Progress)
	}
}

func TestEmptyDayHasNonNilEvents(t *testing.T) {
	cal := fixedCalendar(t, "UTC", time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))
	if day := Today(cal, nil, "h1"); day.Events == nil {
		t.Error("events should be an empty slice")
	}
}
