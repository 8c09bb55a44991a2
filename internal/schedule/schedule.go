// Package schedule summarizes one household's day: which routine care
// tasks have been logged and how far a member is on the daily challenge.
package schedule

import (
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/model"
)

const (
	ChallengeID     = "potty_hero"
	ChallengeTitle  = "Log 3 pee/poop events today"
	ChallengeTarget = 3
)

type Flags struct {
	HasMorningFeed bool `json:"hasMorningFeed"`
	HasEveningFeed bool `json:"hasEveningFeed"`
	HasWalk        bool `json:"hasWalk"`
	HasPee         bool `json:"hasPee"`
	HasPoop        bool `json:"hasPoop"`
}

type Challenge struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Target    int    `json:"target"`
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
}

// Day is the set of a household's events on one date.
type Day struct {
	Date   calendar.Date
	Events []model.Event
}

// OnDate selects householdID's events that fall on date in cal's zone,
// preserving store order.
func OnDate(cal *calendar.Calendar, events []model.Event, householdID string, date calendar.Date) Day {
	day := Day{Date: date, Events: []model.Event{}}
	for _, e := range events {
		if e.HouseholdID != householdID {
			continue
		}
		if cal.DateOf(e.Timestamp) != date {
			continue
		}
		day.Events = append(day.Events, e)
	}
	return day
}

// Today is OnDate for the calendar's current date.
func Today(cal *calendar.Calendar, events []model.Event, householdID string) Day {
	return OnDate(cal, events, householdID, cal.Today())
}

// Flags reports which routine tasks appear on the day.
func (d Day) Flags() Flags {
	var f Flags
	for _, e := range d.Events {
		switch {
		case e.Type == model.EventFeedMorning:
			f.HasMorningFeed = true
		case e.Type == model.EventFeedEvening:
			f.HasEveningFeed = true
		case model.IsWalk(e.Type):
			f.HasWalk = true
		case e.Type == model.EventPee:
			f.HasPee = true
		case e.Type == model.EventPoop:
			f.HasPoop = true
		}
	}
	return f
}

// Challenge counts userID's potty events on the day.
func (d Day) Challenge(userID string) Challenge {
	progress := 0
	for _, e := range d.Events {
		if e.UserID != userID {
			continue
		}
		if e.Type == model.EventPee || e.Type == model.EventPoop {
			progress++
		}
	}
	return Challenge{
		ID:        ChallengeID,
		Title:     ChallengeTitle,
		Target:    ChallengeTarget,
		Progress:  progress,
		Completed: progress >= ChallengeTarget,
	}
}
