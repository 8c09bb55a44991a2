// Package scoreboard derives per-user points, weekly points and streaks
// from a household's event log.
package scoreboard

import (
	"sort"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/model"
)

// WeekDays is the length of the trailing weekly window, today included.
const WeekDays = 7

// Row is one member's line on the scoreboard.
type Row struct {
	UserID       string
	Username     string
	TotalPoints  int
	WeeklyPoints int
	Streak       int
	// RawCounts counts every event per type, duplicates included.
	RawCounts map[string]int
}

// Result is a household scoreboard: rows in rank order plus family totals.
type Result struct {
	Rows              []Row
	FamilyTotal       int
	FamilyWeeklyTotal int
}

type scoreKey struct {
	userID    string
	eventType string
	date      calendar.Date
}

type tally struct {
	row         Row
	eventsByDay map[calendar.Date][]model.Event
}

// Compute builds the scoreboard for householdID. Days are partitioned in
// now's location and "today" is the date of now. Events and users from
// other households are ignored; a household without members yields an
// empty result. Inputs are not modified.
func Compute(events []model.Event, users []model.User, householdID string, now time.Time) Result {
	loc := now.Location()
	today := calendar.DateOf(now, loc)
	weekStart := today.AddDays(-(WeekDays - 1))

	tallies := make(map[string]*tally)
	order := make([]string, 0)
	for _, u := range users {
		if u.HouseholdID != householdID {
			continue
		}
		if _, dup := tallies[u.ID]; dup {
			continue
		}
		tallies[u.ID] = &tally{
			row: Row{
				UserID:    u.ID,
				Username:  u.DisplayName(),
				RawCounts: make(map[string]int),
			},
			eventsByDay: make(map[calendar.Date][]model.Event),
		}
		order = append(order, u.ID)
	}

	scored := make(map[scoreKey]struct{})
	for _, e := range events {
		if e.HouseholdID != householdID {
			continue
		}
		t, ok := tallies[e.UserID]
		if !ok {
			continue
		}
		date := calendar.DateOfUnix(e.Timestamp, loc)

		t.row.RawCounts[e.Type]++
		t.eventsByDay[date] = append(t.eventsByDay[date], e)

		key := scoreKey{userID: e.UserID, eventType: e.Type, date: date}
		if _, seen := scored[key]; seen {
			continue
		}
		scored[key] = struct{}{}

		pts := Points(e.Type)
		t.row.TotalPoints += pts
		if date.Within(weekStart, today) {
			t.row.WeeklyPoints += pts
		}
	}

	res := Result{Rows: make([]Row, 0, len(order))}
	for _, id := range order {
		t := tallies[id]
		t.row.Streak = streak(t.eventsByDay, today)
		res.Rows = append(res.Rows, t.row)
	}

	sort.SliceStable(res.Rows, func(i, j int) bool {
		a, b := res.Rows[i], res.Rows[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})

	for _, r := range res.Rows {
		res.FamilyTotal += r.TotalPoints
		res.FamilyWeeklyTotal += r.WeeklyPoints
	}
	return res
}

// streak counts consecutive days with at least one event, walking back
// from today. No event today means no streak.
func streak(eventsByDay map[calendar.Date][]model.Event, today calendar.Date) int {
	n := 0
	for day := today; len(eventsByDay[day]) > 0; day = day.AddDays(-1) {
		n++
	}
	return n
}

// ForUser returns the row for userID, if present.
func (r Result) ForUser(userID string) (Row, bool) {
	for _, row := range r.Rows {
		if row.UserID == userID {
			return row, true
		}
	}
	return Row{}, false
}
