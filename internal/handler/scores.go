package handler

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/scoreboard"
	"github.com/dukerupert/pawboard/internal/store"
)

// ScoreRow is one scoreboard line. Points mirrors TotalPoints for older
// clients.
type ScoreRow struct {
	UserID       string         `json:"userId"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Points       int            `json:"points"`
	TotalPoints  int            `json:"totalPoints"`
	WeeklyPoints int            `json:"weeklyPoints"`
	Streak       int            `json:"streak"`
	RawCounts    map[string]int `json:"rawCounts"`
}

// Scores is embedded in every response that carries the scoreboard.
type Scores struct {
	Scoreboard        []ScoreRow `json:"scoreboard"`
	FamilyTotal       int        `json:"familyTotal"`
	FamilyWeeklyTotal int        `json:"familyWeeklyTotal"`
}

func newScores(res scoreboard.Result, users []model.User) Scores {
	emails := make(map[string]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	rows := make([]ScoreRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		rows = append(rows, ScoreRow{
			UserID:       r.UserID,
			Username:     r.Username,
			Email:        emails[r.UserID],
			Points:       r.TotalPoints,
			TotalPoints:  r.TotalPoints,
			WeeklyPoints: r.WeeklyPoints,
			Streak:       r.Streak,
			RawCounts:    r.RawCounts,
		})
	}
	return Scores{
		Scoreboard:        rows,
		FamilyTotal:       res.FamilyTotal,
		FamilyWeeklyTotal: res.FamilyWeeklyTotal,
	}
}

// scorer computes a household scoreboard from a fresh snapshot.
type scorer struct {
	store   store.Store
	cal     *calendar.Calendar
	metrics *metrics.Metrics
}

func (s scorer) compute(snap *store.Snapshot, householdID string) Scores {
	start := time.Now()
	res := scoreboard.Compute(snap.Events, snap.Users, householdID, s.cal.Now())
	s.metrics.ObserveScoreboard(time.Since(start))
	return newScores(res, snap.Users)
}

func (s scorer) scores(householdID string) (Scores, error) {
	snap, err := s.store.Snapshot(householdID)
	if err != nil {
		return Scores{}, fmt.Errorf("read snapshot: %w", err)
	}
	return s.compute(snap, householdID), nil
}
