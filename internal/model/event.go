package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
)

// ErrInvalidEvent is returned by Event.Validate for records the scoreboard
// cannot accept.
var ErrInvalidEvent = errors.New("invalid event")

const (
	EventFeedMorning   = "feed_morning"
	EventFeedEvening   = "feed_evening"
	EventWalk          = "walk"
	EventWalkMorning   = "walk_morning"
	EventWalkAfternoon = "walk_afternoon"
	EventWalkEvening   = "walk_evening"
	EventPee           = "pee"
	EventPoop          = "poop"
	EventReward        = "reward"
	EventAccident      = "accident"
)

// Event is a single logged care action. Events are immutable once stored.
type Event struct {
	ID          string  `json:"id"`
	HouseholdID string  `json:"householdId"`
	UserID      string  `json:"userId"`
	Type        string  `json:"type"`
	Timestamp   float64 `json:"timestamp"`
}

// Time returns the event instant. The location is UTC; callers partition
// it into days through the calendar package.
func (e Event) Time() time.Time {
	return calendar.Time(e.Timestamp)
}

// IsWalk reports whether an event type is any walk variant.
func IsWalk(eventType string) bool {
	return strings.HasPrefix(eventType, EventWalk)
}

func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case e.HouseholdID == "":
		return fmt.Errorf("%w: event %s: missing householdId", ErrInvalidEvent, e.ID)
	case e.UserID == "":
		return fmt.Errorf("%w: event %s: missing userId", ErrInvalidEvent, e.ID)
	case strings.TrimSpace(e.Type) == "":
		return fmt.Errorf("%w: event %s: missing type", ErrInvalidEvent, e.ID)
	case math.IsNaN(e.Timestamp) || math.IsInf(e.Timestamp, 0) || e.Timestamp < 0:
		return fmt.Errorf("%w: event %s: bad timestamp %v", ErrInvalidEvent, e.ID, e.Timestamp)
	}
	return nil
}

// Timestamp converts t to Unix seconds with microsecond precision.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
