package scoreboard

import "github.com/dukerupert/pawboard/internal/model"

// PointTable maps event types to the points awarded for the first event of
// that type per user per day. Types not listed score zero.
var PointTable = map[string]int{
	model.EventFeedMorning: 1,
	model.EventFeedEvening: 1,
	model.EventWalk:        1,
	model.EventPee:         2,
	model.EventPoop:        3,
	model.EventReward:      1,
	model.EventAccident:    -2,
}

// Points returns the value of one scored event of the given type. Every
// walk variant (walk_morning, walk_evening, ...) is worth a walk.
func Points(eventType string) int {
	if model.IsWalk(eventType) {
		return PointTable[model.EventWalk]
	}
	return PointTable[eventType]
}
