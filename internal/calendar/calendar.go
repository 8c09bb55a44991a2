package calendar

import (
	"fmt"
	"time"
)

// Calendar binds a time zone to a clock. One Calendar is built at startup
// and shared by every code path that needs to know what "today" is, so an
// event is never "today" in one response and "yesterday" in another.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Calendar for loc using the system clock.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// Load resolves an IANA zone name. An empty name means UTC.
func Load(name string) (*Calendar, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return New(loc), nil
}

// WithClock returns a copy of c reading the time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant expressed in the calendar's zone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Calendar) Today() Date {
	return DateOf(c.now(), c.loc)
}

// StartOfToday is the first instant of Today, usable as a range bound.
func (c *Calendar) StartOfToday() time.Time {
	return c.Today().Start(c.loc)
}

// DateOf partitions the Unix instant sec into a date in the calendar's zone.
func (c *Calendar) DateOf(sec float64) Date {
	return DateOfUnix(sec, c.loc)
}

// IsToday reports whether sec falls on Today.
func (c *Calendar) IsToday(sec float64) bool {
	return c.DateOf(sec) == c.Today()
}
