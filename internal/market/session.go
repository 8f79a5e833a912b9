// Package market classifies wall-clock time against the trading session.
package market

import "time"

// Session window for NSE/BSE equities: 09:15 to 15:30 local time,
// both ends inclusive. Exchange holidays are not consulted; a weekday
// holiday is treated as a trading day. That is a documented policy
// simplification, not a bug.
const (
	openHour    = 9
	openMinute  = 15
	closeHour   = 15
	closeMinute = 30
)

// DefaultTimezone is the exchange timezone used when none is configured.
const DefaultTimezone = "Asia/Kolkata"

// Clock answers "is the market open now" for a fixed timezone.
type Clock struct {
	loc *time.Location
}

// NewClock builds a session clock for the given IANA timezone name.
func NewClock(tz string) (*Clock, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc}, nil
}

// IsOpen reports whether the current instant falls inside the session.
func (c *Clock) IsOpen() bool {
	return c.IsOpenAt(time.Now())
}

// IsOpenAt reports whether t falls inside the session window. Pure
// function of the timestamp; t is converted into the clock's timezone
// before classification.
func (c *Clock) IsOpenAt(t time.Time) bool {
	local := t.In(c.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open := time.Date(local.Year(), local.Month(), local.Day(), openHour, openMinute, 0, 0, c.loc)
	close := time.Date(local.Year(), local.Month(), local.Day(), closeHour, closeMinute, 0, 0, c.loc)

	return !local.Before(open) && !local.After(close)
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
