package clock

import "time"

// Exchange is a contracts.Clock pinned to the exchange's local timezone.
// Machine-local time never reaches the core.
type Exchange struct {
	loc *time.Location
}

// NewExchange creates a clock for the given timezone.
func NewExchange(loc *time.Location) *Exchange {
	return &Exchange{loc: loc}
}

// Now returns the current time in the exchange timezone.
func (c *Exchange) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the current date at midnight in the exchange timezone.
func (c *Exchange) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}

// Fixed is a clock frozen at a single instant, for replays and tests.
type Fixed struct {
	T time.Time
}

// Now returns the frozen instant.
func (c Fixed) Now() time.Time {
	return c.T
}

// Today returns the frozen instant's date at midnight in its location.
func (c Fixed) Today() time.Time {
	return time.Date(c.T.Year(), c.T.Month(), c.T.Day(), 0, 0, 0, 0, c.T.Location())
}
