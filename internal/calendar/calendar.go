package calendar

import (
	"fmt"
	"time"

	"github.com/wonny/overnight/internal/contracts"
)

// maxScanDays bounds the next-trading-day search. No real exchange closes for
// two straight weeks; hitting the bound means the holiday table is broken.
const maxScanDays = 14

// Calendar answers trading-day questions for a single exchange. It is pure
// and deterministic given its holiday table; the table is configuration data
// refreshed yearly by an operator, never computed.
type Calendar struct {
	loc      *time.Location
	holidays map[string]string // "2006-01-02" -> holiday name
	years    map[int]bool      // years the table covers
}

// New builds a calendar from a loaded holiday table.
func New(table *HolidayTable) (*Calendar, error) {
	loc, err := time.LoadLocation(table.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", table.Timezone, err)
	}

	c := &Calendar{
		loc:      loc,
		holidays: make(map[string]string),
		years:    make(map[int]bool),
	}
	for year, entries := range table.Holidays {
		c.years[year] = true
		for _, e := range entries {
			c.holidays[e.Date.Format("2006-01-02")] = e.Name
		}
	}
	return c, nil
}

// Location returns the exchange timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Normalize truncates t to midnight in the exchange timezone. All core date
// comparisons operate on normalized dates.
func (c *Calendar) Normalize(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// IsTradingDay reports whether date is a weekday outside the holiday table.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	date = c.Normalize(date)
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[date.Format("2006-01-02")]
	return !holiday
}

// HolidayName returns the holiday name for date, or "" when date is not a
// configured holiday.
func (c *Calendar) HolidayName(date time.Time) string {
	return c.holidays[c.Normalize(date).Format("2006-01-02")]
}

// NextTradingDay returns the earliest trading day strictly after date. A run
// of consecutive closures (long weekend abutting a holiday) is skipped in one
// call. The scan is capped; exceeding the cap returns ErrCalendarExhausted.
func (c *Calendar) NextTradingDay(date time.Time) (time.Time, error) {
	d := c.Normalize(date)
	for i := 0; i < maxScanDays; i++ {
		d = d.AddDate(0, 0, 1)
		if c.IsTradingDay(d) {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day within %d days after %s: %w",
		maxScanDays, c.Normalize(date).Format("2006-01-02"), contracts.ErrCalendarExhausted)
}

// CoversYear reports whether the holiday table has entries for year. The
// orchestrator refuses to run against a year the table does not cover, so an
// unrefreshed table fails loudly instead of silently treating holidays as
// trading days.
func (c *Calendar) CoversYear(year int) bool {
	return c.years[year]
}
