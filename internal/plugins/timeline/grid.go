package timeline

import (
	"time"

	"github.com/osborn-app/dashboard/internal/apperror"
)

// MonthGrid is the day axis of one calendar month in a fixed location.
// It is a value type; all methods are pure.
type MonthGrid struct {
	month time.Month
	year  int
	loc   *time.Location
	days  int
}

// NewMonthGrid builds the grid for (month, year). A nil loc means UTC.
func NewMonthGrid(month time.Month, year int, loc *time.Location) (MonthGrid, error) {
	if month < time.January || month > time.December {
		return MonthGrid{}, apperror.NewValidation("month must be between 1 and 12")
	}
	if loc == nil {
		loc = time.UTC
	}
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return MonthGrid{month: month, year: year, loc: loc, days: last.Day()}, nil
}

// Month returns the grid's month.
func (g MonthGrid) Month() time.Month { return g.month }

// Year returns the grid's year.
func (g MonthGrid) Year() int { return g.year }

// Location returns the zone dates are bucketed in.
func (g MonthGrid) Location() *time.Location { return g.loc }

// Len returns the number of days in the month.
func (g MonthGrid) Len() int { return g.days }

// Start is local midnight of the first day.
func (g MonthGrid) Start() time.Time {
	return time.Date(g.year, g.month, 1, 0, 0, 0, 0, g.loc)
}

// End is local midnight of the first day of the next month (exclusive).
func (g MonthGrid) End() time.Time {
	return time.Date(g.year, g.month+1, 1, 0, 0, 0, 0, g.loc)
}

// Days returns local midnight of every day in the month, in order.
func (g MonthGrid) Days() []time.Time {
	out := make([]time.Time, g.days)
	for i := range out {
		out[i] = time.Date(g.year, g.month, i+1, 0, 0, 0, 0, g.loc)
	}
	return out
}

// DayOffset returns the zero-based index of t's local date in the grid, or
// -1 when t falls in another month.
func (g MonthGrid) DayOffset(t time.Time) int {
	local := t.In(g.loc)
	if local.Year() != g.year || local.Month() != g.month {
		return -1
	}
	return local.Day() - 1
}

// Contains reports whether t falls on a day of the grid.
func (g MonthGrid) Contains(t time.Time) bool {
	return g.DayOffset(t) >= 0
}

// HourOfDay returns the fractional hours elapsed since local midnight of t's day.
func (g MonthGrid) HourOfDay(t time.Time) float64 {
	local := t.In(g.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
	return local.Sub(midnight).Hours()
}

// TodayOffset returns the column of now, or -1 when now is outside the month.
func (g MonthGrid) TodayOffset(now time.Time) int {
	return g.DayOffset(now)
}

// Prev returns the grid of the previous month.
func (g MonthGrid) Prev() MonthGrid {
	first := time.Date(g.year, g.month-1, 1, 0, 0, 0, 0, g.loc)
	prev, _ := NewMonthGrid(first.Month(), first.Year(), g.loc)
	return prev
}

// Next returns the grid of the following month.
func (g MonthGrid) Next() MonthGrid {
	first := time.Date(g.year, g.month+1, 1, 0, 0, 0, 0, g.loc)
	next, _ := NewMonthGrid(first.Month(), first.Year(), g.loc)
	return next
}

// Title is the human label of the month, e.g. "March 2024".
func (g MonthGrid) Title() string {
	return g.Start().Format("January 2006")
}
