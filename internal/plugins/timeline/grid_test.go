package timeline

import (
	"testing"
	"time"
)

func mustGrid(t *testing.T, month time.Month, year int) MonthGrid {
	t.Helper()
	g, err := NewMonthGrid(month, year, time.UTC)
	if err != nil {
		t.Fatalf("NewMonthGrid(%v, %d): %v", month, year, err)
	}
	return g
}

func TestMonthGrid_Lengths(t *testing.T) {
	tests := []struct {
		month time.Month
		year  int
		want  int
	}{
		{time.February, 2023, 28},
		{time.February, 2024, 29},
		{time.February, 2000, 29},
		{time.February, 2100, 28},
		{time.April, 2024, 30},
		{time.January, 2024, 31},
		{time.December, 2024, 31},
	}
	for _, tt := range tests {
		g := mustGrid(t, tt.month, tt.year)
		if g.Len() != tt.want {
			t.Errorf("%v %d: expected %d days, got %d", tt.month, tt.year, tt.want, g.Len())
		}
		days := g.Days()
		if len(days) != tt.want {
			t.Fatalf("%v %d: Days() returned %d entries", tt.month, tt.year, len(days))
		}
		for i := 1; i < len(days); i++ {
			if got := days[i-1].AddDate(0, 0, 1); !got.Equal(days[i]) {
				t.Errorf("%v %d: day %d is %v, expected %v", tt.month, tt.year, i, days[i], got)
			}
		}
	}
}

func TestMonthGrid_InvalidMonth(t *testing.T) {
	for _, m := range []time.Month{0, 13} {
		if _, err := NewMonthGrid(m, 2024, nil); err == nil {
			t.Errorf("expected error for month %d", m)
		}
	}
}

func TestMonthGrid_DayOffset(t *testing.T) {
	g := mustGrid(t, time.March, 2024)

	if got := g.DayOffset(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("first day: expected 0, got %d", got)
	}
	if got := g.DayOffset(time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)); got != 14 {
		t.Errorf("mid month: expected 14, got %d", got)
	}
	if got := g.DayOffset(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)); got != 30 {
		t.Errorf("last day: expected 30, got %d", got)
	}
	if got := g.DayOffset(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("previous month: expected -1, got %d", got)
	}
	if got := g.DayOffset(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("next month: expected -1, got %d", got)
	}
	if got := g.DayOffset(time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("same month other year: expected -1, got %d", got)
	}
}

func TestMonthGrid_DayOffsetUsesGridLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	g, err := NewMonthGrid(time.March, 2024, jakarta)
	if err != nil {
		t.Fatal(err)
	}
	// 2024-02-29 20:00 UTC is already March 1st in Jakarta.
	if got := g.DayOffset(time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := g.HourOfDay(time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)); got != 3 {
		t.Errorf("expected 3 hours into the local day, got %v", got)
	}
}

func TestMonthGrid_Navigation(t *testing.T) {
	g := mustGrid(t, time.January, 2024)

	prev := g.Prev()
	if prev.Month() != time.December || prev.Year() != 2023 {
		t.Errorf("expected December 2023, got %s", prev.Title())
	}
	next := mustGrid(t, time.December, 2024).Next()
	if next.Month() != time.January || next.Year() != 2025 {
		t.Errorf("expected January 2025, got %s", next.Title())
	}
	if g.Title() != "January 2024" {
		t.Errorf("unexpected title %q", g.Title())
	}
	if !g.End().Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end %v", g.End())
	}
}

func TestMonthGrid_TodayOffset(t *testing.T) {
	g := mustGrid(t, time.March, 2024)
	if got := g.TodayOffset(time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
	if got := g.TodayOffset(time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
