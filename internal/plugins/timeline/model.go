// Package timeline implements the rental calendar timeline: one row per
// vehicle or product for a selected month, with each booking, inspection or
// maintenance window drawn as a positioned bar over the day columns.
package timeline

import (
	"strings"
	"time"

	"github.com/osborn-app/dashboard/internal/apperror"
	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// UsageInterval is one occupied time span of a row.
type UsageInterval struct {
	ID            string    `json:"id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	StartDriver   string    `json:"start_driver"`
	EndDriver     string    `json:"end_driver"`
	Duration      string    `json:"duration"`
	PaymentStatus string    `json:"payment_status"`
	OrderStatus   string    `json:"order_status"`
	Title         string    `json:"title"`
	Price         string    `json:"price"`
}

// CalendarRow is one tracked entity with its intervals for the visible month.
// Usage keeps backend order; it is not sorted chronologically.
type CalendarRow struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Plate       string             `json:"plate,omitempty"`
	Location    string             `json:"location"`
	Price       string             `json:"price"`
	Image       string             `json:"image"`
	Endpoint    rentalapi.Endpoint `json:"endpoint"`
	Usage       []UsageInterval    `json:"usage"`
	Placeholder bool               `json:"placeholder,omitempty"`
}

// placeholderRow returns an empty, non-interactive filler row.
func placeholderRow() CalendarRow {
	return CalendarRow{Placeholder: true, Usage: []UsageInterval{}}
}

// Filter is the tuple that selects what the timeline shows. Changing any
// field resets paging.
type Filter struct {
	Month    time.Month         `json:"month"`
	Year     int                `json:"year"`
	Endpoint rentalapi.Endpoint `json:"endpoint"`
	Type     string             `json:"type,omitempty"`
	Location string             `json:"location,omitempty"`
}

// Validate checks the filter before it reaches the backend.
func (f Filter) Validate() error {
	if f.Month < time.January || f.Month > time.December {
		return apperror.NewValidation("month must be between 1 and 12")
	}
	if f.Year < 1970 || f.Year > 9999 {
		return apperror.NewValidation("year is out of range")
	}
	if !f.Endpoint.Valid() {
		return apperror.NewValidation("unknown timeline endpoint")
	}
	return nil
}

// Query builds the backend list request for one page of this filter.
func (f Filter) Query(page, limit int) rentalapi.ListQuery {
	return rentalapi.ListQuery{
		Endpoint:   f.Endpoint,
		Page:       page,
		Limit:      limit,
		Month:      int(f.Month),
		Year:       f.Year,
		Type:       strings.TrimSpace(f.Type),
		LocationID: strings.TrimSpace(f.Location),
	}
}

// Grid builds the month grid this filter selects.
func (f Filter) Grid(loc *time.Location) (MonthGrid, error) {
	return NewMonthGrid(f.Month, f.Year, loc)
}

// Preference is the last filter a user chose, restored when the page is
// opened without explicit query parameters. Month and year are not stored;
// the timeline always opens on the current month.
type Preference struct {
	UserID    string
	Endpoint  rentalapi.Endpoint
	Type      string
	Location  string
	UpdatedAt time.Time
}
