package rentalapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Endpoint selects which backend entity family a list request targets.
type Endpoint string

// Endpoint constants. The string value is the backend path segment.
const (
	EndpointFleets      Endpoint = "fleets"
	EndpointProducts    Endpoint = "products"
	EndpointInspections Endpoint = "inspections"
	EndpointMaintenance Endpoint = "maintenance"
)

// Valid reports whether e is one of the known endpoints.
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointFleets, EndpointProducts, EndpointInspections, EndpointMaintenance:
		return true
	}
	return false
}

// Endpoints lists all known endpoints in display order.
func Endpoints() []Endpoint {
	return []Endpoint{EndpointFleets, EndpointProducts, EndpointInspections, EndpointMaintenance}
}

// --- Tolerant scalar types ---
//
// The backend schema is not under our control. These types never fail to
// decode: an unexpected shape leaves the zero value, which the timeline
// normalizer treats as "absent".

// ID is a record identifier that the backend sends either as a number or a string.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*id = ""
			return nil
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as a string.
func (id ID) String() string { return string(id) }

// zonedLayouts carry their own offset; wallClockLayouts are local times of
// the rental business and only become instants once a location is known.
var (
	zonedLayouts     = []string{time.RFC3339Nano}
	wallClockLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Time is a point in time that decodes from any of the backend's date
// formats. Values without a zone are wall-clock readings; use In to place
// them in the business location.
type Time struct {
	time.Time

	// wallClock marks a zone-less value. Time then holds the reading in UTC.
	wallClock bool
}

// UnmarshalJSON accepts RFC 3339, the zone-less layouts, null, and empty
// strings. Unparseable values decode as absent.
func (t *Time) UnmarshalJSON(data []byte) error {
	*t = Time{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range zonedLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	for _, layout := range wallClockLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.wallClock = parsed, true
			return nil
		}
	}
	return nil
}

// WallClock reports whether the value was sent without a zone.
func (t Time) WallClock() bool { return t.wallClock }

// In returns the instant in loc. A zone-less value keeps its wall-clock
// reading, so "2024-03-05 10:00" is 10:00 in loc.
func (t Time) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if !t.wallClock || t.IsZero() {
		return t.Time.In(loc)
	}
	y, m, d := t.Time.Date()
	hh, mm, ss := t.Time.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Time.Nanosecond(), loc)
}

// MarshalJSON writes RFC 3339 or null for the zero value.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Or returns the time in loc, or fallback when the value is absent.
func (t Time) Or(fallback time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.In(loc)
}

// Amount is a money value that the backend sends as a number or numeric string.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	*a = Amount{Value: d, Valid: true}
	return nil
}

// List is a JSON array that decodes to empty when the backend sends null, an
// object, or any other non-array shape. Elements that fail to decode are dropped.
type List[T any] []T

// UnmarshalJSON decodes an array element by element.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// --- Nested records ---

// Person is any named party the backend embeds (customer, driver, inspector).
type Person struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// RequestLog is one status transition of a start/end handover request.
type RequestLog struct {
	Status    string `json:"status"`
	CreatedAt Time   `json:"created_at"`
}

// HandoverRequest is the workflow that delivers (start) or collects (end) a
// rented unit. Its logs carry the actual handover timestamps.
type HandoverRequest struct {
	ID     ID               `json:"id"`
	Status string           `json:"status"`
	Driver *Person          `json:"driver"`
	Logs   List[RequestLog] `json:"logs"`
}

// RequestStatusDone marks a completed handover request and its final log entry.
const RequestStatusDone = "done"

// IsDone reports whether the request completed.
func (r *HandoverRequest) IsDone() bool {
	return r != nil && strings.EqualFold(strings.TrimSpace(r.Status), RequestStatusDone)
}

// CompletedAt returns the completion timestamp recorded in the logs: the last
// entry with status "done", or failing that the last timestamped entry.
// ok is false when the request is not done or no log carries a timestamp.
func (r *HandoverRequest) CompletedAt(loc *time.Location) (time.Time, bool) {
	if !r.IsDone() {
		return time.Time{}, false
	}
	var fallback time.Time
	for i := len(r.Logs) - 1; i >= 0; i-- {
		log := r.Logs[i]
		if log.CreatedAt.IsZero() {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(log.Status), RequestStatusDone) {
			return log.CreatedAt.In(loc), true
		}
		if fallback.IsZero() {
			fallback = log.CreatedAt.In(loc)
		}
	}
	return fallback, !fallback.IsZero()
}

// DriverName returns the driver's name or "".
func (r *HandoverRequest) DriverName() string {
	if r == nil || r.Driver == nil {
		return ""
	}
	return r.Driver.Name
}

// Location is a rental branch.
type Location struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Photo is an uploaded image reference.
type Photo struct {
	ID    ID     `json:"id"`
	Photo string `json:"photo"`
}

// Order is a rental booking of a fleet unit or product.
type Order struct {
	ID            ID               `json:"id"`
	StartDate     Time             `json:"start_date"`
	EndDate       Time             `json:"end_date"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	TotalPrice    Amount           `json:"total_price"`
	Customer      *Person          `json:"customer"`
	StartRequest  *HandoverRequest `json:"start_request"`
	EndRequest    *HandoverRequest `json:"end_request"`
}

// CustomerName returns the customer's name or "".
func (o Order) CustomerName() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Name
}

// --- Entity variants ---

// Entity is one item of a list page. The concrete type is fixed by the
// endpoint the page was requested from: *Fleet, *Product, *Inspection or
// *Maintenance.
type Entity interface {
	Endpoint() Endpoint
	EntityID() string
}

// Fleet is a rentable vehicle with its orders for the requested month.
type Fleet struct {
	ID          ID          `json:"id"`
	Name        string      `json:"name"`
	PlateNumber string      `json:"plate_number"`
	Type        string      `json:"type"`
	Price       Amount      `json:"price"`
	Location    *Location   `json:"location"`
	Image       string      `json:"image"`
	Photos      List[Photo] `json:"photos"`
	Orders      List[Order] `json:"orders"`
	Usage       List[Order] `json:"usage"`
}

func (f *Fleet) Endpoint() Endpoint { return EndpointFleets }
func (f *Fleet) EntityID() string   { return f.ID.String() }

// Bookings returns the nested orders, whichever key the backend used.
func (f *Fleet) Bookings() []Order {
	if len(f.Orders) > 0 {
		return f.Orders
	}
	return f.Usage
}

// Product is a rentable non-vehicle item (equipment, accessories).
type Product struct {
	ID       ID          `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    Amount      `json:"price"`
	Location *Location   `json:"location"`
	Image    string      `json:"image"`
	Photos   List[Photo] `json:"photos"`
	Orders   List[Order] `json:"orders"`
	Usage    List[Order] `json:"usage"`
}

func (p *Product) Endpoint() Endpoint { return EndpointProducts }
func (p *Product) EntityID() string   { return p.ID.String() }

// Bookings returns the nested orders, whichever key the backend used.
func (p *Product) Bookings() []Order {
	if len(p.Orders) > 0 {
		return p.Orders
	}
	return p.Usage
}

// Inspection is a vehicle check that keeps the unit off rent until repaired.
type Inspection struct {
	ID                   ID      `json:"id"`
	Fleet                *Fleet  `json:"fleet"`
	Inspector            *Person `json:"inspector"`
	InspectionDate       Time    `json:"inspection_date"`
	RepairCompletionDate Time    `json:"repair_completion_date"`
	Status               string  `json:"status"`
}

func (i *Inspection) Endpoint() Endpoint { return EndpointInspections }
func (i *Inspection) EntityID() string   { return i.ID.String() }

// Maintenance is a scheduled workshop job for a vehicle.
type Maintenance struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Fleet     *Fleet `json:"fleet"`
	StartDate Time   `json:"start_date"`
	EndDate   Time   `json:"end_date"`
	Status    string `json:"status"`
	Cost      Amount `json:"cost"`
}

func (m *Maintenance) Endpoint() Endpoint { return EndpointMaintenance }
func (m *Maintenance) EntityID() string   { return m.ID.String() }

// newEntity returns an empty value of the variant served by endpoint.
func newEntity(e Endpoint) Entity {
	switch e {
	case EndpointFleets:
		return &Fleet{}
	case EndpointProducts:
		return &Product{}
	case EndpointInspections:
		return &Inspection{}
	case EndpointMaintenance:
		return &Maintenance{}
	}
	return nil
}
