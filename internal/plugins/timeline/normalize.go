package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osborn-app/dashboard/internal/rentalapi"
	"github.com/osborn-app/dashboard/internal/sanitize"
)

// noDriver is shown when a handover has no assigned driver.
const noDriver = "-"

// Normalize converts one backend entity into a CalendarRow. It never fails:
// absent dates default to now, absent strings to "" and absent lists to
// empty. Zone-less backend dates are wall-clock times in loc. The result
// depends only on its arguments.
func Normalize(entity rentalapi.Entity, now time.Time, loc *time.Location) CalendarRow {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch e := entity.(type) {
	case *rentalapi.Fleet:
		if e == nil {
			break
		}
		row := fleetRow(e, rentalapi.EndpointFleets)
		row.Usage = ordersUsage(e.Bookings(), now, loc)
		return row

	case *rentalapi.Product:
		if e == nil {
			break
		}
		row := CalendarRow{
			ID:       e.ID.String(),
			Name:     sanitize.Text(e.Name),
			Location: locationName(e.Location),
			Price:    formatRupiah(e.Price),
			Image:    imageOf(e.Image, e.Photos),
			Endpoint: rentalapi.EndpointProducts,
		}
		row.Usage = ordersUsage(e.Bookings(), now, loc)
		return row

	case *rentalapi.Inspection:
		if e == nil {
			break
		}
		row := fleetRow(e.Fleet, rentalapi.EndpointInspections)
		row.ID = e.ID.String()
		start, end := clampInterval(e.InspectionDate.Or(now, loc), e.RepairCompletionDate.Or(now, loc), loc)
		row.Usage = []UsageInterval{{
			ID:          e.ID.String(),
			Start:       start,
			End:         end,
			StartDriver: personName(e.Inspector),
			EndDriver:   noDriver,
			Duration:    formatDuration(end.Sub(start)),
			OrderStatus: statusKey(e.Status),
			Title:       "Inspection · " + plateOrName(e.Fleet),
		}}
		return row

	case *rentalapi.Maintenance:
		if e == nil {
			break
		}
		row := fleetRow(e.Fleet, rentalapi.EndpointMaintenance)
		row.ID = e.ID.String()
		start, end := clampInterval(e.StartDate.Or(now, loc), e.EndDate.Or(now, loc), loc)
		title := sanitize.TextOr(e.Name, "Maintenance")
		if plate := plateOrName(e.Fleet); plate != noDriver {
			title += " - " + plate
		}
		row.Usage = []UsageInterval{{
			ID:          e.ID.String(),
			Start:       start,
			End:         end,
			StartDriver: noDriver,
			EndDriver:   noDriver,
			Duration:    formatDuration(end.Sub(start)),
			OrderStatus: statusKey(e.Status),
			Title:       title,
			Price:       formatRupiah(e.Cost),
		}}
		return row
	}

	var endpoint rentalapi.Endpoint
	if entity != nil {
		endpoint = entity.Endpoint()
	}
	return CalendarRow{Endpoint: endpoint, Usage: []UsageInterval{}}
}

// fleetRow fills the vehicle columns of a row. f may be nil.
func fleetRow(f *rentalapi.Fleet, endpoint rentalapi.Endpoint) CalendarRow {
	row := CalendarRow{Endpoint: endpoint, Usage: []UsageInterval{}}
	if f == nil {
		return row
	}
	row.ID = f.ID.String()
	row.Name = sanitize.Text(f.Name)
	row.Plate = sanitize.Text(f.PlateNumber)
	row.Location = locationName(f.Location)
	row.Price = formatRupiah(f.Price)
	row.Image = imageOf(f.Image, f.Photos)
	return row
}

// ordersUsage builds one interval per order, in source order.
func ordersUsage(orders []rentalapi.Order, now time.Time, loc *time.Location) []UsageInterval {
	usage := make([]UsageInterval, 0, len(orders))
	for _, o := range orders {
		usage = append(usage, orderInterval(o, now, loc))
	}
	return usage
}

// orderInterval applies the handover corrections: a completed start or end
// request replaces the nominal date with the logged completion time.
func orderInterval(o rentalapi.Order, now time.Time, loc *time.Location) UsageInterval {
	start := o.StartDate.Or(now, loc)
	end := o.EndDate.Or(now, loc)
	if t, ok := o.StartRequest.CompletedAt(loc); ok {
		start = t
	}
	if t, ok := o.EndRequest.CompletedAt(loc); ok {
		end = t
	}
	start, end = clampInterval(start, end, loc)

	return UsageInterval{
		ID:            o.ID.String(),
		Start:         start,
		End:           end,
		StartDriver:   sanitize.TextOr(o.StartRequest.DriverName(), noDriver),
		EndDriver:     sanitize.TextOr(o.EndRequest.DriverName(), noDriver),
		Duration:      formatDuration(end.Sub(start)),
		PaymentStatus: statusKey(o.PaymentStatus),
		OrderStatus:   statusKey(o.Status),
		Title:         sanitize.TextOr(o.CustomerName(), noDriver),
		Price:         formatRupiah(o.TotalPrice),
	}
}

// clampInterval converts both ends to loc and never lets end precede start.
func clampInterval(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	start, end = start.In(loc), end.In(loc)
	if end.Before(start) {
		end = start
	}
	return start, end
}

func locationName(l *rentalapi.Location) string {
	if l == nil {
		return ""
	}
	return sanitize.Text(l.Name)
}

func personName(p *rentalapi.Person) string {
	if p == nil {
		return noDriver
	}
	return sanitize.TextOr(p.Name, noDriver)
}

func plateOrName(f *rentalapi.Fleet) string {
	if f == nil {
		return noDriver
	}
	if plate := sanitize.Text(f.PlateNumber); plate != "" {
		return plate
	}
	return sanitize.TextOr(f.Name, noDriver)
}

func imageOf(image string, photos []rentalapi.Photo) string {
	if image = strings.TrimSpace(image); image != "" {
		return image
	}
	for _, p := range photos {
		if s := strings.TrimSpace(p.Photo); s != "" {
			return s
		}
	}
	return ""
}

// formatRupiah renders an amount as "Rp 1.500.000". Absent amounts are "".
func formatRupiah(a rentalapi.Amount) string {
	if !a.Valid {
		return ""
	}
	v := a.Value.Round(0)
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	return sign + "Rp " + groupThousands(v)
}

// groupThousands formats an integral decimal with "." separators.
func groupThousands(v decimal.Decimal) string {
	digits := v.StringFixed(0)
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < n; i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// formatDuration renders a span as "2 days 4 hours". Spans under an hour
// are shown in minutes.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Hour {
		return plural(int(d/time.Minute), "minute")
	}
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
