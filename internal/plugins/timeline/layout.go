package timeline

import (
	"math"
	"time"

	"github.com/osborn-app/dashboard/internal/sanitize"
)

// ClippedLeft is the left offset of a bar that continues from before the
// visible month. The bar pokes slightly past the first column edge.
const ClippedLeft = -8.0

// MinLabelWidth is the bar width below which the label is abbreviated.
const MinLabelWidth = 96.0

// barInset is the vertical gap between a bar and its row edges.
const barInset = 6.0

// approxCharWidth is the average pixel width of one label character.
const approxCharWidth = 7.0

// LayoutOptions holds the fixed geometry of the grid.
type LayoutOptions struct {
	ColumnWidth float64
	RowHeight   float64
}

// DefaultLayoutOptions is 64px day columns and 40px rows.
var DefaultLayoutOptions = LayoutOptions{ColumnWidth: 64, RowHeight: 40}

// Span is the pixel geometry of one bar, relative to its row.
type Span struct {
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	Top          float64 `json:"top"`
	Height       float64 `json:"height"`
	ClippedStart bool    `json:"clipped_start"`
	ClippedEnd   bool    `json:"clipped_end"`
}

// Right is the pixel x coordinate of the bar's right edge.
func (s Span) Right() float64 { return s.Left + s.Width }

// Layout maps [start, end] onto the grid. Positioning keeps sub-day
// precision. ok is false when the interval does not touch the month.
func Layout(g MonthGrid, start, end time.Time, opts LayoutOptions) (Span, bool) {
	if end.Before(start) {
		end = start
	}
	cw := opts.ColumnWidth
	px := func(d time.Duration) float64 { return d.Hours() / 24 * cw }

	startOff := g.DayOffset(start)
	endOff := g.DayOffset(end)

	span := Span{
		Top:    barInset,
		Height: math.Max(opts.RowHeight-2*barInset, 0),
	}

	switch {
	case startOff >= 0 && endOff >= 0:
		span.Left = float64(startOff)*cw + g.HourOfDay(start)/24*cw
		span.Width = px(end.Sub(start))
	case startOff >= 0:
		span.Left = float64(startOff)*cw + g.HourOfDay(start)/24*cw
		span.Width = px(g.End().Sub(start))
		span.ClippedEnd = true
	case endOff >= 0 && end.After(g.Start()):
		// Ending exactly at the first midnight does not touch the month.
		span.Left = ClippedLeft
		span.Width = px(end.Sub(g.Start()))
		span.ClippedStart = true
	case start.Before(g.Start()) && !end.Before(g.End()):
		// Covers the whole month.
		span.Left = ClippedLeft
		span.Width = px(g.End().Sub(g.Start()))
		span.ClippedStart = true
		span.ClippedEnd = true
	default:
		return Span{}, false
	}
	return span, true
}

// Bar is a laid-out interval ready to draw.
type Bar struct {
	Interval UsageInterval `json:"interval"`
	Span     Span          `json:"span"`
}

// Label returns the bar title, abbreviated when the bar is narrower than
// MinLabelWidth.
func (b Bar) Label() string {
	if b.Span.Width >= MinLabelWidth {
		return b.Interval.Title
	}
	return sanitize.Truncate(b.Interval.Title, int(b.Span.Width/approxCharWidth))
}

// Abbreviated reports whether Label shortens the title.
func (b Bar) Abbreviated() bool {
	return b.Label() != b.Interval.Title
}

// LayoutRow lays out every interval of row that touches the month, keeping
// source order.
func LayoutRow(g MonthGrid, row CalendarRow, opts LayoutOptions) []Bar {
	bars := make([]Bar, 0, len(row.Usage))
	for _, iv := range row.Usage {
		span, ok := Layout(g, iv.Start, iv.End, opts)
		if !ok {
			continue
		}
		bars = append(bars, Bar{Interval: iv, Span: span})
	}
	return bars
}
