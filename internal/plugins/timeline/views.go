package timeline

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/osborn-app/dashboard/internal/rentalapi"
	"github.com/osborn-app/dashboard/internal/templates/layouts"
)

// nameColumnWidth is the pixel width of the sticky entity column.
const nameColumnWidth = 224

// retryDelay is how long the retry sentinel waits before reloading a page.
const retryDelay = "3s"

// ViewData carries everything the timeline components render.
type ViewData struct {
	ViewID    string
	Filter    Filter
	Grid      MonthGrid
	State     State
	Layout    LayoutOptions
	Role      Role
	Now       time.Time
	CSRFToken string
	// Failed marks that the last fetch failed; the sentinel retries on a timer.
	Failed bool
}

// endpointLabels are the display names of the endpoint selector.
var endpointLabels = map[rentalapi.Endpoint]string{
	rentalapi.EndpointFleets:      "Fleets",
	rentalapi.EndpointProducts:    "Products",
	rentalapi.EndpointInspections: "Inspections",
	rentalapi.EndpointMaintenance: "Maintenance",
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "px"
}

func (d ViewData) viewPath(suffix string) string {
	return "/timeline/views/" + url.PathEscape(d.ViewID) + suffix
}

func (d ViewData) trackWidth() float64 {
	return float64(d.Grid.Len()) * d.Layout.ColumnWidth
}

// filterValues encodes f as query parameters.
func filterValues(f Filter) url.Values {
	v := url.Values{}
	v.Set("endpoint", string(f.Endpoint))
	v.Set("month", strconv.Itoa(int(f.Month)))
	v.Set("year", strconv.Itoa(f.Year))
	if f.Type != "" {
		v.Set("type", f.Type)
	}
	if f.Location != "" {
		v.Set("location", f.Location)
	}
	return v
}

// TimelinePage renders the full page.
func TimelinePage(d ViewData) templ.Component {
	return layouts.Base("Timeline", TimelineGrid(d))
}

// TimelineGrid renders the filter bar, header and rows. It is the swap
// target of filter changes.
func TimelineGrid(d ViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<section id="timeline" class="bg-white rounded-lg shadow-sm border"`)
		h.Attr("data-view-id", d.ViewID)
		h.Raw(`>`)

		writeToolbar(h, d)

		h.Raw(`<div class="relative overflow-auto max-h-[75vh]">`)
		writeHeader(h, d)
		h.Raw(`<div id="timeline-rows" class="relative">`)
		h.Child(ctx, TimelineRows(d, d.State.Rows))
		h.Raw(`</div>`)
		writeTodayMarker(h, d)
		h.Raw(`</div>`)

		writeTeardown(h, d)
		h.Raw(`</section>`)
		return h.Err()
	})
}

func writeToolbar(h *layouts.HTML, d ViewData) {
	h.Raw(`<div class="flex flex-wrap items-center gap-3 p-4 border-b">`)

	prev, next := d.Grid.Prev(), d.Grid.Next()
	navButton := func(label string, g MonthGrid) {
		vals, _ := json.Marshal(map[string]string{
			"month": strconv.Itoa(int(g.Month())),
			"year":  strconv.Itoa(g.Year()),
		})
		h.Raw(`<button type="button" class="px-2 py-1 rounded border hover:bg-gray-50"`)
		h.Attr("hx-post", d.viewPath("/filter"))
		h.Attr("hx-vals", string(vals))
		h.Attr("hx-include", "#timeline-filter")
		h.Attr("hx-target", "#timeline")
		h.Attr("hx-swap", "outerHTML")
		h.Attr("aria-label", g.Title())
		h.Raw(`>`)
		h.Text(label)
		h.Raw(`</button>`)
	}
	navButton("‹", prev)
	h.Raw(`<h2 class="text-lg font-semibold w-40 text-center">`)
	h.Text(d.Grid.Title())
	h.Raw(`</h2>`)
	navButton("›", next)

	h.Raw(`<form id="timeline-filter" class="flex flex-wrap items-center gap-2 ml-auto" hx-trigger="change"`)
	h.Attr("hx-post", d.viewPath("/filter"))
	h.Attr("hx-target", "#timeline")
	h.Attr("hx-swap", "outerHTML")
	h.Raw(`>`)
	h.Raw(`<input type="hidden" name="csrf_token"`)
	h.Attr("value", d.CSRFToken)
	h.Raw(`>`)

	h.Raw(`<select name="endpoint" class="border rounded px-2 py-1">`)
	for _, e := range rentalapi.Endpoints() {
		h.Raw(`<option`)
		h.Attr("value", string(e))
		if e == d.Filter.Endpoint {
			h.Raw(` selected`)
		}
		h.Raw(`>`)
		h.Text(endpointLabels[e])
		h.Raw(`</option>`)
	}
	h.Raw(`</select>`)

	h.Raw(`<select name="month" class="border rounded px-2 py-1">`)
	for m := time.January; m <= time.December; m++ {
		h.Raw(`<option`)
		h.Attr("value", strconv.Itoa(int(m)))
		if m == d.Filter.Month {
			h.Raw(` selected`)
		}
		h.Raw(`>`)
		h.Text(m.String())
		h.Raw(`</option>`)
	}
	h.Raw(`</select>`)

	h.Raw(`<input type="number" name="year" min="1970" max="9999" class="border rounded px-2 py-1 w-24"`)
	h.Attr("value", strconv.Itoa(d.Filter.Year))
	h.Raw(`>`)
	h.Raw(`<input type="text" name="type" placeholder="Type" class="border rounded px-2 py-1 w-28"`)
	h.Attr("value", d.Filter.Type)
	h.Raw(`>`)
	h.Raw(`<input type="text" name="location" placeholder="Location ID" class="border rounded px-2 py-1 w-28"`)
	h.Attr("value", d.Filter.Location)
	h.Raw(`>`)
	h.Raw(`</form>`)

	h.Raw(`<a class="px-3 py-1 rounded bg-green-600 text-white text-sm hover:bg-green-700"`)
	h.Attr("href", "/timeline/export.xlsx?"+filterValues(d.Filter).Encode())
	h.Raw(`>Export</a>`)
	h.Raw(`</div>`)
}

func writeHeader(h *layouts.HTML, d ViewData) {
	cw := d.Layout.ColumnWidth
	today := d.Grid.TodayOffset(d.Now)

	h.Raw(`<div class="sticky top-0 z-20 flex bg-white border-b">`)
	h.Rawf(`<div class="sticky left-0 z-30 bg-white border-r shrink-0 px-3 py-2 text-sm font-medium" style="width:%dpx">`, nameColumnWidth)
	h.Text(endpointLabels[d.Filter.Endpoint])
	h.Raw(`</div><div class="flex shrink-0">`)
	for i, day := range d.Grid.Days() {
		cls := "text-center text-xs py-1 border-r shrink-0"
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			cls += " bg-gray-50 text-gray-500"
		}
		if i == today {
			cls += " bg-blue-50 text-blue-700 font-semibold"
		}
		h.Raw(`<div`)
		h.Attr("class", cls)
		h.Attr("style", "width:"+px(cw))
		h.Raw(`><div>`)
		h.Text(day.Weekday().String()[:3])
		h.Raw(`</div><div>`)
		h.Text(strconv.Itoa(day.Day()))
		h.Raw(`</div></div>`)
	}
	h.Raw(`</div></div>`)
}

func writeTodayMarker(h *layouts.HTML, d ViewData) {
	off := d.Grid.TodayOffset(d.Now)
	if off < 0 {
		return
	}
	left := float64(nameColumnWidth) + float64(off)*d.Layout.ColumnWidth + d.Layout.ColumnWidth/2
	h.Raw(`<div class="absolute top-0 bottom-0 z-10 w-px bg-red-500 pointer-events-none"`)
	h.Attr("style", "left:"+px(left))
	h.Raw(` aria-hidden="true"></div>`)
}

// writeTeardown closes the server-side view when the page goes away.
func writeTeardown(h *layouts.HTML, d ViewData) {
	if d.ViewID == "" {
		return
	}
	path, _ := json.Marshal(d.viewPath(""))
	token, _ := json.Marshal(d.CSRFToken)
	h.Raw(`<script>(function(){var p=` + string(path) + `,t=` + string(token) + `;`)
	h.Raw(`addEventListener("pagehide",function(){fetch(p,{method:"DELETE",keepalive:true,headers:{"X-CSRF-Token":t}})},{once:true})})();</script>`)
}

// TimelineRows renders rows followed by the load-more sentinel. A load-more
// response replaces the previous sentinel with this fragment.
func TimelineRows(d ViewData, rows []CalendarRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		if !d.State.Loaded {
			for i := 0; i < d.State.MinRows; i++ {
				writePlaceholderRow(h, d)
			}
		} else {
			for _, row := range rows {
				if row.Placeholder {
					writePlaceholderRow(h, d)
					continue
				}
				writeRow(h, d, row)
			}
		}
		writeSentinel(h, d)
		return h.Err()
	})
}

func writeSentinel(h *layouts.HTML, d ViewData) {
	if d.ViewID == "" {
		return
	}
	var trigger string
	switch {
	case d.Failed || !d.State.Loaded:
		trigger = "load delay:" + retryDelay
	case d.State.HasMore:
		trigger = "revealed"
	default:
		return
	}
	h.Raw(`<div id="timeline-sentinel" class="flex justify-center py-3 text-sm text-gray-400"`)
	h.Attr("hx-get", d.viewPath("/rows"))
	h.Attr("hx-trigger", trigger)
	h.Attr("hx-swap", "outerHTML")
	h.Raw(`>`)
	if d.Failed {
		h.Raw(`Could not load more rows, retrying…`)
	} else {
		h.Raw(`Loading…`)
	}
	h.Raw(`</div>`)
}

func writePlaceholderRow(h *layouts.HTML, d ViewData) {
	h.Raw(`<div class="flex border-b animate-pulse" aria-hidden="true"`)
	h.Attr("style", "height:"+px(d.Layout.RowHeight))
	h.Raw(`>`)
	h.Rawf(`<div class="sticky left-0 bg-white border-r shrink-0 px-3 flex items-center" style="width:%dpx">`, nameColumnWidth)
	h.Raw(`<div class="h-3 w-32 rounded bg-gray-200"></div></div>`)
	h.Raw(`<div class="shrink-0 bg-gray-50"`)
	h.Attr("style", "width:"+px(d.trackWidth()))
	h.Raw(`></div></div>`)
}

func writeRow(h *layouts.HTML, d ViewData, row CalendarRow) {
	cw := d.Layout.ColumnWidth

	h.Raw(`<div class="flex border-b hover:bg-gray-50"`)
	h.Attr("data-row-id", row.ID)
	h.Attr("style", "height:"+px(d.Layout.RowHeight))
	h.Raw(`>`)

	h.Rawf(`<div class="sticky left-0 z-10 bg-white border-r shrink-0 px-3 flex items-center gap-2 overflow-hidden" style="width:%dpx">`, nameColumnWidth)
	if row.Image != "" {
		h.Raw(`<img class="w-7 h-7 rounded object-cover shrink-0" alt="" loading="lazy"`)
		h.URLAttr("src", row.Image)
		h.Raw(`>`)
	}
	h.Raw(`<div class="min-w-0"><div class="text-sm font-medium truncate">`)
	h.Text(row.Name)
	if row.Plate != "" {
		h.Raw(` <span class="text-gray-500">`)
		h.Text(row.Plate)
		h.Raw(`</span>`)
	}
	h.Raw(`</div><div class="text-xs text-gray-500 truncate">`)
	h.Text(strings.Join(nonEmpty(row.Location, row.Price), " · "))
	h.Raw(`</div></div></div>`)

	h.Raw(`<div class="relative shrink-0"`)
	h.Attr("style", "width:"+px(d.trackWidth()))
	h.Raw(`>`)
	for i, day := range d.Grid.Days() {
		cls := "absolute top-0 bottom-0 border-r border-gray-100"
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			cls += " bg-gray-50"
		}
		h.Raw(`<div`)
		h.Attr("class", cls)
		h.Attr("style", "left:"+px(float64(i)*cw)+";width:"+px(cw))
		h.Raw(`></div>`)
	}
	for _, bar := range LayoutRow(d.Grid, row, d.Layout) {
		writeBar(h, d, row, bar)
	}
	h.Raw(`</div></div>`)
}

func writeBar(h *layouts.HTML, d ViewData, row CalendarRow, bar Bar) {
	iv := bar.Interval
	style := StyleFor(iv.OrderStatus)
	href := DetailURL(row.Endpoint, d.Role, iv.OrderStatus, iv.ID)

	tag := "div"
	if href != "" {
		tag = "a"
	}
	cls := "absolute z-0 flex items-center px-2 rounded border border-transparent text-xs whitespace-nowrap overflow-hidden " + style.Classes()
	if bar.Span.ClippedStart {
		cls += " rounded-l-none"
	}
	if bar.Span.ClippedEnd {
		cls += " rounded-r-none"
	}

	h.Raw("<" + tag)
	if href != "" {
		h.URLAttr("href", href)
		h.Raw(` target="_blank" rel="noopener"`)
	}
	h.Attr("class", cls)
	h.Attr("style", "left:"+px(bar.Span.Left)+";width:"+px(bar.Span.Width)+
		";top:"+px(bar.Span.Top)+";height:"+px(bar.Span.Height))
	h.Attr("title", barTooltip(iv, style))
	h.Attr("data-status", style.Key)
	h.Raw(`>`)
	h.Text(bar.Label())
	h.Raw("</" + tag + ">")
}

func barTooltip(iv UsageInterval, style StatusStyle) string {
	const stamp = "02 Jan 15:04"
	lines := []string{
		iv.Title,
		iv.Start.Format(stamp) + " – " + iv.End.Format(stamp) + " (" + iv.Duration + ")",
		"Start driver: " + iv.StartDriver + " · End driver: " + iv.EndDriver,
		strings.Join(nonEmpty(style.Label, iv.PaymentStatus, iv.Price), " · "),
	}
	return strings.Join(lines, "\n")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
