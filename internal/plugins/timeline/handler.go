package timeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/apperror"
	"github.com/osborn-app/dashboard/internal/middleware"
	"github.com/osborn-app/dashboard/internal/plugins/audit"
	"github.com/osborn-app/dashboard/internal/plugins/auth"
	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// ActivityRecorder receives timeline actions worth an audit trail. Record
// must not block the request.
type ActivityRecorder interface {
	Record(ctx context.Context, entry *audit.AuditEntry)
}

// Handler processes HTTP requests for the timeline plugin.
type Handler struct {
	svc      TimelineService
	activity ActivityRecorder
	now      func() time.Time
}

// NewHandler creates a new timeline Handler.
func NewHandler(svc TimelineService) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// WithActivity records exports and saved filters to rec.
func (h *Handler) WithActivity(rec ActivityRecorder) *Handler {
	h.activity = rec
	return h
}

// record hands an action to the recorder, if one is set.
func (h *Handler) record(ctx context.Context, id *auth.Identity, action string, f Filter, details map[string]any) {
	if h.activity == nil {
		return
	}
	h.activity.Record(ctx, &audit.AuditEntry{
		UserID:   id.UserID,
		UserName: id.Name,
		Action:   action,
		Endpoint: string(f.Endpoint),
		Period:   audit.Period(f.Year, f.Month),
		Details:  details,
	})
}

// identity returns the caller and a context that forwards their token to
// the rental backend.
func identity(c echo.Context) (*auth.Identity, context.Context, error) {
	id := auth.GetIdentity(c)
	if id == nil {
		return nil, nil, apperror.NewUnauthorized("authentication required")
	}
	return id, rentalapi.WithToken(c.Request().Context(), id.Token), nil
}

// parseFilter overlays request values onto base. Blank values keep base.
func parseFilter(get func(string) string, base Filter) (Filter, error) {
	f := base
	if v := strings.TrimSpace(get("endpoint")); v != "" {
		f.Endpoint = rentalapi.Endpoint(v)
	}
	if v := strings.TrimSpace(get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return Filter{}, apperror.NewValidation("month must be a number")
		}
		f.Month = time.Month(m)
	}
	if v := strings.TrimSpace(get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return Filter{}, apperror.NewValidation("year must be a number")
		}
		f.Year = y
	}
	// Type and location may be cleared, so presence is not required.
	if get("type") != "" || get("endpoint") != "" {
		f.Type = strings.TrimSpace(get("type"))
	}
	if get("location") != "" || get("endpoint") != "" {
		f.Location = strings.TrimSpace(get("location"))
	}
	return f, f.Validate()
}

// hasFilterParams reports whether the query names any filter field.
func hasFilterParams(c echo.Context) bool {
	for _, k := range []string{"endpoint", "month", "year", "type", "location"} {
		if c.QueryParam(k) != "" {
			return true
		}
	}
	return false
}

// isUpstreamFailure reports whether err came from the rental backend being
// unavailable, as opposed to a bad request.
func isUpstreamFailure(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusBadGateway
}

func (h *Handler) viewData(c echo.Context, id *auth.Identity, viewID string, st State, failed bool) (ViewData, error) {
	settings := h.svc.Settings()
	grid, err := st.Filter.Grid(settings.Location)
	if err != nil {
		return ViewData{}, err
	}
	return ViewData{
		ViewID:    viewID,
		Filter:    st.Filter,
		Grid:      grid,
		State:     st,
		Layout:    settings.Layout,
		Role:      Role(id.Role),
		Now:       h.now(),
		CSRFToken: middleware.GetCSRFToken(c),
		Failed:    failed,
	}, nil
}

func (h *Handler) savePreference(ctx context.Context, id *auth.Identity, f Filter) {
	if err := h.svc.SavePreference(ctx, id.UserID, f); err != nil {
		slog.Warn("saving timeline preference failed",
			slog.String("user_id", id.UserID),
			slog.Any("error", err),
		)
		return
	}
	h.record(ctx, id, audit.ActionPreferenceSaved, f, map[string]any{
		"type":     f.Type,
		"location": f.Location,
	})
}

// Show renders the timeline page and opens a view for it.
// GET /timeline
func (h *Handler) Show(c echo.Context) error {
	id, ctx, err := identity(c)
	if err != nil {
		return err
	}

	base := h.svc.DefaultFilter(ctx, id.UserID, h.now())
	f, err := parseFilter(c.QueryParam, base)
	if err != nil {
		return err
	}

	view, st, err := h.svc.OpenView(ctx, id.UserID, f)
	if view == nil {
		return err
	}
	failed := err != nil
	if failed {
		if !isUpstreamFailure(err) {
			h.svc.CloseView(view.ID, id.UserID)
			return err
		}
		slog.Warn("timeline first page failed", slog.Any("error", err))
	}
	if hasFilterParams(c) {
		h.savePreference(ctx, id, f)
	}

	data, err := h.viewData(c, id, view.ID, st, failed)
	if err != nil {
		h.svc.CloseView(view.ID, id.UserID)
		return err
	}
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, TimelineGrid(data))
	}
	return middleware.Render(c, http.StatusOK, TimelinePage(data))
}

// ChangeFilter resets the view to a new filter and re-renders the grid.
// POST /timeline/views/:vid/filter
func (h *Handler) ChangeFilter(c echo.Context) error {
	id, ctx, err := identity(c)
	if err != nil {
		return err
	}
	viewID := c.Param("vid")

	base := h.svc.DefaultFilter(ctx, "", h.now())
	f, err := parseFilter(c.FormValue, base)
	if err != nil {
		return err
	}

	st, err := h.svc.ChangeFilter(ctx, viewID, id.UserID, f)
	if errors.Is(err, ErrStale) {
		// A newer filter change owns the grid now.
		return c.NoContent(http.StatusNoContent)
	}
	failed := err != nil
	if failed && !isUpstreamFailure(err) {
		return err
	}
	h.savePreference(ctx, id, f)

	data, err := h.viewData(c, id, viewID, st, failed)
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, TimelineGrid(data))
}

// LoadMore appends the next page of rows. The response replaces the
// load-more sentinel.
// GET /timeline/views/:vid/rows
func (h *Handler) LoadMore(c echo.Context) error {
	id, ctx, err := identity(c)
	if err != nil {
		return err
	}
	viewID := c.Param("vid")

	st, err := h.svc.LoadMore(ctx, viewID, id.UserID)
	if errors.Is(err, ErrStale) || errors.Is(err, ErrFetchInFlight) {
		return c.NoContent(http.StatusNoContent)
	}
	failed := err != nil
	if failed && !isUpstreamFailure(err) {
		return err
	}

	data, err := h.viewData(c, id, viewID, st, failed)
	if err != nil {
		return err
	}
	if failed {
		return middleware.Render(c, http.StatusOK, TimelineRows(data, nil))
	}
	if st.Replaced {
		// Placeholders or the initial skeleton are on screen; redraw all rows.
		c.Response().Header().Set("HX-Retarget", "#timeline-rows")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
		return middleware.Render(c, http.StatusOK, TimelineRows(data, st.Rows))
	}
	return middleware.Render(c, http.StatusOK, TimelineRows(data, st.NewRows()))
}

// Close tears the view down when the page unloads.
// DELETE /timeline/views/:vid
func (h *Handler) Close(c echo.Context) error {
	id, _, err := identity(c)
	if err != nil {
		return err
	}
	h.svc.CloseView(c.Param("vid"), id.UserID)
	return c.NoContent(http.StatusNoContent)
}

// --- JSON API ---

type apiRow struct {
	CalendarRow
	Bars []Bar `json:"bars"`
}

type apiResponse struct {
	Filter      Filter   `json:"filter"`
	Page        int      `json:"page"`
	TotalPages  int      `json:"total_pages"`
	HasMore     bool     `json:"has_more"`
	Days        int      `json:"days"`
	ColumnWidth float64  `json:"column_width"`
	RowHeight   float64  `json:"row_height"`
	TodayOffset int      `json:"today_offset"`
	Rows        []apiRow `json:"rows"`
}

// API returns one page of rows with precomputed bar geometry.
// GET /api/v1/timeline
func (h *Handler) API(c echo.Context) error {
	_, ctx, err := identity(c)
	if err != nil {
		return err
	}

	base := h.svc.DefaultFilter(ctx, "", h.now())
	f, err := parseFilter(c.QueryParam, base)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))

	res, err := h.svc.Page(ctx, f, page)
	if err != nil {
		return err
	}

	settings := h.svc.Settings()
	out := apiResponse{
		Filter:      res.Filter,
		Page:        res.Page,
		TotalPages:  res.TotalPages,
		HasMore:     res.HasMore,
		Days:        res.Grid.Len(),
		ColumnWidth: settings.Layout.ColumnWidth,
		RowHeight:   settings.Layout.RowHeight,
		TodayOffset: res.Grid.TodayOffset(h.now()),
		Rows:        make([]apiRow, 0, len(res.Rows)),
	}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, apiRow{CalendarRow: row, Bars: LayoutRow(res.Grid, row, settings.Layout)})
	}
	return c.JSON(http.StatusOK, out)
}

// Export streams the month recap workbook for the filter in the query.
// GET /timeline/export.xlsx
func (h *Handler) Export(c echo.Context) error {
	id, ctx, err := identity(c)
	if err != nil {
		return err
	}

	base := h.svc.DefaultFilter(ctx, id.UserID, h.now())
	f, err := parseFilter(c.QueryParam, base)
	if err != nil {
		return err
	}
	grid, err := f.Grid(h.svc.Settings().Location)
	if err != nil {
		return err
	}

	rows, err := h.svc.ExportMonth(ctx, f)
	if err != nil {
		return err
	}

	book, err := BuildRecap(grid, rows)
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer book.Close()
	h.record(ctx, id, audit.ActionRecapExported, f, map[string]any{
		"rows":     len(rows),
		"type":     f.Type,
		"location": f.Location,
	})

	c.Response().Header().Set(echo.HeaderContentType, RecapContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+RecapFileName(f)+`"`)
	c.Response().WriteHeader(http.StatusOK)
	return book.Write(c.Response().Writer)
}
