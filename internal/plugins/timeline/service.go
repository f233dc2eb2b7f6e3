package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/osborn-app/dashboard/internal/apperror"
	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// maxExportPages caps how many pages a recap export walks.
const maxExportPages = 50

// Settings is the fixed presentation and paging configuration.
type Settings struct {
	Layout   LayoutOptions
	Location *time.Location
	PageSize int
	MinRows  int
	ViewTTL  time.Duration
}

// PageResult is one stateless page for the JSON API.
type PageResult struct {
	Filter     Filter
	Grid       MonthGrid
	Page       int
	HasMore    bool
	TotalPages int
	Rows       []CalendarRow
}

// TimelineService defines business logic for the timeline plugin.
type TimelineService interface {
	// View lifecycle.
	OpenView(ctx context.Context, userID string, f Filter) (*View, State, error)
	ChangeFilter(ctx context.Context, viewID, userID string, f Filter) (State, error)
	LoadMore(ctx context.Context, viewID, userID string) (State, error)
	CloseView(viewID, userID string)
	RunJanitor(ctx context.Context, interval time.Duration)

	// Stateless reads.
	Page(ctx context.Context, f Filter, page int) (*PageResult, error)
	ExportMonth(ctx context.Context, f Filter) ([]CalendarRow, error)

	// Preferences.
	DefaultFilter(ctx context.Context, userID string, now time.Time) Filter
	SavePreference(ctx context.Context, userID string, f Filter) error

	Settings() Settings
}

// timelineService is the default TimelineService implementation.
type timelineService struct {
	lister   rentalapi.Lister
	repo     PreferenceRepository
	registry *Registry
	settings Settings
	now      func() time.Time
}

// NewTimelineService creates a TimelineService. repo may be nil, in which
// case preferences are neither loaded nor saved.
func NewTimelineService(lister rentalapi.Lister, repo PreferenceRepository, settings Settings) TimelineService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Layout.ColumnWidth <= 0 || settings.Layout.RowHeight <= 0 {
		settings.Layout = DefaultLayoutOptions
	}
	if settings.PageSize <= 0 {
		settings.PageSize = 10
	}
	if settings.MinRows <= 0 {
		settings.MinRows = DefaultMinRows
	}
	if settings.ViewTTL <= 0 {
		settings.ViewTTL = 30 * time.Minute
	}

	s := &timelineService{
		lister:   lister,
		repo:     repo,
		settings: settings,
		now:      time.Now,
	}
	s.registry = NewRegistry(settings.ViewTTL, s.newCoordinator)
	return s
}

// RunJanitor expires idle views until ctx is cancelled.
func (s *timelineService) RunJanitor(ctx context.Context, interval time.Duration) {
	s.registry.Run(ctx, interval)
}

func (s *timelineService) newCoordinator() *Coordinator {
	return NewCoordinator(s.lister, CoordinatorOptions{
		PageSize: s.settings.PageSize,
		MinRows:  s.settings.MinRows,
		Location: s.settings.Location,
		Now:      s.now,
	})
}

// Settings returns the service configuration.
func (s *timelineService) Settings() Settings {
	return s.settings
}

// OpenView mounts a new view and loads its first page.
func (s *timelineService) OpenView(ctx context.Context, userID string, f Filter) (*View, State, error) {
	if err := f.Validate(); err != nil {
		return nil, State{}, err
	}
	v := s.registry.Open(userID)
	st, err := v.Coordinator.SetFilter(ctx, f)
	if err != nil && !errors.Is(err, ErrStale) {
		// The view stays open; the page renders its loading state and
		// the first load-more retries.
		return v, st, upstreamError(err)
	}
	return v, st, nil
}

// ChangeFilter resets the view to the new filter.
func (s *timelineService) ChangeFilter(ctx context.Context, viewID, userID string, f Filter) (State, error) {
	if err := f.Validate(); err != nil {
		return State{}, err
	}
	v, err := s.registry.Get(viewID, userID)
	if err != nil {
		return State{}, err
	}
	st, err := v.Coordinator.SetFilter(ctx, f)
	if errors.Is(err, ErrStale) {
		return st, err
	}
	if err != nil {
		return st, upstreamError(err)
	}
	return st, nil
}

// LoadMore appends the next page of the view.
func (s *timelineService) LoadMore(ctx context.Context, viewID, userID string) (State, error) {
	v, err := s.registry.Get(viewID, userID)
	if err != nil {
		return State{}, err
	}
	st, err := v.Coordinator.LoadMore(ctx)
	if errors.Is(err, ErrStale) || errors.Is(err, ErrFetchInFlight) {
		return st, err
	}
	if err != nil {
		return st, upstreamError(err)
	}
	return st, nil
}

// CloseView tears the view down.
func (s *timelineService) CloseView(viewID, userID string) {
	s.registry.Close(viewID, userID)
}

// Page fetches and normalizes a single page without creating a view.
func (s *timelineService) Page(ctx context.Context, f Filter, page int) (*PageResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	grid, err := f.Grid(s.settings.Location)
	if err != nil {
		return nil, err
	}

	res, err := s.lister.List(ctx, f.Query(page, s.settings.PageSize))
	if err != nil {
		return nil, upstreamError(err)
	}

	now := s.now()
	rows := make([]CalendarRow, 0, len(res.Items))
	for _, item := range res.Items {
		rows = append(rows, Normalize(item, now, s.settings.Location))
	}

	return &PageResult{
		Filter:     f,
		Grid:       grid,
		Page:       res.Page,
		HasMore:    res.HasMore(),
		TotalPages: res.TotalPages,
		Rows:       rows,
	}, nil
}

// ExportMonth walks every page of the filter and returns all rows.
func (s *timelineService) ExportMonth(ctx context.Context, f Filter) ([]CalendarRow, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var rows []CalendarRow
	for page := 1; page <= maxExportPages; page++ {
		res, err := s.lister.List(ctx, f.Query(page, s.settings.PageSize))
		if err != nil {
			return nil, upstreamError(err)
		}
		for _, item := range res.Items {
			rows = append(rows, Normalize(item, now, s.settings.Location))
		}
		if !res.HasMore() {
			return rows, nil
		}
	}

	slog.Warn("timeline export truncated",
		slog.String("endpoint", string(f.Endpoint)),
		slog.Int("pages", maxExportPages),
	)
	return rows, nil
}

// DefaultFilter returns the current month with the user's saved endpoint,
// type and location, or fleets when nothing is saved.
func (s *timelineService) DefaultFilter(ctx context.Context, userID string, now time.Time) Filter {
	local := now.In(s.settings.Location)
	f := Filter{
		Month:    local.Month(),
		Year:     local.Year(),
		Endpoint: rentalapi.EndpointFleets,
	}
	if s.repo == nil || userID == "" {
		return f
	}

	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		slog.Warn("loading timeline preference failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return f
	}
	if pref == nil {
		return f
	}
	if pref.Endpoint.Valid() {
		f.Endpoint = pref.Endpoint
	}
	f.Type = pref.Type
	f.Location = pref.Location
	return f
}

// SavePreference stores the filter's endpoint, type and location.
func (s *timelineService) SavePreference(ctx context.Context, userID string, f Filter) error {
	if s.repo == nil || userID == "" {
		return nil
	}
	if !f.Endpoint.Valid() {
		return apperror.NewValidation("unknown timeline endpoint")
	}
	pref := &Preference{
		UserID:   userID,
		Endpoint: f.Endpoint,
		Type:     strings.TrimSpace(f.Type),
		Location: strings.TrimSpace(f.Location),
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return apperror.NewInternal(fmt.Errorf("saving timeline preference: %w", err))
	}
	return nil
}

// upstreamError maps a backend failure to an AppError.
func upstreamError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if rentalapi.IsUnauthorized(err) {
		return apperror.NewForbidden("the rental backend rejected your credentials")
	}
	return apperror.NewBadGateway(err)
}
