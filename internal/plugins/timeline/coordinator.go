package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// DefaultMinRows is the smallest number of rows the grid displays.
const DefaultMinRows = 5

// ErrStale is returned when a fetch finished after the filter changed. Its
// result was discarded.
var ErrStale = errors.New("timeline: result superseded by a newer filter")

// ErrFetchInFlight is returned by LoadMore when a page is already being fetched.
var ErrFetchInFlight = errors.New("timeline: fetch already in flight")

// State is the immutable snapshot of one timeline view. Reduce never
// mutates its input; Rows is copied on every change.
type State struct {
	Filter Filter
	// Generation increments on every filter change. Fetch results carry the
	// generation they were issued for and are dropped when it moved on.
	Generation uint64
	// Page is the last loaded page, 0 before the first load.
	Page int
	// Pending is the page being fetched while Fetching is true.
	Pending  int
	Rows     []CalendarRow
	HasMore  bool
	Fetching bool
	Loaded   bool
	Err      error
	MinRows  int
	// AppendedFrom is the index of the first row added by the last page.
	AppendedFrom int
	// Replaced is true when the last page replaced the rows instead of
	// appending, i.e. the first page or a page that displaced placeholders.
	Replaced bool
}

// Loading reports whether the grid should show its loading state.
func (s State) Loading() bool {
	return s.Fetching || !s.Loaded
}

// NewRows returns the rows added by the last applied page.
func (s State) NewRows() []CalendarRow {
	if s.Replaced || s.AppendedFrom > len(s.Rows) {
		return s.Rows
	}
	return s.Rows[s.AppendedFrom:]
}

// RealRows returns the rows that are not placeholders.
func (s State) RealRows() []CalendarRow {
	return realRows(s.Rows)
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// FilterChanged resets paging and starts a fresh first-page fetch.
type FilterChanged struct {
	Filter Filter
}

// LoadMoreStarted requests the next page. It is a no-op while a fetch is in
// flight or when no further page exists.
type LoadMoreStarted struct{}

// PageLoaded delivers the normalized rows of a fetched page.
type PageLoaded struct {
	Generation uint64
	Page       int
	Rows       []CalendarRow
	HasMore    bool
}

// PageFailed reports a failed fetch.
type PageFailed struct {
	Generation uint64
	Page       int
	Err        error
}

func (FilterChanged) isAction()   {}
func (LoadMoreStarted) isAction() {}
func (PageLoaded) isAction()      {}
func (PageFailed) isAction()      {}

// Reduce is the pure state transition of a timeline view.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case FilterChanged:
		return State{
			Filter:     a.Filter,
			Generation: s.Generation + 1,
			Pending:    1,
			Fetching:   true,
			MinRows:    s.MinRows,
			Replaced:   true,
		}

	case LoadMoreStarted:
		if s.Fetching {
			return s
		}
		if !s.Loaded {
			// The first page never arrived; retry it.
			s.Pending = 1
		} else if s.HasMore {
			s.Pending = s.Page + 1
		} else {
			return s
		}
		s.Fetching = true
		s.Err = nil
		return s

	case PageLoaded:
		if !s.accepts(a.Generation, a.Page) {
			return s
		}
		var base []CalendarRow
		if a.Page > 1 {
			base = realRows(s.Rows)
		}
		rows := make([]CalendarRow, 0, len(base)+len(a.Rows))
		rows = append(rows, base...)
		rows = append(rows, a.Rows...)
		if a.Page == 1 {
			rows = padRows(rows, s.MinRows)
		}

		s.Replaced = a.Page == 1 || len(base) != len(s.Rows)
		s.AppendedFrom = len(base)
		s.Rows = rows
		s.Page = a.Page
		s.Pending = 0
		s.HasMore = a.HasMore
		s.Fetching = false
		s.Loaded = true
		s.Err = nil
		return s

	case PageFailed:
		if !s.accepts(a.Generation, a.Page) {
			return s
		}
		s.Pending = 0
		s.Fetching = false
		s.Err = a.Err
		return s
	}
	return s
}

// accepts reports whether a fetch result belongs to the current request.
func (s State) accepts(generation uint64, page int) bool {
	return s.Fetching && generation == s.Generation && page == s.Pending
}

func realRows(rows []CalendarRow) []CalendarRow {
	out := make([]CalendarRow, 0, len(rows))
	for _, r := range rows {
		if !r.Placeholder {
			out = append(out, r)
		}
	}
	return out
}

func padRows(rows []CalendarRow, minRows int) []CalendarRow {
	for len(rows) < minRows {
		rows = append(rows, placeholderRow())
	}
	return rows
}

// NormalizeFunc converts a backend entity into a row.
type NormalizeFunc func(entity rentalapi.Entity, now time.Time, loc *time.Location) CalendarRow

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	PageSize int
	MinRows  int
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// Normalize defaults to Normalize.
	Normalize NormalizeFunc
}

// Coordinator owns the state of one timeline view and runs its fetches.
// Reduce is applied under the lock; network calls happen outside it.
type Coordinator struct {
	lister    rentalapi.Lister
	pageSize  int
	loc       *time.Location
	now       func() time.Time
	normalize NormalizeFunc

	mu    sync.Mutex
	state State
}

// NewCoordinator creates a coordinator that fetches pages through lister.
func NewCoordinator(lister rentalapi.Lister, opts CoordinatorOptions) *Coordinator {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRows
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Normalize == nil {
		opts.Normalize = Normalize
	}
	return &Coordinator{
		lister:    lister,
		pageSize:  opts.PageSize,
		loc:       opts.Location,
		now:       opts.Now,
		normalize: opts.Normalize,
		state:     State{MinRows: opts.MinRows},
	}
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// dispatch applies a to the state and returns the resulting snapshot.
func (c *Coordinator) dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, a)
	return c.state.clone()
}

// SetFilter replaces the filter, discards accumulated rows and loads page 1.
// ErrStale means another filter change superseded this one while fetching.
func (c *Coordinator) SetFilter(ctx context.Context, f Filter) (State, error) {
	st := c.dispatch(FilterChanged{Filter: f})
	return c.fetch(ctx, st)
}

// LoadMore fetches and appends the next page. When nothing can be loaded it
// returns the unchanged state and a nil error; while another fetch is in
// flight it returns ErrFetchInFlight.
func (c *Coordinator) LoadMore(ctx context.Context) (State, error) {
	c.mu.Lock()
	before := c.state
	c.state = Reduce(before, LoadMoreStarted{})
	after := c.state.clone()
	c.mu.Unlock()

	if before.Fetching {
		return after, ErrFetchInFlight
	}
	if !after.Fetching {
		return after, nil
	}
	return c.fetch(ctx, after)
}

// fetch runs the request described by st and applies its outcome.
func (c *Coordinator) fetch(ctx context.Context, st State) (State, error) {
	gen, page := st.Generation, st.Pending

	res, err := c.lister.List(ctx, st.Filter.Query(page, c.pageSize))
	if err != nil {
		final := c.dispatch(PageFailed{Generation: gen, Page: page, Err: err})
		if final.Generation != gen {
			return final, ErrStale
		}
		slog.Warn("timeline page fetch failed",
			slog.String("endpoint", string(st.Filter.Endpoint)),
			slog.Int("page", page),
			slog.Any("error", err),
		)
		return final, fmt.Errorf("fetching timeline page %d: %w", page, err)
	}

	rows, err := c.mapRows(res.Items)
	if err != nil {
		slog.Error("timeline row mapping failed",
			slog.String("endpoint", string(st.Filter.Endpoint)),
			slog.Int("page", page),
			slog.Any("error", err),
		)
		rows = nil
	}

	final := c.dispatch(PageLoaded{Generation: gen, Page: page, Rows: rows, HasMore: res.HasMore()})
	if final.Generation != gen {
		slog.Debug("discarding stale timeline page",
			slog.Uint64("generation", gen),
			slog.Uint64("current", final.Generation),
		)
		return final, ErrStale
	}
	return final, nil
}

// mapRows normalizes a page. A panic yields no rows for the whole page.
func (c *Coordinator) mapRows(items []rentalapi.Entity) (rows []CalendarRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("panic while mapping rows: %v", r)
		}
	}()

	now := c.now()
	rows = make([]CalendarRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, c.normalize(item, now, c.loc))
	}
	return rows, nil
}

// clone copies the row slice so snapshots never alias coordinator state.
func (s State) clone() State {
	s.Rows = slices.Clone(s.Rows)
	return s
}
