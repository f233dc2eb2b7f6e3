package timeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osborn-app/dashboard/internal/apperror"
)

// View is one mounted timeline page. Its coordinator lives until the page
// is closed or the view sits idle for longer than the registry TTL.
type View struct {
	ID          string
	UserID      string
	Coordinator *Coordinator

	lastSeen time.Time
}

// Registry tracks open views in memory.
type Registry struct {
	ttl      time.Duration
	now      func() time.Time
	newCoord func() *Coordinator

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry creates a registry. newCoord builds the coordinator of each
// opened view.
func NewRegistry(ttl time.Duration, newCoord func() *Coordinator) *Registry {
	return &Registry{
		ttl:      ttl,
		now:      time.Now,
		newCoord: newCoord,
		views:    make(map[string]*View),
	}
}

// Open creates a view for userID.
func (r *Registry) Open(userID string) *View {
	v := &View{
		ID:          uuid.NewString(),
		UserID:      userID,
		Coordinator: r.newCoord(),
	}

	r.mu.Lock()
	v.lastSeen = r.now()
	r.views[v.ID] = v
	r.mu.Unlock()
	return v
}

// Get returns the view and marks it as active. Views belonging to another
// user are reported as not found.
func (r *Registry) Get(id, userID string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok || v.UserID != userID {
		return nil, apperror.NewNotFound("timeline view not found or expired")
	}
	v.lastSeen = r.now()
	return v, nil
}

// Close tears down a view. Closing an unknown view is not an error.
func (r *Registry) Close(id, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[id]; ok && v.UserID == userID {
		delete(r.views, id)
	}
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep removes views idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, v := range r.views {
		if now.Sub(v.lastSeen) > r.ttl {
			delete(r.views, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Debug("expired idle timeline views", slog.Int("count", n))
			}
		}
	}
}
