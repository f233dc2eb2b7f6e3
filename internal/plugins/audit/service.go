package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/osborn-app/dashboard/internal/apperror"
)

// perPage is the number of audit entries returned per page.
const perPage = 50

// recordTimeout bounds a background write so a slow database cannot pile up
// goroutines behind exports.
const recordTimeout = 5 * time.Second

// AuditService handles business logic for the audit log. It validates inputs,
// enforces limits, and delegates persistence to the repository.
type AuditService interface {
	// Log validates and records an audit entry.
	Log(ctx context.Context, entry *AuditEntry) error

	// Record is the fire-and-forget form of Log used by request handlers:
	// the write happens off the request and failures are only logged.
	Record(ctx context.Context, entry *AuditEntry)

	// List returns one page of entries, optionally for one user.
	// Returns entries, total count, and any error.
	List(ctx context.Context, userID string, page int) ([]AuditEntry, int, error)

	// Stats returns aggregate counts over the log.
	Stats(ctx context.Context) (*ActivityStats, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
	now  func() time.Time
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo, now: time.Now}
}

// Log validates and persists an audit entry. Missing required fields cause
// a validation error.
func (s *auditService) Log(ctx context.Context, entry *AuditEntry) error {
	if entry.UserID == "" {
		return apperror.NewBadRequest("user ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("user_id", entry.UserID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}

	return nil
}

// Record writes entry in the background. The request context only lends
// its values; the write outlives a finished response.
func (s *auditService) Record(ctx context.Context, entry *AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		_ = s.Log(ctx, entry)
	}()
}

// List returns a page of the audit log. Pages are 1-indexed. Invalid page
// numbers are clamped to 1.
func (s *auditService) List(ctx context.Context, userID string, page int) ([]AuditEntry, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	entries, total, err := s.repo.List(ctx, userID, perPage, offset)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit entries: %w", err))
	}

	return entries, total, nil
}

// Stats returns aggregate counts over the log.
func (s *auditService) Stats(ctx context.Context) (*ActivityStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("getting audit stats: %w", err))
	}
	return stats, nil
}
