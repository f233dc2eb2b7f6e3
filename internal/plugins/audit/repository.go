package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRepository defines the data access contract for audit log operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AuditRepository interface {
	// Log inserts a new audit entry into the database.
	Log(ctx context.Context, entry *AuditEntry) error

	// List returns paginated entries, most recent first, optionally limited
	// to one user. Returns the entries, total count (for pagination), and
	// any error.
	List(ctx context.Context, userID string, limit, offset int) ([]AuditEntry, int, error)

	// Stats returns aggregate counts over the whole log.
	Stats(ctx context.Context) (*ActivityStats, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new audit entry. The details map is serialized to JSON
// before storage. Nil details are stored as SQL NULL.
func (r *auditRepository) Log(ctx context.Context, entry *AuditEntry) error {
	query := `INSERT INTO audit_log (user_id, user_name, action, endpoint, period, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.UserID, entry.UserName, entry.Action,
		entry.Endpoint, entry.Period,
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// List returns audit entries ordered by most recent first. An empty userID
// lists every user.
func (r *auditRepository) List(ctx context.Context, userID string, limit, offset int) ([]AuditEntry, int, error) {
	where, args := "", []any{}
	if userID != "" {
		where, args = "WHERE user_id = ?", append(args, userID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT id, user_id, user_name, action, endpoint, period, details, created_at
	          FROM audit_log ` + where + `
	          ORDER BY created_at DESC, id DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Stats computes the aggregate counts shown above the admin listing.
func (r *auditRepository) Stats(ctx context.Context) (*ActivityStats, error) {
	stats := &ActivityStats{}

	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM audit_log`,
	).Scan(&stats.TotalEntries, &last); err != nil {
		return nil, fmt.Errorf("querying audit totals: %w", err)
	}
	if last.Valid {
		stats.LastActivityAt = &last.Time
	}

	recentQuery := `SELECT COALESCE(SUM(action = ?), 0), COUNT(DISTINCT user_id)
	                FROM audit_log
	                WHERE created_at >= DATE_SUB(NOW(), INTERVAL 30 DAY)`
	if err := r.db.QueryRowContext(ctx, recentQuery, ActionRecapExported).Scan(
		&stats.ExportsLast30Days, &stats.ActiveUsers,
	); err != nil {
		return nil, fmt.Errorf("querying recent activity: %w", err)
	}

	return stats, nil
}

// scanAuditRows scans rows from an audit_log query into AuditEntry slices.
// Expects columns: id, user_id, user_name, action, endpoint, period,
// details, created_at.
func scanAuditRows(rows *sql.Rows) ([]AuditEntry, error) {
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.UserName, &e.Action,
			&e.Endpoint, &e.Period, &detailsJSON, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// Deserialize JSON details if present.
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the row in the listing.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
