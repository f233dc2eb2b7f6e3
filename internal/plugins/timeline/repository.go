package timeline

import (
	"context"
	"database/sql"

	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// PreferenceRepository persists each user's last timeline filter.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*Preference, error)
	Upsert(ctx context.Context, pref *Preference) error
}

// preferenceRepo is the MariaDB implementation of PreferenceRepository.
type preferenceRepo struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new MariaDB-backed preference repository.
func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

// Get returns the saved preference for a user, or nil if none exists.
func (r *preferenceRepo) Get(ctx context.Context, userID string) (*Preference, error) {
	p := &Preference{}
	var endpoint string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, endpoint, type_filter, location_id, updated_at
		 FROM timeline_preferences WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &endpoint, &p.Type, &p.Location, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Endpoint = rentalapi.Endpoint(endpoint)
	return p, nil
}

// Upsert inserts or replaces the preference for pref.UserID.
func (r *preferenceRepo) Upsert(ctx context.Context, pref *Preference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timeline_preferences (user_id, endpoint, type_filter, location_id)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE endpoint = VALUES(endpoint),
		        type_filter = VALUES(type_filter), location_id = VALUES(location_id),
		        updated_at = CURRENT_TIMESTAMP`,
		pref.UserID, string(pref.Endpoint), pref.Type, pref.Location,
	)
	return err
}
