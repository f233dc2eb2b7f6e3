// Package audit records timeline actions that leave the dashboard or change
// what a user sees next time: recap exports and saved filters. Entries are
// persisted to the audit_log table and listed for administrators.
//
// This is an optional plugin -- recording failures never block the action
// being recorded.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// ActionRecapExported is logged when a monthly recap workbook is downloaded.
	ActionRecapExported = "recap.exported"

	// ActionPreferenceSaved is logged when a user's timeline filter is stored.
	ActionPreferenceSaved = "preference.saved"
)

// AuditEntry represents a single recorded action. Endpoint and Period
// ("2024-03") name the timeline the action was taken on.
type AuditEntry struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName,omitempty"`
	Action    string         `json:"action"`
	Endpoint  string         `json:"endpoint,omitempty"`
	Period    string         `json:"period,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ActivityStats summarizes recent recording for the admin listing.
type ActivityStats struct {
	// TotalEntries is the number of rows in the audit log.
	TotalEntries int `json:"totalEntries"`

	// ExportsLast30Days counts recap downloads within the last 30 days.
	ExportsLast30Days int `json:"exportsLast30Days"`

	// LastActivityAt is the newest entry's timestamp. Nil on an empty log.
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`

	// ActiveUsers is the count of distinct users with entries in the last
	// 30 days.
	ActiveUsers int `json:"activeUsers"`
}

// Period formats a month as the Period of an entry.
func Period(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
