package timeline

import (
	"net/url"

	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// Role is the dashboard role carried in the user's access token.
type Role string

// Roles known to the dashboard. Unknown roles are treated as viewers.
const (
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleOperations Role = "ops"
	RoleFinance    Role = "finance"
	RoleDriver     Role = "driver"
	RoleViewer     Role = "viewer"
)

// CanApprove reports whether the role approves or rejects orders. Approvers
// land on the order detail page once an order has left the approval queue.
func (r Role) CanApprove() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleOperations:
		return true
	}
	return false
}

// DetailURL returns the page opened when an interval bar is clicked, or ""
// when the interval has no id. The decision depends only on the endpoint,
// the viewer's role and the order status.
func DetailURL(endpoint rentalapi.Endpoint, role Role, status, id string) string {
	if id == "" {
		return ""
	}
	id = url.PathEscape(id)

	switch endpoint {
	case rentalapi.EndpointProducts:
		return "/dashboard/product-orders/" + id + "/preview"
	case rentalapi.EndpointInspections:
		return "/dashboard/inspections/" + id + "/detail"
	case rentalapi.EndpointMaintenance:
		return "/dashboard/maintenance/" + id + "/detail"
	}

	// Fleets: approvers review queued orders in the preview, everything else
	// opens the full detail page.
	if role.CanApprove() {
		switch statusKey(status) {
		case "pending", "waiting":
			return "/dashboard/orders/" + id + "/preview"
		}
		return "/dashboard/orders/" + id + "/detail"
	}
	return "/dashboard/orders/" + id + "/preview"
}
