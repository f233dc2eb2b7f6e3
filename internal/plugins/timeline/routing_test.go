package timeline

import (
	"strings"
	"testing"

	"github.com/osborn-app/dashboard/internal/rentalapi"
)

func TestDetailURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint rentalapi.Endpoint
		role     Role
		status   string
		id       string
		want     string
	}{
		{"product always preview", rentalapi.EndpointProducts, RoleAdmin, "done", "12", "/dashboard/product-orders/12/preview"},
		{"admin pending order", rentalapi.EndpointFleets, RoleAdmin, "pending", "5", "/dashboard/orders/5/preview"},
		{"ops waiting order", rentalapi.EndpointFleets, RoleOperations, "Waiting", "5", "/dashboard/orders/5/preview"},
		{"owner running order", rentalapi.EndpointFleets, RoleOwner, "on progress", "5", "/dashboard/orders/5/detail"},
		{"finance done order", rentalapi.EndpointFleets, RoleFinance, "done", "5", "/dashboard/orders/5/preview"},
		{"unknown role", rentalapi.EndpointFleets, Role("guest"), "done", "5", "/dashboard/orders/5/preview"},
		{"inspection", rentalapi.EndpointInspections, RoleViewer, "pending_repair", "9", "/dashboard/inspections/9/detail"},
		{"maintenance", rentalapi.EndpointMaintenance, RoleDriver, "", "3", "/dashboard/maintenance/3/detail"},
		{"missing id", rentalapi.EndpointFleets, RoleAdmin, "done", "", ""},
		{"escaped id", rentalapi.EndpointFleets, RoleAdmin, "done", "a/b", "/dashboard/orders/a%2Fb/detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetailURL(tt.endpoint, tt.role, tt.status, tt.id); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStyleFor(t *testing.T) {
	pending := StyleFor("pending")
	if pending.Key != DefaultStatus || pending.Label == "" {
		t.Fatalf("unexpected pending style %+v", pending)
	}

	if got := StyleFor(""); got.Key != DefaultStatus {
		t.Errorf("blank status: expected fallback, got %q", got.Key)
	}
	if got := StyleFor("teleported"); got.Key != DefaultStatus {
		t.Errorf("unknown status: expected fallback, got %q", got.Key)
	}
	if got := StyleFor("On-Progress"); got.Key != "on_progress" {
		t.Errorf("expected normalized key on_progress, got %q", got.Key)
	}

	for _, key := range StatusKeys() {
		s := StyleFor(key)
		if s.Text == "" || s.Background == "" || s.BorderHover == "" {
			t.Errorf("style %q is incomplete: %+v", key, s)
		}
		if !strings.Contains(s.Classes(), s.Background) {
			t.Errorf("classes of %q miss the background", key)
		}
	}
}

func TestLoadStatusStyles_RequiresDefault(t *testing.T) {
	if _, err := loadStatusStyles([]byte("done:\n  label: Done\n")); err == nil {
		t.Error("expected error when the pending style is missing")
	}
	if _, err := loadStatusStyles([]byte("::: not yaml")); err == nil {
		t.Error("expected parse error")
	}
}
