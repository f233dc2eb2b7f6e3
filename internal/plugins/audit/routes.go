package audit

import (
	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/plugins/auth"
)

// RegisterRoutes sets up the audit listing. It requires authentication and
// the admin role.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService, authCfg auth.MiddlewareConfig) {
	g := e.Group("/api/v1",
		auth.RequireAuth(authSvc, authCfg),
		auth.RequireRole(auth.RoleAdmin),
	)
	g.GET("/audit", h.List)
}
