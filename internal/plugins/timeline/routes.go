package timeline

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/middleware"
	"github.com/osborn-app/dashboard/internal/plugins/auth"
)

// RegisterRoutes sets up all timeline routes. Every route requires a valid
// backend access token; the export is rate limited because it walks every
// page of the month.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService, authCfg auth.MiddlewareConfig) {
	requireAuth := auth.RequireAuth(authSvc, authCfg)

	tg := e.Group("/timeline", requireAuth)
	tg.GET("", h.Show)
	tg.GET("/export.xlsx", h.Export, middleware.RateLimit(10, time.Minute))

	// View lifecycle: filter changes, infinite scroll and teardown.
	tg.POST("/views/:vid/filter", h.ChangeFilter)
	tg.GET("/views/:vid/rows", h.LoadMore)
	tg.DELETE("/views/:vid", h.Close)

	api := e.Group("/api/v1", requireAuth)
	api.GET("/timeline", h.API)
}
