package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/middleware"
	"github.com/osborn-app/dashboard/internal/plugins/audit"
	"github.com/osborn-app/dashboard/internal/plugins/auth"
	"github.com/osborn-app/dashboard/internal/plugins/timeline"
	"github.com/osborn-app/dashboard/internal/rentalapi"
	"github.com/osborn-app/dashboard/internal/templates/layouts"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Copy identity and CSRF data into the template context.
	middleware.LayoutInjector = injectLayout

	// --- Public Routes (no auth required) ---

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/timeline")
	})

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", a.healthz)

	// --- Plugin Routes ---

	authSvc := auth.NewAuthService(a.Config.Auth.JWTSecret)
	authCfg := auth.MiddlewareConfig{
		CookieName: a.Config.Auth.CookieName,
		LoginURL:   a.Config.Auth.LoginURL,
	}

	a.timeline = timeline.NewTimelineService(a.rentalClient(), a.preferenceRepo(), a.timelineSettings())
	timelineHandler := timeline.NewHandler(a.timeline)

	// Audit trail (optional, needs MariaDB).
	if a.DB != nil {
		auditSvc := audit.NewAuditService(audit.NewAuditRepository(a.DB))
		timelineHandler.WithActivity(auditSvc)
		audit.RegisterRoutes(e, audit.NewHandler(auditSvc), authSvc, authCfg)
	}

	timeline.RegisterRoutes(e, timelineHandler, authSvc, authCfg)
}

// rentalClient builds the upstream API client, caching pages in Redis when
// a client and a TTL are configured.
func (a *App) rentalClient() *rentalapi.Client {
	cfg := a.Config.RentalAPI
	opts := []rentalapi.Option{rentalapi.WithServiceToken(cfg.Token)}
	if a.Redis != nil && cfg.CacheTTL > 0 {
		opts = append(opts, rentalapi.WithCache(rentalapi.NewRedisCache(a.Redis), cfg.CacheTTL))
	}
	return rentalapi.NewClient(cfg.BaseURL, cfg.Timeout, opts...)
}

// preferenceRepo returns nil without a database; preferences are then off.
func (a *App) preferenceRepo() timeline.PreferenceRepository {
	if a.DB == nil {
		return nil
	}
	return timeline.NewPreferenceRepository(a.DB)
}

func (a *App) timelineSettings() timeline.Settings {
	cfg := a.Config.Timeline
	return timeline.Settings{
		Layout: timeline.LayoutOptions{
			ColumnWidth: float64(cfg.ColumnWidth),
			RowHeight:   float64(cfg.RowHeight),
		},
		Location: cfg.Location(),
		PageSize: cfg.PageSize,
		MinRows:  cfg.MinRows,
		ViewTTL:  cfg.ViewTTL,
	}
}

// injectLayout is the LayoutInjector for every rendered page.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	if id := auth.GetIdentity(c); id != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserID(ctx, id.UserID)
		ctx = layouts.SetUserName(ctx, id.Name)
		ctx = layouts.SetUserRole(ctx, id.Role)
	}
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	return layouts.SetActivePath(ctx, c.Request().URL.Path)
}

// healthz reports whether MariaDB and Redis answer within two seconds.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK

	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
