package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/apperror"
)

// Context keys for storing identity data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeyIdentity = "auth_identity"
	contextKeyUserID   = "auth_user_id"
)

// MiddlewareConfig names where tokens are read from and where
// unauthenticated browsers are sent.
type MiddlewareConfig struct {
	// CookieName is the cookie holding the access token for browser requests.
	CookieName string

	// LoginURL is the backend-hosted login page.
	LoginURL string
}

// RequireAuth returns middleware that verifies the access token and injects
// the identity into the request context. If the token is invalid or
// missing, it redirects browsers to the login page or returns 401 for API
// requests.
func RequireAuth(service AuthService, cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.LoginURL == "" {
		cfg.LoginURL = "/login"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getAccessToken(c, cfg.CookieName)
			if token == "" {
				return handleUnauthenticated(c, cfg.LoginURL)
			}

			identity, err := service.VerifyToken(token)
			if err != nil {
				return handleUnauthenticated(c, cfg.LoginURL)
			}

			// Store identity data in context for downstream handlers.
			c.Set(contextKeyIdentity, identity)
			c.Set(contextKeyUserID, identity.UserID)

			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects identities whose role is not
// listed. Must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := GetIdentity(c)
			if identity == nil {
				return apperror.NewUnauthorized("authentication required")
			}
			if !slices.Contains(roles, identity.Role) {
				return apperror.NewForbidden("you do not have permission to view this page")
			}
			return next(c)
		}
	}
}

// getAccessToken reads the bearer token from the Authorization header,
// falling back to the access cookie.
func getAccessToken(c echo.Context, cookieName string) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// handleUnauthenticated returns the appropriate response for unauthenticated
// requests: redirect for browsers, 401 JSON for API clients.
func handleUnauthenticated(c echo.Context, loginURL string) error {
	// API requests get a JSON 401 response.
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}

	// HTMX requests get a redirect header so the full page navigates.
	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Redirect", loginURL)
		return c.NoContent(http.StatusNoContent)
	}

	// Regular browser requests get a 303 redirect to login.
	return c.Redirect(http.StatusSeeOther, loginURL)
}

// --- Exported getters for other plugins ---

// GetIdentity retrieves the authenticated identity from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetIdentity(c echo.Context) *Identity {
	identity, ok := c.Get(contextKeyIdentity).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// --- Helpers ---

// isAPIRequest returns true if the request targets the /api/ path.
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return len(path) >= 4 && path[:4] == "/api"
}

// isHTMXRequest returns true if the request was made by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
