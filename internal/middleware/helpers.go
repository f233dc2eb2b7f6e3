package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies identity and CSRF data from the echo context into
// the context templates render with. routes.go sets it at startup.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX reports whether the request wants a fragment: the timeline grid
// swapped in after a month or filter change. Boosted navigations and history
// restores still get the whole page.
func IsHTMX(c echo.Context) bool {
	h := c.Request().Header
	return h.Get("HX-Request") == "true" &&
		h.Get("HX-Boosted") != "true" &&
		h.Get("HX-History-Restore-Request") != "true"
}

// Render writes component as HTML with the given status.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	// The same URL serves a page or a fragment.
	h.Add(echo.HeaderVary, "HX-Request")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}
