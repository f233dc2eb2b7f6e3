package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/apperror"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "dashboard_csrf"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfContextKey  = "csrf_token"
)

// CSRFConfig controls the token cookie.
type CSRFConfig struct {
	// SecureCookie marks the cookie Secure. Set it when the dashboard is
	// served over https.
	SecureCookie bool
}

// CSRF guards the timeline's mutating routes (filter changes, preference
// saves, view teardown) with a double-submit cookie. Every request gets a
// token cookie; POST, PUT, PATCH and DELETE must echo it back in the
// X-CSRF-Token header or the csrf_token form field.
//
// The JSON API is GET-only, so it passes through the safe-method branch
// like any page load.
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := csrfToken(c, cfg)
			if err != nil {
				return apperror.NewInternal(err)
			}
			c.Set(csrfContextKey, token)

			if isSafeMethod(c.Request().Method) {
				return next(c)
			}
			if !tokenMatches(submittedToken(c.Request()), token) {
				return apperror.NewForbidden("This page has expired. Reload it and try again.")
			}
			return next(c)
		}
	}
}

// csrfToken returns the request's token cookie, issuing a fresh one when
// the cookie is absent.
func csrfToken(c echo.Context, cfg CSRFConfig) (string, error) {
	if ck, err := c.Request().Cookie(csrfCookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}

	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	token := hex.EncodeToString(b)

	// Readable by scripts: the teardown beacon copies it into a header.
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// submittedToken prefers the htmx header over the form field.
func submittedToken(r *http.Request) string {
	if v := r.Header.Get(csrfHeaderName); v != "" {
		return v
	}
	return r.FormValue(csrfFormField)
}

func tokenMatches(submitted, expected string) bool {
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// GetCSRFToken returns the token CSRF stored for this request, or "".
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(csrfContextKey).(string)
	return token
}
