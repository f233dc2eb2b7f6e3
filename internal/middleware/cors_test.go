package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowedOrigins:   []string{"https://admin.rental.test"},
		AllowCredentials: true,
	}))
	e.GET("/api/v1/timeline", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/timeline", nil)
		req.Header.Set("Origin", "https://admin.rental.test")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://admin.rental.test" {
			t.Error("expected the origin to be echoed")
		}
		if strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
			t.Error("the API is read-only; POST must not be allowed")
		}
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil)
		req.Header.Set("Origin", "https://evil.test")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("expected no CORS headers for an unknown origin")
		}
	})

	t.Run("wildcard drops credentials", func(t *testing.T) {
		h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil)
		req.Header.Set("Origin", "https://any.test")
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
			t.Error("credentials must not be allowed with a wildcard origin")
		}
	})
}
