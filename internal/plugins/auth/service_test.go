package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/osborn-app/dashboard/internal/apperror"
)

const testSecret = "test-secret"

// --- Test Helpers ---

// signToken signs claims with the given method and secret.
func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

// validClaims returns claims for a token that expires in an hour.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"id":    42,
		"name":  "Sari",
		"email": "Sari@Example.com",
		"role":  "Admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- VerifyToken Tests ---

func TestVerifyToken_Success(t *testing.T) {
	svc := NewAuthService(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())

	id, err := svc.VerifyToken("Bearer " + token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "42" {
		t.Errorf("expected user id 42, got %q", id.UserID)
	}
	if id.Role != "admin" {
		t.Errorf("expected role admin, got %q", id.Role)
	}
	if id.Email != "sari@example.com" {
		t.Errorf("expected normalized email, got %q", id.Email)
	}
	if id.Token != token {
		t.Error("expected raw token to be kept for upstream calls")
	}
	if id.ExpiresAt.IsZero() {
		t.Error("expected expiry to be populated")
	}
}

func TestVerifyToken_UserIDClaimAndDefaultRole(t *testing.T) {
	svc := NewAuthService(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "u-7",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	id, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "u-7" {
		t.Errorf("expected u-7, got %q", id.UserID)
	}
	if id.Role != RoleViewer {
		t.Errorf("expected viewer role, got %q", id.Role)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	svc := NewAuthService(testSecret)
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := svc.VerifyToken(signToken(t, jwt.SigningMethodHS256, testSecret, claims))
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	svc := NewAuthService(testSecret)
	_, err := svc.VerifyToken(signToken(t, jwt.SigningMethodHS256, "other", validClaims()))
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestVerifyToken_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewAuthService(testSecret)
	_, err := svc.VerifyToken(signToken(t, jwt.SigningMethodHS512, testSecret, validClaims()))
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	svc := NewAuthService(testSecret)
	_, err := svc.VerifyToken(signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestVerifyToken_Empty(t *testing.T) {
	_, err := NewAuthService(testSecret).VerifyToken("  ")
	assertAppError(t, err, http.StatusUnauthorized)
}

// --- RequireAuth Tests ---

func runRequireAuth(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Identity
	mw := RequireAuth(NewAuthService(testSecret), MiddlewareConfig{CookieName: "access_token", LoginURL: "/login"})
	err := mw(func(c echo.Context) error {
		got = GetIdentity(c)
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, got
}

func TestRequireAuth_CookieToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())})

	rec, id := runRequireAuth(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if id == nil || id.UserID != "42" {
		t.Fatalf("expected identity for user 42, got %+v", id)
	}
}

func TestRequireAuth_BrowserRedirect(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
	rec, _ := runRequireAuth(t, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireAuth_HTMXRedirect(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/timeline/views/x/rows", nil)
	req.Header.Set("HX-Request", "true")
	rec, _ := runRequireAuth(t, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("HX-Redirect") != "/login" {
		t.Error("expected HX-Redirect header")
	}
}

func TestRequireAuth_APIUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec, _ := runRequireAuth(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// --- RequireRole Tests ---

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(RoleAdmin, RoleOwner)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	run := func(identity *Identity) (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil), rec)
		if identity != nil {
			c.Set(contextKeyIdentity, identity)
		}
		return rec, handler(c)
	}

	rec, err := run(&Identity{UserID: "1", Role: RoleOwner})
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected owner to pass, got %d (%v)", rec.Code, err)
	}

	_, err = run(&Identity{UserID: "2", Role: RoleViewer})
	assertAppError(t, err, http.StatusForbidden)

	_, err = run(nil)
	assertAppError(t, err, http.StatusUnauthorized)
}
