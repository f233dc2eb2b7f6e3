// Package auth verifies the access tokens the rental backend issues and
// exposes the caller's identity to other plugins. Login, registration and
// session lifetime are owned by the backend; this service only reads the
// HS256-signed JWT it finds in the Authorization header or the access cookie.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role claims the dashboard distinguishes. RoleViewer is assigned when the
// token carries no role claim.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Identity is the authenticated caller, built from verified token claims.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      string
	ExpiresAt time.Time

	// Token is the raw access token, forwarded to the backend on behalf of
	// the user.
	Token string
}

// accessClaims is the claim set of a backend access token. The backend has
// used both "id" and "user_id", and sends numeric ids.
type accessClaims struct {
	jwt.RegisteredClaims
	LegacyID any    `json:"id"`
	UserID   any    `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// userID returns the first non-empty identifier claim.
func (c *accessClaims) userID() string {
	for _, v := range []string{claimString(c.UserID), claimString(c.LegacyID), c.Subject} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// claimString formats a string or numeric claim.
func claimString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// role returns the normalized role claim, defaulting to viewer.
func (c *accessClaims) role() string {
	r := strings.ToLower(strings.TrimSpace(c.Role))
	if r == "" {
		return RoleViewer
	}
	return r
}
