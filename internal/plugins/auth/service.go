package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osborn-app/dashboard/internal/apperror"
)

// AuthService verifies access tokens.
type AuthService interface {
	// VerifyToken checks the signature and expiry of token and returns the
	// identity it carries.
	VerifyToken(token string) (*Identity, error)
}

// authService is the default AuthService implementation.
type authService struct {
	secret []byte
	now    func() time.Time
}

// NewAuthService creates an AuthService that verifies HS256 tokens signed
// with secret.
func NewAuthService(secret string) AuthService {
	return &authService{secret: []byte(secret), now: time.Now}
}

// VerifyToken parses and validates a backend access token. A "Bearer "
// prefix is tolerated.
func (s *authService) VerifyToken(token string) (*Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, apperror.NewUnauthorized("authentication required")
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.NewUnauthorized("session expired")
		}
		return nil, apperror.NewUnauthorized("invalid access token")
	}
	if !parsed.Valid {
		return nil, apperror.NewUnauthorized("invalid access token")
	}

	userID := claims.userID()
	if userID == "" {
		return nil, apperror.NewUnauthorized("access token has no subject")
	}

	id := &Identity{
		UserID: userID,
		Name:   strings.TrimSpace(claims.Name),
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Role:   claims.role(),
		Token:  token,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
