// Package api implements the board REST API using chi.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/clubqa/internal/identity"
)

// Gateway headers carrying the caller in disabled and token modes.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// AuthMiddleware returns middleware that validates a shared Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves the caller of a request. A request without
// credentials resolves to the guest principal.
type Authenticator interface {
	Authenticate(r *http.Request) (identity.Principal, error)
}

// HeaderAuth trusts identity headers set by a gateway in front of the API.
type HeaderAuth struct{}

// Authenticate implements Authenticator.
func (HeaderAuth) Authenticate(r *http.Request) (identity.Principal, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return identity.Guest, nil
	}
	role := identity.ParseRole(r.Header.Get(HeaderUserRole))
	if role == identity.RoleGuest && r.Header.Get(HeaderUserRole) == "" {
		role = identity.RoleMember
	}
	return identity.Principal{ID: id, Role: role}, nil
}

// JWTAuth verifies HS256 bearer tokens whose sub claim is the user id and
// role claim the role.
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth creates a JWTAuth with the shared signing secret.
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{secret: []byte(secret)}
}

// Claims are the token claims the board reads.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// Authenticate implements Authenticator.
func (a *JWTAuth) Authenticate(r *http.Request) (identity.Principal, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return identity.Guest, nil
	}
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return identity.Guest, errInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return identity.Guest, errInvalidToken
	}
	if claims.Subject == "" {
		return identity.Guest, errInvalidToken
	}
	role := identity.ParseRole(claims.Role)
	if role == identity.RoleGuest {
		role = identity.RoleMember
	}
	return identity.Principal{ID: claims.Subject, Role: role}, nil
}

// IdentityMiddleware attaches the resolved principal to the request context.
// Invalid credentials are rejected with 401; missing ones yield a guest.
func IdentityMiddleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errResponse{Error: "unauthorized", Code: "INVALID_TOKEN"})
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}
