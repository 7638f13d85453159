/*
auth.go - Login and JWT bearer authentication

PURPOSE:
  Authenticates users against the injected read-only directory and
  protects every endpoint except login and health with a bearer token.
  The token carries the user's email; the directory record is re-read on
  every request so role or store changes apply on the next call.

TOKEN:
  HS256-signed JWT with the configured TTL. No refresh mechanism; the
  frontend re-logs-in on expiry.

SEE ALSO:
  - directory: user lookup
  - server.go: which routes are protected
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/retailops/delivery-engine/directory"
)

// AuthConfig holds the signing secret and token lifetime.
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// Claims is the JWT payload.
type Claims struct {
	Email string `json:"email"`
	Store string `json:"store"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const userContextKey contextKey = "user"

// =============================================================================
// LOGIN / VERIFY / LOGOUT
// =============================================================================

// Login authenticates email+password and returns a signed token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required", nil)
		return
	}

	user, ok := h.Directory.FindByEmail(req.Email)
	if !ok || user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Store: user.Store,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.Auth.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.Auth.Secret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(user)})
}

// Verify returns the authenticated user.
// GET /api/auth/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(user)})
}

// Logout exists for API symmetry; tokens are stateless.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// RequireAuth validates the bearer token and loads the directory user
// into the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Bearer token required", nil)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			claims,
			func(t *jwt.Token) (any, error) { return []byte(h.Auth.Secret), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token", nil)
			return
		}

		// Re-read the directory so revoked users are cut off immediately.
		user, ok := h.Directory.FindByEmail(claims.Email)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unknown user", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), userContextKey, user)))
	})
}

func userFrom(ctx context.Context) (directory.User, bool) {
	user, ok := ctx.Value(userContextKey).(directory.User)
	return user, ok
}

func toUserDTO(u directory.User) UserDTO {
	return UserDTO{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Store: u.Store,
		Role:  string(u.Role),
	}
}
