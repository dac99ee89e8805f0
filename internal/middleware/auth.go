package middleware

import (
	"context"
	"net/http"
	"strings"

	"procure-backend/internal/auth"
	"procure-backend/internal/models"
	"procure-backend/pkg/utils"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	EmailKey      contextKey = "email"
	RoleKey       contextKey = "role"
	DepartmentKey contextKey = "department"
)

// UserLookup fetches the current user row so stale tokens cannot outlive an
// account's approval or role.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, users: users}
}

// Authenticate validates the bearer token and loads the current user into
// the request context. Unapproved accounts are rejected here regardless of
// what the token claims.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "user not found")
			return
		}
		if !user.IsApproved {
			utils.WriteError(w, http.StatusForbidden, "account pending approval")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, EmailKey, user.Email)
		ctx = context.WithValue(ctx, RoleKey, user.Role)
		ctx = context.WithValue(ctx, DepartmentKey, user.Department)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a handler to the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}

func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

func GetDepartmentFromContext(ctx context.Context) (string, bool) {
	dept, ok := ctx.Value(DepartmentKey).(string)
	return dept, ok
}
