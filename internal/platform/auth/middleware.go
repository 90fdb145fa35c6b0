package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	UsernameKey contextKey = "username"
)

// Auditor records security events. userID may be empty for anonymous callers.
type Auditor interface {
	Audit(c echo.Context, userID, action string, details map[string]interface{})
}

// UserChecker confirms that a token subject still maps to an active account.
type UserChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Audit actions raised by this package.
const (
	ActionAuthFailed          = "AUTH_FAILED"
	ActionAuthorizationFailed = "AUTHORIZATION_FAILED"
)

// Messages are deliberately generic so callers cannot probe account state.
const (
	msgUnauthenticated = "authentication required"
	msgForbidden       = "insufficient permissions"
)

type JWTConfig struct {
	Tokens  *TokenManager
	Users   UserChecker
	Auditor Auditor
}

// JWTMiddleware authenticates bearer tokens. Every rejection answers 401 with
// the same message and writes one AUTH_FAILED audit entry.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fail := func(userID, reason string) error {
				if cfg.Auditor != nil {
					cfg.Auditor.Audit(c, userID, ActionAuthFailed, map[string]interface{}{"message": reason})
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthenticated)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return fail("", "no token provided")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return fail("", "invalid authorization format")
			}

			claims, err := cfg.Tokens.Parse(parts[1])
			if err != nil {
				return fail("", err.Error())
			}

			if cfg.Users != nil {
				active, err := cfg.Users.IsActive(c.Request().Context(), claims.Subject)
				if err != nil || !active {
					return fail(claims.Subject, "user not found or inactive")
				}
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// WithUser returns ctx carrying an authenticated identity. Used by tests and
// by callers that authenticate outside the HTTP middleware.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}
