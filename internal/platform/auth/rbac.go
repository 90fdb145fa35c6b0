package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Authorizer builds role-gated middleware that audits denials.
type Authorizer struct {
	auditor Auditor
}

func NewAuthorizer(auditor Auditor) *Authorizer {
	return &Authorizer{auditor: auditor}
}

// RequireRole returns middleware that lets the request through only when the
// caller's role is one of roles. There is no implicit superuser: admin must be
// listed to be allowed. A denial writes exactly one AUTHORIZATION_FAILED entry.
func (a *Authorizer) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID := UserIDFromContext(ctx)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthenticated)
			}

			role := RoleFromContext(ctx)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}

			if a != nil && a.auditor != nil {
				a.auditor.Audit(c, userID, ActionAuthorizationFailed, map[string]interface{}{
					"required_roles": strings.Join(roles, ", "),
					"user_role":      role,
					"path":           c.Path(),
				})
			}
			return echo.NewHTTPError(http.StatusForbidden, msgForbidden)
		}
	}
}
