package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/platform/auth"
)

// Recovery turns a handler panic into a 500 and logs the stack with the
// request and caller identity. Clinical payloads are never logged.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				buf := make([]byte, 8<<10)
				buf = buf[:runtime.Stack(buf, false)]

				req := c.Request()
				ev := logger.Error().
					Str("request_id", RequestIDFrom(c)).
					Str("method", req.Method).
					Str("path", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", buf)
				if uid := auth.UserIDFromContext(req.Context()); uid != "" {
					ev = ev.Str("user_id", uid).Str("role", auth.RoleFromContext(req.Context()))
				}
				ev.Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
