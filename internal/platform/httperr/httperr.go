// Package httperr renders handler errors as JSON responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/platform/validate"
)

// Response is the body of every non-validation error.
type Response struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Handler returns an echo.HTTPErrorHandler. Validation failures become 400
// with field errors, echo HTTP errors keep their code and message, and
// anything else is logged and answered with a generic 500.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		rid, _ := c.Get("request_id").(string)

		var verr *validate.Error
		if errors.As(err, &verr) {
			writeJSON(c, logger, http.StatusBadRequest, verr)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			if he.Code >= http.StatusInternalServerError {
				logger.Error().Err(he.Internal).Str("request_id", rid).Int("status", he.Code).Msg(msg)
			}
			writeJSON(c, logger, he.Code, Response{Error: msg, RequestID: rid})
			return
		}

		logger.Error().Err(err).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("unhandled error")
		writeJSON(c, logger, http.StatusInternalServerError, Response{Error: "internal server error", RequestID: rid})
	}
}

func writeJSON(c echo.Context, logger zerolog.Logger, code int, body interface{}) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to write error response")
	}
}
