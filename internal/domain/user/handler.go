package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/domain/auditlog"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/middleware"
	"github.com/clinrec/clinrec/internal/platform/telemetry"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

type Handler struct {
	svc     *Service
	auditor auth.Auditor
	metrics *telemetry.Metrics
}

func NewHandler(svc *Service, auditor auth.Auditor) *Handler {
	return &Handler{svc: svc, auditor: auditor}
}

func (h *Handler) WithMetrics(m *telemetry.Metrics) *Handler {
	h.metrics = m
	return h
}

// RegisterRoutes mounts the public login endpoint on the auth group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		h.audit(c, "", auditlog.ActionLoginValidationFailed, map[string]interface{}{"reason": "malformed body"})
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Username = middleware.SanitizeString(req.Username)

	if err := c.Validate(&req); err != nil {
		details := map[string]interface{}{"username": req.Username}
		var verr *validate.Error
		if errors.As(err, &verr) {
			details["errors"] = verr.Fields
		}
		h.audit(c, "", auditlog.ActionLoginValidationFailed, details)
		h.count("invalid")
		return err
	}

	res, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		var lerr *LoginError
		switch {
		case errors.As(err, &lerr) && errors.Is(err, ErrAccountLocked):
			h.audit(c, lerr.UserID, auditlog.ActionLoginBlocked, map[string]interface{}{"username": req.Username})
			h.count("locked")
			return echo.NewHTTPError(http.StatusLocked, "account temporarily locked, try again later")
		case errors.As(err, &lerr):
			h.audit(c, lerr.UserID, auditlog.ActionLoginFailed, map[string]interface{}{"username": req.Username})
			h.count("failed")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		default:
			h.audit(c, "", auditlog.ActionLoginError, map[string]interface{}{"username": req.Username})
			h.count("error")
			return err
		}
	}

	h.audit(c, res.User.ID.String(), auditlog.ActionLoginSuccess, map[string]interface{}{"username": res.User.Username})
	h.count("success")
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) audit(c echo.Context, userID, action string, details map[string]interface{}) {
	if h.auditor != nil {
		h.auditor.Audit(c, userID, action, details)
	}
}

func (h *Handler) count(result string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}
