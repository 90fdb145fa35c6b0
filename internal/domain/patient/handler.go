package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/domain/auditlog"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/telemetry"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

// Auditor records an event about a resource.
type Auditor interface {
	AuditResource(c echo.Context, userID, action, resourceType, resourceID string, details map[string]interface{})
}

const resourceType = "patient"

type Handler struct {
	svc     *Service
	auditor Auditor
	metrics *telemetry.Metrics
}

func NewHandler(svc *Service, auditor Auditor) *Handler {
	return &Handler{svc: svc, auditor: auditor}
}

func (h *Handler) WithMetrics(m *telemetry.Metrics) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) RegisterRoutes(g *echo.Group, authz *auth.Authorizer) {
	g.GET("/patients", h.List, authz.RequireRole(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse))
	g.POST("/patients", h.Create, authz.RequireRole(auth.RoleAdmin, auth.RolePhysician))
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	items, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		h.auditor.AuditResource(c, userID, auditlog.ActionPatientsListError, resourceType, "", nil)
		return err
	}

	h.auditor.AuditResource(c, userID, auditlog.ActionPatientsListAccessed, resourceType, "", map[string]interface{}{
		"count": len(items),
	})
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		h.auditor.AuditResource(c, userID, auditlog.ActionPatientCreateInvalid, resourceType, "", map[string]interface{}{
			"reason": "malformed body",
		})
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var createdBy *uuid.UUID
	if id, err := uuid.Parse(userID); err == nil {
		createdBy = &id
	}

	p, err := h.svc.Create(c.Request().Context(), in, createdBy)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			h.auditor.AuditResource(c, userID, auditlog.ActionPatientCreateInvalid, resourceType, "", map[string]interface{}{
				"errors": verr.Fields,
			})
			return err
		}
		h.auditor.AuditResource(c, userID, auditlog.ActionPatientCreateError, resourceType, "", nil)
		return err
	}

	if h.metrics != nil {
		h.metrics.PatientsCreated.Inc()
	}
	h.auditor.AuditResource(c, userID, auditlog.ActionPatientCreated, resourceType, p.ID.String(), map[string]interface{}{
		"patientId": p.ID.String(),
		"name":      p.Name,
	})
	return c.JSON(http.StatusCreated, p)
}
