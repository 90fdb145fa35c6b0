package medicalrecord

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

type Auditor interface {
	AuditResource(c echo.Context, userID, action, resourceType, resourceID string, details map[string]interface{})
}

const resourceType = "medical_record"

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
	g.GET("/patients/:id/medical-records", h.List, authz.RequireRole(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse))
	g.POST("/patients/:id/medical-records", h.Create, authz.RequireRole(auth.RoleAdmin, auth.RolePhysician))
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, validate.Fields("id", "must be a valid UUID")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}

	items, err := h.svc.List(c.Request().Context(), patientID)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordsError, resourceType, "", map[string]interface{}{
			"patientId": patientID.String(),
		})
		return err
	}

	h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordsAccessed, "patient", patientID.String(), map[string]interface{}{
		"patientId": patientID.String(),
		"count":     len(items),
	})
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	doctorID, err := uuid.Parse(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordInvalid, resourceType, "", map[string]interface{}{
			"patientId": patientID.String(),
			"reason":    "malformed body",
		})
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.svc.Create(c.Request().Context(), patientID, doctorID, in)
	if err != nil {
		var verr *validate.Error
		switch {
		case errors.As(err, &verr):
			h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordInvalid, resourceType, "", map[string]interface{}{
				"patientId": patientID.String(),
				"errors":    verr.Fields,
			})
			return err
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		default:
			h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordError, resourceType, "", map[string]interface{}{
				"patientId": patientID.String(),
			})
			return err
		}
	}

	if h.metrics != nil {
		h.metrics.MedicalRecordsCreated.Inc()
	}
	h.auditor.AuditResource(c, userID, auditlog.ActionMedicalRecordCreated, resourceType, rec.ID.String(), map[string]interface{}{
		"patientId": patientID.String(),
	})
	return c.JSON(http.StatusCreated, rec)
}
