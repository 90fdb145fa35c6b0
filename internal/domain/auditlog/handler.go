package auditlog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/validate"
	"github.com/clinrec/clinrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the audit log listing on an authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group, authz *auth.Authorizer) {
	g.GET("/audit-logs", h.List, authz.RequireRole(auth.RoleAdmin))
}

// List serves GET /api/audit-logs?page=&limit=&action=&userId=.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)

	pg := pagination.FromContext(c)
	f := Filter{Action: c.QueryParam("action")}
	if raw := c.QueryParam("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return validate.Fields("userId", "must be a valid UUID")
		}
		f.UserID = &id
	}

	page, err := h.svc.Search(ctx, f, pg)
	if err != nil {
		h.svc.Audit(c, userID, ActionAuditLogsError, map[string]interface{}{"error": "search failed"})
		return err
	}

	h.svc.Audit(c, userID, ActionAuditLogsAccessed, map[string]interface{}{
		"page":    pg.Page,
		"limit":   pg.Limit,
		"action":  f.Action,
		"results": len(page.Logs),
	})
	return c.JSON(http.StatusOK, page)
}
