package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/platform/telemetry"
	"github.com/clinrec/clinrec/pkg/pagination"
)

const writeTimeout = 5 * time.Second

// Service writes and reads the audit trail. Writes never fail the caller:
// an insert error is logged and counted, and the request carries on.
type Service struct {
	repo    Repository
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) WithMetrics(m *telemetry.Metrics) *Service {
	s.metrics = m
	return s
}

// Audit records an event for the request in c. It satisfies auth.Auditor.
func (s *Service) Audit(c echo.Context, userID, action string, details map[string]interface{}) {
	s.AuditResource(c, userID, action, "", "", details)
}

// AuditResource records an event about a specific resource.
func (s *Service) AuditResource(c echo.Context, userID, action, resourceType, resourceID string, details map[string]interface{}) {
	e := &Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
	}
	if rid, ok := c.Get("request_id").(string); ok {
		e.RequestID = rid
	}
	if userID != "" {
		if id, err := uuid.Parse(userID); err == nil {
			e.UserID = &id
		}
	}
	s.Record(c.Request().Context(), e)
}

// Record inserts e, detached from the request's cancellation.
func (s *Service) Record(ctx context.Context, e *Entry) {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Error().Err(err).
			Str("action", e.Action).
			Str("request_id", e.RequestID).
			Msg("failed to write audit log")
		s.count("failure")
		return
	}
	s.count("success")
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.AuditWritesTotal.WithLabelValues(result).Inc()
	}
}

// Search returns one page of entries, newest first.
func (s *Service) Search(ctx context.Context, f Filter, p pagination.Params) (*Page, error) {
	items, total, err := s.repo.Search(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}
	return &Page{
		Logs:       items,
		Total:      total,
		Page:       p.Page,
		TotalPages: p.TotalPages(total),
	}, nil
}
