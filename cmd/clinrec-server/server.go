package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinrec/clinrec/internal/config"
	"github.com/clinrec/clinrec/internal/domain/auditlog"
	"github.com/clinrec/clinrec/internal/domain/medicalrecord"
	"github.com/clinrec/clinrec/internal/domain/patient"
	"github.com/clinrec/clinrec/internal/domain/user"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/db"
	"github.com/clinrec/clinrec/internal/platform/httperr"
	"github.com/clinrec/clinrec/internal/platform/middleware"
	"github.com/clinrec/clinrec/internal/platform/telemetry"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

// services is everything the router needs besides configuration.
type services struct {
	tokens   *auth.TokenManager
	users    *user.Service
	audit    *auditlog.Service
	patients *patient.Service
	records  *medicalrecord.Service
	database db.Pinger
	metrics  *telemetry.Metrics
	tracer   trace.TracerProvider
}

type repositories struct {
	users    user.Repository
	patients patient.Repository
	records  medicalrecord.Repository
	audit    auditlog.Repository
	tx       db.Beginner
}

func newServices(cfg *config.Config, repos repositories, logger zerolog.Logger, metrics *telemetry.Metrics) *services {
	tokens := auth.NewTokenManager(cfg.SigningKey(), cfg.JWTIssuer, cfg.JWTTTL)
	audit := auditlog.NewService(repos.audit, logger).WithMetrics(metrics)
	return &services{
		tokens: tokens,
		users: user.NewService(repos.users, tokens, user.Options{
			MaxAttempts:  cfg.LoginMaxAttempts,
			LockDuration: cfg.LoginLockDuration,
			BcryptCost:   cfg.BcryptCost,
		}, logger),
		audit:    audit,
		patients: patient.NewService(repos.patients),
		records:  medicalrecord.NewService(repos.records, repos.patients, repos.tx),
		metrics:  metrics,
	}
}

func newRouter(cfg *config.Config, logger zerolog.Logger, svc *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = httperr.Handler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(echomw.Gzip())
	if svc.metrics != nil {
		e.Use(svc.metrics.Middleware())
	}
	if svc.tracer != nil {
		e.Use(telemetry.TracingMiddleware(svc.tracer))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", healthHandler(cfg))
	if svc.database != nil {
		e.GET("/health/db", db.HealthHandler(svc.database, logger))
	}
	if svc.metrics != nil {
		e.GET("/metrics", svc.metrics.Handler())
	}

	api := e.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Message:  middleware.DefaultRateLimitConfig().Message,
	}))

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.AuthRateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Message:  middleware.AuthRateLimitConfig().Message,
	}))
	user.NewHandler(svc.users, svc.audit).WithMetrics(svc.metrics).RegisterRoutes(authGroup)

	protected := api.Group("", auth.JWTMiddleware(auth.JWTConfig{
		Tokens:  svc.tokens,
		Users:   svc.users,
		Auditor: svc.audit,
	}))
	authz := auth.NewAuthorizer(svc.audit)
	patient.NewHandler(svc.patients, svc.audit).WithMetrics(svc.metrics).RegisterRoutes(protected, authz)
	medicalrecord.NewHandler(svc.records, svc.audit).WithMetrics(svc.metrics).RegisterRoutes(protected, authz)
	auditlog.NewHandler(svc.audit).RegisterRoutes(protected, authz)

	return e
}

func healthHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"version":     cfg.AppVersion,
			"environment": cfg.Env,
		})
	}
}
