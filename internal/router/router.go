package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ebulletin-go-api/internal/config"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/observability"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
)

const superAdminPosition = "super_admin"

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Auditor             *middleware.Auditor
	JWT                 middleware.JWTConfig
	LoginLimiter        fiber.Handler
	AuthHandler         *handler.AuthHandler
	AuditLogHandler     *handler.AuditLogHandler
	AnnouncementHandler *handler.AnnouncementHandler
	WelcomeCardHandler  *handler.WelcomeCardHandler
	UploadHandler       *handler.UploadHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	guards := buildGuards(deps)

	loginLimiter := deps.LoginLimiter
	if loginLimiter == nil {
		loginLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.Auditor, guards, loginLimiter)
	}
	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(api.Group("/announcements"), deps.Auditor, guards)
	}
	if deps.WelcomeCardHandler != nil {
		deps.WelcomeCardHandler.Register(api.Group("/welcome-cards"), deps.Auditor, guards)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(api.Group("/files"), deps.Auditor, guards)
	}
	if deps.AuditLogHandler != nil {
		auditLogs := api.Group("/audit-logs", guards.Admin...)
		deps.AuditLogHandler.Register(auditLogs, deps.Auditor, guards)
	}
}

// buildGuards derives the guard chains. Rejected tokens and denied access are
// recorded as security events unless the caller supplied its own hooks.
func buildGuards(deps Dependencies) handler.RouteGuards {
	jwtCfg := deps.JWT
	if jwtCfg.OnReject == nil && deps.Auditor != nil {
		jwtCfg.OnReject = func(c *fiber.Ctx, reason string) {
			deps.Auditor.RecordSecurityEvent(c, "TOKEN_REJECTED", "medium", map[string]interface{}{"reason": reason})
		}
	}

	policy := middleware.AccessPolicy{}
	if deps.Auditor != nil {
		policy.OnDenied = func(c *fiber.Ctx, reason string) {
			deps.Auditor.RecordSecurityEvent(c, "ACCESS_DENIED", "high", map[string]interface{}{"reason": reason})
		}
	}

	authenticated := middleware.JWTProtected(jwtCfg)
	admin := policy.RequireRole(string(service.ActorAdmin))

	return handler.RouteGuards{
		Authenticated: []fiber.Handler{authenticated},
		Admin:         []fiber.Handler{authenticated, admin},
		SuperAdmin:    []fiber.Handler{policy.RequirePosition(superAdminPosition)},
	}
}
