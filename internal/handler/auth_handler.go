package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
	"github.com/noah-isme/ebulletin-go-api/internal/utils"
)

// AuthHandler exposes login and logout endpoints.
type AuthHandler struct {
	service       service.AuthService
	logger        zerolog.Logger
	exposeDetails bool
}

// NewAuthHandler constructs the authentication handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger, exposeDetails bool) *AuthHandler {
	return &AuthHandler{
		service:       service,
		logger:        logger.With().Str("component", "auth_handler").Logger(),
		exposeDetails: exposeDetails,
	}
}

// Register wires the auth routes. loginLimiter throttles both login endpoints.
func (h *AuthHandler) Register(router fiber.Router, auditor *middleware.Auditor, guards RouteGuards, loginLimiter fiber.Handler) {
	router.Post("/admin/login", loginLimiter, auditor.AuditAuth(models.AuditActionLogin), h.adminLogin)
	router.Post("/student/login", loginLimiter, auditor.AuditAuth(models.AuditActionLogin), h.studentLogin)
	router.Post("/logout", chain(guards.Authenticated, auditor.AuditAuth(models.AuditActionLogout), h.logout)...)
	router.Post("/logout-all", chain(guards.Authenticated, auditor.AuditAuth(models.AuditActionLogoutAll), h.logoutAll)...)
	router.Get("/me", chain(guards.Authenticated, middleware.WithAuth(h.me, middleware.AuthOptions{RequireUser: true}))...)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "current principal", actorFromContext(c))
}

func (h *AuthHandler) adminLogin(c *fiber.Ctx) error {
	var payload dto.AdminLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.AdminLogin(c.UserContext(), payload)
	if err != nil {
		return h.loginError(c, err)
	}
	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) studentLogin(c *fiber.Ctx) error {
	var payload dto.StudentLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.StudentLogin(c.UserContext(), payload)
	if err != nil {
		return h.loginError(c, err)
	}
	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	resp, err := h.service.Logout(c.UserContext(), actorFromContext(c), session)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("logout failed")
		return utils.SendInternalError(c, "logout failed", err, h.exposeDetails)
	}
	return utils.SendSuccess(c, "logout successful", resp)
}

func (h *AuthHandler) logoutAll(c *fiber.Ctx) error {
	resp, err := h.service.LogoutAll(c.UserContext(), actorFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("logout all failed")
		return utils.SendInternalError(c, "logout failed", err, h.exposeDetails)
	}
	return utils.SendSuccess(c, "all sessions revoked", resp)
}

func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid credentials payload", validationDetails(err))
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrAccountInactive):
		return utils.SendError(c, fiber.StatusForbidden, "account is inactive")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
		return utils.SendInternalError(c, "login failed", err, h.exposeDetails)
	}
}
