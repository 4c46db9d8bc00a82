package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
	"github.com/noah-isme/ebulletin-go-api/internal/utils"
)

const announcementTable = "announcements"

// AnnouncementHandler handles public and admin announcement endpoints.
type AnnouncementHandler struct {
	service       service.AnnouncementService
	logger        zerolog.Logger
	exposeDetails bool
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger, exposeDetails bool) *AnnouncementHandler {
	return &AnnouncementHandler{
		service:       service,
		logger:        logger.With().Str("component", "announcement_handler").Logger(),
		exposeDetails: exposeDetails,
	}
}

// Register wires routes for announcements.
func (h *AnnouncementHandler) Register(router fiber.Router, auditor *middleware.Auditor, guards RouteGuards) {
	router.Get("", h.list)
	router.Get("/:announcementId", h.get)
	router.Post("", chain(guards.Admin, auditor.AuditContentAction(models.AuditActionCreate, announcementTable), h.create)...)
	router.Put("/:announcementId", chain(guards.Admin, auditor.AuditContentAction(models.AuditActionUpdate, announcementTable), h.update)...)
	router.Delete("/:announcementId", chain(guards.Admin, auditor.AuditContentAction(models.AuditActionDelete, announcementTable), h.delete)...)
	router.Patch("/:announcementId/toggle-status", chain(guards.Admin, auditor.AuditContentAction(models.AuditActionToggleStatus, announcementTable), h.toggle)...)
}

func (h *AnnouncementHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	result, err := h.service.ListActive(c.UserContext(), page, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list announcements")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list announcements")
	}

	if result.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}

	return utils.SendSuccess(c, "announcements retrieved", result)
}

func (h *AnnouncementHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "announcementId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid announcement id")
	}
	item, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to load announcement")
	}
	return utils.SendSuccess(c, "announcement retrieved", item)
}

func (h *AnnouncementHandler) create(c *fiber.Ctx) error {
	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "announcement created", item)
}

func (h *AnnouncementHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "announcementId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid announcement id")
	}
	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, previous, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update announcement")
	}
	middleware.SetAuditOldValues(c, previous)
	return utils.SendSuccess(c, "announcement updated", item)
}

func (h *AnnouncementHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "announcementId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid announcement id")
	}

	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to delete announcement")
	}
	middleware.SetAuditOldValues(c, deleted)
	return utils.SendSuccess(c, "announcement deleted", fiber.Map{"id": deleted.ID})
}

func (h *AnnouncementHandler) toggle(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "announcementId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid announcement id")
	}

	item, previous, err := h.service.ToggleStatus(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to toggle announcement")
	}
	middleware.SetAuditOldValues(c, fiber.Map{"is_active": previous.IsActive})
	return utils.SendSuccess(c, "announcement status updated", item)
}

func (h *AnnouncementHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid announcement payload", validationDetails(err))
	case errors.Is(err, service.ErrAnnouncementNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "announcement not found")
	case errors.Is(err, service.ErrAnnouncementWindow):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendInternalError(c, message, err, h.exposeDetails)
	}
}
