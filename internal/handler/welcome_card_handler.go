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

const welcomeCardTable = "welcome_cards"

// WelcomeCardHandler serves the welcome page cards.
type WelcomeCardHandler struct {
	service       service.WelcomeCardService
	logger        zerolog.Logger
	exposeDetails bool
}

// NewWelcomeCardHandler constructs the handler.
func NewWelcomeCardHandler(service service.WelcomeCardService, logger zerolog.Logger, exposeDetails bool) *WelcomeCardHandler {
	return &WelcomeCardHandler{
		service:       service,
		logger:        logger.With().Str("component", "welcome_card_handler").Logger(),
		exposeDetails: exposeDetails,
	}
}

// Register wires the welcome card routes. /reorder is registered before /:cardId.
func (h *WelcomeCardHandler) Register(router fiber.Router, auditor *middleware.Auditor, guards RouteGuards) {
	router.Get("", h.list)
	router.Get("/all", chain(guards.Admin, h.listAll)...)
	reorderAudit := auditor.AuditCRUD(welcomeCardTable, middleware.AuditOptions{
		Action:    models.AuditActionReorder,
		NewValues: func(snap middleware.AuditSnapshot) interface{} { return snap.Body },
	})
	router.Put("/reorder", chain(guards.Admin, reorderAudit, h.reorder)...)
	router.Post("", chain(guards.Admin, auditor.AuditCRUD(welcomeCardTable), h.create)...)
	router.Put("/:cardId", chain(guards.Admin, auditor.AuditCRUD(welcomeCardTable), h.update)...)
	router.Delete("/:cardId", chain(guards.Admin, auditor.AuditCRUD(welcomeCardTable), h.delete)...)
}

func (h *WelcomeCardHandler) list(c *fiber.Ctx) error {
	cards, err := h.service.List(c.UserContext(), true)
	if err != nil {
		return h.fail(c, err, "failed to list welcome cards")
	}
	return utils.SendSuccess(c, "welcome cards retrieved", cards)
}

func (h *WelcomeCardHandler) listAll(c *fiber.Ctx) error {
	cards, err := h.service.List(c.UserContext(), false)
	if err != nil {
		return h.fail(c, err, "failed to list welcome cards")
	}
	return utils.SendSuccess(c, "welcome cards retrieved", cards)
}

func (h *WelcomeCardHandler) create(c *fiber.Ctx) error {
	var payload dto.WelcomeCardRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	card, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, err, "failed to create welcome card")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "welcome card created", card)
}

func (h *WelcomeCardHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "cardId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid card id")
	}
	var payload dto.WelcomeCardRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	card, previous, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update welcome card")
	}
	middleware.SetAuditOldValues(c, previous)
	return utils.SendSuccess(c, "welcome card updated", card)
}

func (h *WelcomeCardHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "cardId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid card id")
	}

	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to delete welcome card")
	}
	middleware.SetAuditOldValues(c, deleted)
	return utils.SendSuccess(c, "welcome card deleted", fiber.Map{"id": deleted.ID})
}

func (h *WelcomeCardHandler) reorder(c *fiber.Ctx) error {
	var payload dto.WelcomeCardReorderRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	cards, err := h.service.Reorder(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, err, "failed to reorder welcome cards")
	}
	return utils.SendSuccess(c, "welcome cards reordered", cards)
}

func (h *WelcomeCardHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid welcome card payload", validationDetails(err))
	case errors.Is(err, service.ErrWelcomeCardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "welcome card not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendInternalError(c, message, err, h.exposeDetails)
	}
}
