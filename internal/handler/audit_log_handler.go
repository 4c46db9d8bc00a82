package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
	"github.com/noah-isme/ebulletin-go-api/internal/utils"
)

const auditTable = "audit_logs"

// AuditLogHandler serves the audit trail to administrators.
type AuditLogHandler struct {
	service       service.AuditLogService
	validator     *validator.Validate
	logger        zerolog.Logger
	exposeDetails bool
}

// NewAuditLogHandler constructs the handler. exposeDetails adds error details to 500 responses.
func NewAuditLogHandler(service service.AuditLogService, validate *validator.Validate, logger zerolog.Logger, exposeDetails bool) *AuditLogHandler {
	return &AuditLogHandler{
		service:       service,
		validator:     validate,
		logger:        logger.With().Str("component", "audit_log_handler").Logger(),
		exposeDetails: exposeDetails,
	}
}

// Register wires the audit routes. Static paths precede /:logId so they are not shadowed.
func (h *AuditLogHandler) Register(router fiber.Router, auditor *middleware.Auditor, guards RouteGuards) {
	readAudit := auditor.AuditAdminAction(models.AuditActionRead, auditTable)

	router.Get("/", readAudit, h.list)
	router.Get("/stats", h.stats)
	router.Get("/summary", h.summary)
	router.Get("/export", auditor.AuditAdminAction(models.AuditActionExport, auditTable), h.export)
	router.Get("/user/:userId", h.byUser)
	router.Get("/table/:tableName", h.byTable)
	router.Delete("/cleanup", chain(guards.SuperAdmin, h.cleanup)...)
	router.Get("/:logId", readAudit, h.get)
}

func (h *AuditLogHandler) list(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GetAuditLogs(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err, "failed to retrieve audit logs")
	}
	return utils.SendList(c, "audit logs retrieved", result.Items, result.Pagination, result.Filters)
}

func (h *AuditLogHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "logId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid audit log id")
	}

	entry, err := h.service.GetAuditLogByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrAuditLogNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "audit log not found")
		}
		return h.fail(c, err, "failed to retrieve audit log")
	}
	return utils.SendSuccess(c, "audit log retrieved", entry)
}

func (h *AuditLogHandler) stats(c *fiber.Ctx) error {
	start, err := parseDateQuery(c, "start_date", false)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	end, err := parseDateQuery(c, "end_date", true)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.service.GetAuditStats(c.UserContext(), start, end)
	if err != nil {
		return h.fail(c, err, "failed to retrieve audit statistics")
	}
	return utils.SendSuccess(c, "audit statistics retrieved", stats)
}

func (h *AuditLogHandler) summary(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid days")
	}

	summary, err := h.service.GetAuditSummary(c.UserContext(), days)
	if err != nil {
		return h.fail(c, err, "failed to retrieve audit summary")
	}
	return utils.SendSuccess(c, "audit summary retrieved", summary)
}

func (h *AuditLogHandler) export(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	export, err := h.service.ExportAuditLogs(c.UserContext(), req, c.Query("format", service.ExportFormatJSON))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedExportFormat) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return h.fail(c, err, "failed to export audit logs")
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Set("X-Export-Count", fmt.Sprintf("%d", export.Count))
	return c.Status(fiber.StatusOK).Send(export.Content)
}

func (h *AuditLogHandler) byUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GetUserAuditLogs(c.UserContext(), c.Query("user_type"), userID, req)
	if err != nil {
		return h.fail(c, err, "failed to retrieve user audit logs")
	}
	return utils.SendList(c, "user audit logs retrieved", result.Items, result.Pagination, result.Filters)
}

func (h *AuditLogHandler) byTable(c *fiber.Ctx) error {
	table := strings.TrimSpace(c.Params("tableName"))
	if table == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "table name is required")
	}
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GetTableAuditLogs(c.UserContext(), strings.Clone(table), req)
	if err != nil {
		return h.fail(c, err, "failed to retrieve table audit logs")
	}
	return utils.SendList(c, "table audit logs retrieved", result.Items, result.Pagination, result.Filters)
}

func (h *AuditLogHandler) cleanup(c *fiber.Ctx) error {
	var payload dto.AuditCleanupRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "days_to_keep must be between 30 and 3650", validationDetails(err))
	}

	deleted, err := h.service.CleanupOldLogs(c.UserContext(), payload.DaysToKeep)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRetention) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return h.fail(c, err, "failed to clean up audit logs")
	}

	requestLogger(h.logger, c).Info().
		Int64("deleted", deleted).
		Int("days_to_keep", payload.DaysToKeep).
		Str("actor", actorFromContext(c).Label()).
		Msg("audit cleanup completed")

	return utils.SendSuccess(c, "audit logs cleaned up", dto.AuditCleanupResponse{
		DeletedCount: deleted,
		DaysToKeep:   payload.DaysToKeep,
	})
}

func (h *AuditLogHandler) listRequest(c *fiber.Ctx) (dto.AuditLogListRequest, error) {
	req := dto.AuditLogListRequest{
		UserType:    strings.ToLower(strings.TrimSpace(c.Query("user_type"))),
		ActionType:  strings.TrimSpace(c.Query("action_type")),
		TargetTable: strings.TrimSpace(c.Query("target_table")),
		Search:      strings.TrimSpace(c.Query("search")),
		SortBy:      strings.TrimSpace(c.Query("sort_by")),
		SortOrder:   strings.TrimSpace(c.Query("sort_order")),
	}

	var err error
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return req, errors.New("invalid page")
	}
	if req.Limit, err = parseQueryInt(c, "limit"); err != nil {
		return req, errors.New("invalid limit")
	}
	userID, err := parseQueryInt(c, "user_id")
	if err != nil || userID < 0 {
		return req, errors.New("invalid user_id")
	}
	req.UserID = uint(userID)

	if req.StartDate, err = parseDateQuery(c, "start_date", false); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDateQuery(c, "end_date", true); err != nil {
		return req, err
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return req, errors.New("end_date must not precede start_date")
	}

	return req, nil
}

func (h *AuditLogHandler) fail(c *fiber.Ctx, err error, message string) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
	}
	requestLogger(h.logger, c).Error().Err(err).Msg(message)
	return utils.SendInternalError(c, message, err, h.exposeDetails)
}
