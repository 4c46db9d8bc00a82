package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/observability"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
)

const (
	defaultAuditPageSize = 50
	maxAuditExportRows   = 10000
	minRetentionDays     = 30
	maxRetentionDays     = 3650
	summaryRecentDeletes = 10
	unknownRequestValue  = "unknown"
)

var (
	// ErrAuditLogNotFound indicates the requested entry does not exist.
	ErrAuditLogNotFound = errors.New("audit log not found")
	// ErrUnsupportedExportFormat indicates an export format other than json or csv.
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	// ErrInvalidRetention indicates a retention window outside 30..3650 days.
	ErrInvalidRetention = errors.New("days to keep must be between 30 and 3650")
)

// RequestMeta carries the originating request details recorded with an entry.
type RequestMeta struct {
	IP         string
	RemoteAddr string
	UserAgent  string
}

// LogActionInput is the full shape accepted by LogAction.
type LogActionInput struct {
	Actor       Actor
	ActionType  string
	TargetTable string
	TargetID    *uint
	OldValues   interface{}
	NewValues   interface{}
	Description string
	IPAddress   string
	UserAgent   string
	Request     *RequestMeta
}

// AuditEvent is the common input of the helper loggers.
type AuditEvent struct {
	Actor       Actor
	Action      string
	Table       string
	TargetID    *uint
	OldValues   interface{}
	NewValues   interface{}
	Description string
	Request     *RequestMeta
}

// AuthEvent describes a login or logout attempt.
type AuthEvent struct {
	Actor      Actor
	Action     string
	Identifier string
	Success    bool
	Reason     string
	Request    *RequestMeta
}

// FileInfo describes an uploaded file for file audit entries.
type FileInfo struct {
	Name     string `json:"file_name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// AuditPublisher fans persisted entries out to other systems.
type AuditPublisher interface {
	Publish(ctx context.Context, entry dto.AuditLogResponse) error
}

// AuditArchiver stores rows before retention removes them.
type AuditArchiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

// AuditLogService is the single entry point for writing and reading the audit trail.
type AuditLogService interface {
	LogAction(ctx context.Context, input LogActionInput) *dto.AuditLogResponse
	LogAuth(ctx context.Context, event AuthEvent) *dto.AuditLogResponse
	LogCRUD(ctx context.Context, event AuditEvent) *dto.AuditLogResponse
	LogAdminAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse
	LogStudentAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse
	LogContentAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse
	LogFileAction(ctx context.Context, actor Actor, action string, file FileInfo, meta *RequestMeta) *dto.AuditLogResponse
	LogSystemEvent(ctx context.Context, action, description string, details interface{}) *dto.AuditLogResponse
	LogSecurityEvent(ctx context.Context, event, severity string, details interface{}, meta *RequestMeta) *dto.AuditLogResponse

	GetAuditLogs(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
	GetAuditLogByID(ctx context.Context, id uint) (dto.AuditLogResponse, error)
	GetAuditStats(ctx context.Context, start, end *time.Time) (dto.AuditStatsResponse, error)
	GetAuditSummary(ctx context.Context, days int) (dto.AuditSummaryResponse, error)
	GetUserAuditLogs(ctx context.Context, userType string, userID uint, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
	GetTableAuditLogs(ctx context.Context, table string, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
	ExportAuditLogs(ctx context.Context, req dto.AuditLogListRequest, format string) (dto.AuditExport, error)
	CleanupOldLogs(ctx context.Context, daysToKeep int) (int64, error)
}

type auditLogService struct {
	repo      repository.AuditLogRepository
	validator *validator.Validate
	publisher AuditPublisher
	archiver  AuditArchiver
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAuditLogService constructs the audit log service. Publisher and archiver are optional.
func NewAuditLogService(repo repository.AuditLogRepository, validate *validator.Validate, publisher AuditPublisher, archiver AuditArchiver, logger zerolog.Logger) AuditLogService {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &auditLogService{
		repo:      repo,
		validator: validate,
		publisher: publisher,
		archiver:  archiver,
		logger:    logger.With().Str("component", "audit_log_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/ebulletin-go-api/internal/service/audit"),
		now:       time.Now,
	}
}

func (s *auditLogService) LogAction(ctx context.Context, input LogActionInput) *dto.AuditLogResponse {
	ctx, span := s.tracer.Start(ctx, "audit.log_action")
	defer span.End()

	entry := models.AuditLog{
		UserType:    input.Actor.UserType(),
		UserID:      input.Actor.UserID(),
		ActionType:  strings.ToUpper(strings.TrimSpace(input.ActionType)),
		TargetTable: strings.TrimSpace(input.TargetTable),
		TargetID:    input.TargetID,
		OldValues:   s.encodeValues(input.OldValues),
		NewValues:   s.encodeValues(input.NewValues),
		Description: input.Description,
	}

	ip, agent := resolveRequestMeta(input)
	entry.IPAddress = &ip
	entry.UserAgent = &agent

	span.SetAttributes(
		attribute.String("audit.action", entry.ActionType),
		attribute.String("audit.table", entry.TargetTable),
		attribute.String("audit.user_type", entry.UserType),
	)

	record, err := s.repo.Create(ctx, &entry)
	if err != nil {
		observability.AuditWrites().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.Error().Err(err).
			Str("action_type", entry.ActionType).
			Str("target_table", entry.TargetTable).
			Msg("failed to persist audit log")
		return nil
	}

	observability.AuditWrites().WithLabelValues("ok").Inc()
	span.SetStatus(codes.Ok, "persisted")

	response := mapAuditRecord(*record)

	event := s.logger.Info().
		Uint("log_id", response.LogID).
		Str("user_type", response.UserType).
		Str("action_type", response.ActionType).
		Str("target_table", response.TargetTable).
		Str("description", response.Description).
		Str("ip_address", ip)
	if response.UserID != nil {
		event = event.Uint("user_id", *response.UserID)
	}
	if response.TargetID != nil {
		event = event.Uint("target_id", *response.TargetID)
	}
	event.Msg("audit log recorded")

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, response); err != nil {
			s.logger.Warn().Err(err).Uint("log_id", response.LogID).Msg("failed to publish audit log")
		}
	}

	return &response
}

func (s *auditLogService) LogAuth(ctx context.Context, event AuthEvent) *dto.AuditLogResponse {
	return s.LogAction(ctx, AuthEntry(event))
}

func (s *auditLogService) LogCRUD(ctx context.Context, event AuditEvent) *dto.AuditLogResponse {
	return s.LogAction(ctx, CRUDEntry(event))
}

func (s *auditLogService) LogAdminAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse {
	return s.LogAction(ctx, AdminEntry(event))
}

func (s *auditLogService) LogStudentAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse {
	return s.LogAction(ctx, StudentEntry(event))
}

func (s *auditLogService) LogContentAction(ctx context.Context, event AuditEvent) *dto.AuditLogResponse {
	return s.LogAction(ctx, ContentEntry(event))
}

func (s *auditLogService) LogFileAction(ctx context.Context, actor Actor, action string, file FileInfo, meta *RequestMeta) *dto.AuditLogResponse {
	return s.LogAction(ctx, FileEntry(actor, action, file, meta))
}

func (s *auditLogService) LogSystemEvent(ctx context.Context, action, description string, details interface{}) *dto.AuditLogResponse {
	return s.LogAction(ctx, SystemEntry(action, description, details))
}

func (s *auditLogService) LogSecurityEvent(ctx context.Context, event, severity string, details interface{}, meta *RequestMeta) *dto.AuditLogResponse {
	return s.LogAction(ctx, SecurityEntry(event, severity, details, meta))
}

func (s *auditLogService) GetAuditLogs(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuditLogListResponse{}, err
	}

	page, limit := normalizeAuditPage(req.Page, req.Limit)
	filter := auditFilterFromRequest(req)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list audit logs")
		return dto.AuditLogListResponse{}, err
	}

	items := make([]dto.AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAuditRecord(row))
	}

	return dto.AuditLogListResponse{
		Items:      items,
		Pagination: buildAuditPagination(page, limit, total),
		Filters:    describeAuditFilters(req),
	}, nil
}

func (s *auditLogService) GetAuditLogByID(ctx context.Context, id uint) (dto.AuditLogResponse, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuditLogResponse{}, ErrAuditLogNotFound
		}
		s.logger.Error().Err(err).Uint("log_id", id).Msg("failed to load audit log")
		return dto.AuditLogResponse{}, err
	}
	return mapAuditRecord(*record), nil
}

func (s *auditLogService) GetAuditStats(ctx context.Context, start, end *time.Time) (dto.AuditStatsResponse, error) {
	stats, err := s.repo.Stats(ctx, start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to aggregate audit stats")
		return dto.AuditStatsResponse{}, err
	}
	return dto.AuditStatsResponse{
		TotalLogs:    stats.TotalLogs,
		UniqueUsers:  stats.UniqueUsers,
		CreateCount:  stats.CreateCount,
		UpdateCount:  stats.UpdateCount,
		DeleteCount:  stats.DeleteCount,
		LoginCount:   stats.LoginCount,
		LogoutCount:  stats.LogoutCount,
		AdminCount:   stats.AdminCount,
		StudentCount: stats.StudentCount,
		SystemCount:  stats.SystemCount,
	}, nil
}

func (s *auditLogService) GetAuditSummary(ctx context.Context, days int) (dto.AuditSummaryResponse, error) {
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		days = 365
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := s.GetAuditStats(ctx, &from, &to)
	if err != nil {
		return dto.AuditSummaryResponse{}, err
	}

	rows, _, err := s.repo.List(ctx, repository.AuditLogFilter{
		ActionType: models.AuditActionDelete,
		StartDate:  &from,
		EndDate:    &to,
		Limit:      summaryRecentDeletes,
		SortBy:     "performed_at",
		SortOrder:  "DESC",
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list recent deletes")
		return dto.AuditSummaryResponse{}, err
	}

	deletes := make([]dto.AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		deletes = append(deletes, mapAuditRecord(row))
	}

	return dto.AuditSummaryResponse{
		Days:          days,
		From:          from,
		To:            to,
		Stats:         stats,
		RecentDeletes: deletes,
	}, nil
}

func (s *auditLogService) GetUserAuditLogs(ctx context.Context, userType string, userID uint, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	req.UserID = userID
	if strings.TrimSpace(userType) != "" {
		req.UserType = strings.ToLower(strings.TrimSpace(userType))
	}
	return s.GetAuditLogs(ctx, req)
}

func (s *auditLogService) GetTableAuditLogs(ctx context.Context, table string, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	req.TargetTable = strings.TrimSpace(table)
	return s.GetAuditLogs(ctx, req)
}

func (s *auditLogService) CleanupOldLogs(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep < minRetentionDays || daysToKeep > maxRetentionDays {
		return 0, ErrInvalidRetention
	}

	ctx, span := s.tracer.Start(ctx, "audit.cleanup")
	defer span.End()
	span.SetAttributes(attribute.Int("audit.days_to_keep", daysToKeep))

	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -daysToKeep)

	if s.archiver != nil {
		if err := s.archiveBefore(ctx, cutoff, now); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "archive failed")
			s.logger.Error().Err(err).Msg("audit archive failed, cleanup aborted")
			return 0, err
		}
	}

	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to clean up audit logs")
		return 0, err
	}

	observability.AuditCleanupDeleted().Add(float64(deleted))
	span.SetAttributes(attribute.Int64("audit.deleted", deleted))
	span.SetStatus(codes.Ok, "cleaned")

	s.LogSystemEvent(ctx, models.AuditActionCleanup,
		fmt.Sprintf("Audit log cleanup deleted %d entries older than %d days", deleted, daysToKeep),
		map[string]interface{}{"deleted_count": deleted, "days_to_keep": daysToKeep, "cutoff": cutoff},
	)

	return deleted, nil
}

func (s *auditLogService) archiveBefore(ctx context.Context, cutoff, now time.Time) error {
	end := cutoff.Add(-time.Nanosecond)
	const batch = 1000

	archived := make([]dto.AuditLogResponse, 0)
	for offset := 0; ; offset += batch {
		rows, _, err := s.repo.List(ctx, repository.AuditLogFilter{
			EndDate:   &end,
			Limit:     batch,
			Offset:    offset,
			SortBy:    "performed_at",
			SortOrder: "ASC",
		})
		if err != nil {
			return fmt.Errorf("collect audit rows for archive: %w", err)
		}
		for _, row := range rows {
			archived = append(archived, mapAuditRecord(row))
		}
		if len(rows) < batch {
			break
		}
	}

	if len(archived) == 0 {
		return nil
	}

	payload, err := json.Marshal(archived)
	if err != nil {
		return fmt.Errorf("encode audit archive: %w", err)
	}

	key := fmt.Sprintf("audit-archive/%s.json", now.Format("20060102T150405Z"))
	if err := s.archiver.Archive(ctx, key, payload); err != nil {
		return fmt.Errorf("archive audit rows: %w", err)
	}

	s.logger.Info().Str("key", key).Int("rows", len(archived)).Msg("audit rows archived")
	return nil
}

func (s *auditLogService) encodeValues(value interface{}) *string {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case json.RawMessage:
		if len(v) == 0 {
			return nil
		}
		raw = v
	case []byte:
		if len(v) == 0 || !json.Valid(v) {
			return nil
		}
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			s.logger.Warn().Err(err).Msg("audit values are not serializable")
			return nil
		}
		raw = encoded
	}

	if string(raw) == "null" {
		return nil
	}
	text := string(raw)
	return &text
}

// Input converts the event into a LogAction input without any defaults applied.
func (e AuditEvent) Input() LogActionInput {
	return LogActionInput{
		Actor:       e.Actor,
		ActionType:  e.Action,
		TargetTable: e.Table,
		TargetID:    e.TargetID,
		OldValues:   e.OldValues,
		NewValues:   e.NewValues,
		Description: e.Description,
		Request:     e.Request,
	}
}

func resolveRequestMeta(input LogActionInput) (string, string) {
	ip := strings.TrimSpace(input.IPAddress)
	agent := strings.TrimSpace(input.UserAgent)
	if input.Request != nil {
		if ip == "" {
			ip = strings.TrimSpace(input.Request.IP)
		}
		if ip == "" {
			ip = strings.TrimSpace(input.Request.RemoteAddr)
		}
		if agent == "" {
			agent = strings.TrimSpace(input.Request.UserAgent)
		}
	}
	if ip == "" {
		ip = unknownRequestValue
	}
	if agent == "" {
		agent = unknownRequestValue
	}
	return ip, agent
}

func mapAuditRecord(record repository.AuditLogRecord) dto.AuditLogResponse {
	return dto.AuditLogResponse{
		LogID:       record.LogID,
		UserType:    record.UserType,
		UserID:      record.UserID,
		UserName:    record.UserName,
		UserEmail:   record.UserEmail,
		ActionType:  record.ActionType,
		TargetTable: record.TargetTable,
		TargetID:    record.TargetID,
		OldValues:   decodeValues(record.OldValues),
		NewValues:   decodeValues(record.NewValues),
		Description: record.Description,
		IPAddress:   record.IPAddress,
		UserAgent:   record.UserAgent,
		PerformedAt: record.PerformedAt,
	}
}

// decodeValues treats unparsable stored JSON as absent.
func decodeValues(raw *string) interface{} {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(*raw), &value); err != nil {
		return nil
	}
	return value
}

func normalizeAuditPage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditExportRows {
		limit = maxAuditExportRows
	}
	return page, limit
}

func buildAuditPagination(page, limit int, total int64) dto.AuditPaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return dto.AuditPaginationMeta{
		CurrentPage:  page,
		PerPage:      limit,
		TotalRecords: total,
		TotalPages:   totalPages,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

func auditFilterFromRequest(req dto.AuditLogListRequest) repository.AuditLogFilter {
	filter := repository.AuditLogFilter{
		UserType:    strings.ToLower(strings.TrimSpace(req.UserType)),
		ActionType:  strings.ToUpper(strings.TrimSpace(req.ActionType)),
		TargetTable: strings.TrimSpace(req.TargetTable),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Search:      strings.TrimSpace(req.Search),
		SortBy:      req.SortBy,
		SortOrder:   strings.ToUpper(req.SortOrder),
	}
	if req.UserID > 0 {
		id := req.UserID
		filter.UserID = &id
	}
	return filter
}

func describeAuditFilters(req dto.AuditLogListRequest) map[string]interface{} {
	filters := map[string]interface{}{}
	if req.UserType != "" {
		filters["user_type"] = req.UserType
	}
	if req.UserID > 0 {
		filters["user_id"] = req.UserID
	}
	if req.ActionType != "" {
		filters["action_type"] = req.ActionType
	}
	if req.TargetTable != "" {
		filters["target_table"] = req.TargetTable
	}
	if req.StartDate != nil {
		filters["start_date"] = req.StartDate.UTC().Format(time.RFC3339)
	}
	if req.EndDate != nil {
		filters["end_date"] = req.EndDate.UTC().Format(time.RFC3339)
	}
	if req.Search != "" {
		filters["search"] = req.Search
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "performed_at"
	}
	sortOrder := strings.ToUpper(req.SortOrder)
	if sortOrder != "ASC" {
		sortOrder = "DESC"
	}
	filters["sort_by"] = sortBy
	filters["sort_order"] = sortOrder
	return filters
}

func crudVerb(action string) string {
	switch strings.ToUpper(action) {
	case models.AuditActionCreate:
		return "created"
	case models.AuditActionUpdate:
		return "updated"
	case models.AuditActionDelete:
		return "deleted"
	case models.AuditActionRead:
		return "accessed"
	default:
		return "performed " + strings.ToUpper(action) + " on"
	}
}

func idSuffix(prefix string, id *uint) string {
	if id == nil {
		return ""
	}
	if strings.HasSuffix(prefix, "(ID: ") {
		return fmt.Sprintf("%s%d)", prefix, *id)
	}
	return fmt.Sprintf("%s%d", prefix, *id)
}
