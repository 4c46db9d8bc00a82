package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

// AuditSortColumns lists the columns an audit listing may be ordered by.
var AuditSortColumns = map[string]string{
	"performed_at": "al.performed_at",
	"user_type":    "al.user_type",
	"action_type":  "al.action_type",
	"target_table": "al.target_table",
	"user_id":      "al.user_id",
}

const (
	auditUserNameExpr = "CASE WHEN al.user_type = 'admin' THEN ap.first_name || ' ' || ap.last_name " +
		"WHEN al.user_type = 'student' THEN sp.first_name || ' ' || sp.last_name ELSE 'System' END"
	auditUserEmailExpr = "CASE WHEN al.user_type = 'admin' THEN aa.email " +
		"WHEN al.user_type = 'student' THEN sa.email ELSE NULL END"
)

// AuditLogFilter narrows audit log queries.
type AuditLogFilter struct {
	UserType    string
	UserID      *uint
	ActionType  string
	TargetTable string
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string
	Limit       int
	Offset      int
	SortBy      string
	SortOrder   string
}

// AuditStats holds the aggregate counters for a date range.
type AuditStats struct {
	TotalLogs    int64
	UniqueUsers  int64
	CreateCount  int64
	UpdateCount  int64
	DeleteCount  int64
	LoginCount   int64
	LogoutCount  int64
	AdminCount   int64
	StudentCount int64
	SystemCount  int64
}

// AuditLogRecord is an audit row joined with the actor's display name and email.
type AuditLogRecord struct {
	models.AuditLog
	UserName  *string
	UserEmail *string
}

// AuditLogRepository persists and queries the audit trail. Entries are append-only:
// the only destructive operation is age-based deletion.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) (*AuditLogRecord, error)
	FindByID(ctx context.Context, id uint) (*AuditLogRecord, error)
	List(ctx context.Context, filter AuditLogFilter) ([]AuditLogRecord, int64, error)
	Stats(ctx context.Context, start, end *time.Time) (AuditStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs the audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) (*AuditLogRecord, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return r.FindByID(ctx, entry.LogID)
}

func (r *auditLogRepository) FindByID(ctx context.Context, id uint) (*AuditLogRecord, error) {
	var rows []AuditLogRecord
	err := r.joined(ctx).
		Select(selectColumns()).
		Where("al.log_id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find audit log %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]AuditLogRecord, int64, error) {
	query := applyAuditFilter(r.joined(ctx), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	column, ok := AuditSortColumns[filter.SortBy]
	if !ok {
		column = AuditSortColumns["performed_at"]
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		direction = "ASC"
	}

	list := query.Session(&gorm.Session{}).
		Select(selectColumns()).
		Order(fmt.Sprintf("%s %s, al.log_id %s", column, direction, direction))
	if filter.Limit > 0 {
		list = list.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		list = list.Offset(filter.Offset)
	}

	rows := make([]AuditLogRecord, 0)
	if err := list.Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	return rows, total, nil
}

func (r *auditLogRepository) Stats(ctx context.Context, start, end *time.Time) (AuditStats, error) {
	query := r.db.WithContext(ctx).Table("audit_logs AS al").Select(`
		COUNT(*) AS total_logs,
		COUNT(DISTINCT CASE WHEN al.user_id IS NOT NULL THEN al.user_type || ':' || CAST(al.user_id AS TEXT) END) AS unique_users,
		COALESCE(SUM(CASE WHEN al.action_type = 'CREATE' THEN 1 ELSE 0 END), 0) AS create_count,
		COALESCE(SUM(CASE WHEN al.action_type = 'UPDATE' THEN 1 ELSE 0 END), 0) AS update_count,
		COALESCE(SUM(CASE WHEN al.action_type = 'DELETE' THEN 1 ELSE 0 END), 0) AS delete_count,
		COALESCE(SUM(CASE WHEN al.action_type = 'LOGIN' THEN 1 ELSE 0 END), 0) AS login_count,
		COALESCE(SUM(CASE WHEN al.action_type = 'LOGOUT' THEN 1 ELSE 0 END), 0) AS logout_count,
		COALESCE(SUM(CASE WHEN al.user_type = 'admin' THEN 1 ELSE 0 END), 0) AS admin_count,
		COALESCE(SUM(CASE WHEN al.user_type = 'student' THEN 1 ELSE 0 END), 0) AS student_count,
		COALESCE(SUM(CASE WHEN al.user_type = 'system' THEN 1 ELSE 0 END), 0) AS system_count`)

	if start != nil {
		query = query.Where("al.performed_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("al.performed_at <= ?", *end)
	}

	var stats AuditStats
	if err := query.Scan(&stats).Error; err != nil {
		return AuditStats{}, fmt.Errorf("aggregate audit stats: %w", err)
	}
	return stats, nil
}

func (r *auditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("performed_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete audit logs before %s: %w", cutoff.Format(time.RFC3339), result.Error)
	}
	return result.RowsAffected, nil
}

func (r *auditLogRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("audit_logs AS al").
		Joins("LEFT JOIN admin_accounts aa ON al.user_type = 'admin' AND aa.admin_id = al.user_id").
		Joins("LEFT JOIN admin_profiles ap ON ap.admin_id = aa.admin_id").
		Joins("LEFT JOIN student_accounts sa ON al.user_type = 'student' AND sa.student_id = al.user_id").
		Joins("LEFT JOIN student_profiles sp ON sp.student_id = sa.student_id")
}

func applyAuditFilter(query *gorm.DB, filter AuditLogFilter) *gorm.DB {
	if filter.UserType != "" {
		query = query.Where("al.user_type = ?", filter.UserType)
	}
	if filter.UserID != nil {
		query = query.Where("al.user_id = ?", *filter.UserID)
	}
	if filter.ActionType != "" {
		query = query.Where("al.action_type = ?", filter.ActionType)
	}
	if filter.TargetTable != "" {
		query = query.Where("al.target_table = ?", filter.TargetTable)
	}
	if filter.StartDate != nil {
		query = query.Where("al.performed_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("al.performed_at <= ?", *filter.EndDate)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(al.description) LIKE ? OR LOWER(al.target_table) LIKE ? OR LOWER("+auditUserNameExpr+") LIKE ? OR LOWER("+auditUserEmailExpr+") LIKE ?)",
			like, like, like, like,
		)
	}
	return query
}

func selectColumns() string {
	return "al.*, " + auditUserNameExpr + " AS user_name, " + auditUserEmailExpr + " AS user_email"
}
