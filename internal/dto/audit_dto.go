package dto

import "time"

// AuditLogListRequest captures filters and paging for audit log queries.
type AuditLogListRequest struct {
	UserType    string `validate:"omitempty,oneof=admin student system"`
	UserID      uint
	ActionType  string `validate:"omitempty,max=64"`
	TargetTable string `validate:"omitempty,max=64"`
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string `validate:"omitempty,max=255"`
	Page        int    `validate:"gte=0"`
	Limit       int    `validate:"gte=0,lte=10000"`
	SortBy      string `validate:"omitempty,oneof=performed_at user_type action_type target_table user_id"`
	SortOrder   string `validate:"omitempty,oneof=ASC DESC asc desc"`
}

// AuditLogResponse serializes one audit entry with the resolved actor.
type AuditLogResponse struct {
	LogID       uint        `json:"log_id"`
	UserType    string      `json:"user_type"`
	UserID      *uint       `json:"user_id"`
	UserName    *string     `json:"user_name"`
	UserEmail   *string     `json:"user_email"`
	ActionType  string      `json:"action_type"`
	TargetTable string      `json:"target_table"`
	TargetID    *uint       `json:"target_id"`
	OldValues   interface{} `json:"old_values"`
	NewValues   interface{} `json:"new_values"`
	Description string      `json:"description"`
	IPAddress   *string     `json:"ip_address"`
	UserAgent   *string     `json:"user_agent"`
	PerformedAt time.Time   `json:"performed_at"`
}

// AuditPaginationMeta describes a page of audit results.
type AuditPaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	PerPage      int   `json:"per_page"`
	TotalRecords int64 `json:"total_records"`
	TotalPages   int   `json:"total_pages"`
	HasNextPage  bool  `json:"has_next_page"`
	HasPrevPage  bool  `json:"has_prev_page"`
}

// AuditLogListResponse wraps a page of audit entries.
type AuditLogListResponse struct {
	Items      []AuditLogResponse     `json:"items"`
	Pagination AuditPaginationMeta    `json:"pagination"`
	Filters    map[string]interface{} `json:"filters"`
}

// AuditStatsResponse aggregates audit counts over a date range.
type AuditStatsResponse struct {
	TotalLogs    int64 `json:"total_logs"`
	UniqueUsers  int64 `json:"unique_users"`
	CreateCount  int64 `json:"create_count"`
	UpdateCount  int64 `json:"update_count"`
	DeleteCount  int64 `json:"delete_count"`
	LoginCount   int64 `json:"login_count"`
	LogoutCount  int64 `json:"logout_count"`
	AdminCount   int64 `json:"admin_count"`
	StudentCount int64 `json:"student_count"`
	SystemCount  int64 `json:"system_count"`
}

// AuditSummaryResponse is a rolling-window overview for dashboards.
type AuditSummaryResponse struct {
	Days          int                `json:"days"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	Stats         AuditStatsResponse `json:"stats"`
	RecentDeletes []AuditLogResponse `json:"recent_deletes"`
}

// AuditCleanupRequest carries the retention window for a manual cleanup.
type AuditCleanupRequest struct {
	DaysToKeep int `json:"days_to_keep" validate:"required,min=30,max=3650"`
}

// AuditCleanupResponse reports the outcome of a cleanup.
type AuditCleanupResponse struct {
	DeletedCount int64 `json:"deleted_count"`
	DaysToKeep   int   `json:"days_to_keep"`
}

// AuditExport is a serialized audit export ready to be sent as a download.
type AuditExport struct {
	FileName    string
	ContentType string
	Content     []byte
	Count       int
}
