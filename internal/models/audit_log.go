package models

import "time"

// Audit actor categories stored in audit_logs.user_type.
const (
	AuditUserAdmin   = "admin"
	AuditUserStudent = "student"
	AuditUserSystem  = "system"
)

// Conventional audit action types. The column is free-form; call sites may add their own.
const (
	AuditActionCreate          = "CREATE"
	AuditActionRead            = "READ"
	AuditActionUpdate          = "UPDATE"
	AuditActionDelete          = "DELETE"
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionLogoutAll       = "LOGOUT_ALL"
	AuditActionExport          = "EXPORT"
	AuditActionReorder         = "REORDER"
	AuditActionToggleStatus    = "TOGGLE_STATUS"
	AuditActionRestore         = "RESTORE"
	AuditActionPermanentDelete = "PERMANENT_DELETE"
	AuditActionSecurityEvent   = "SECURITY_EVENT"
	AuditActionCleanup         = "CLEANUP"
	AuditActionUpload          = "UPLOAD"
)

// AuditLog is one immutable record describing one attributed action.
type AuditLog struct {
	LogID       uint      `gorm:"column:log_id;primaryKey" json:"log_id"`
	UserType    string    `gorm:"size:16;not null;index" json:"user_type"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	ActionType  string    `gorm:"size:64;not null;index" json:"action_type"`
	TargetTable string    `gorm:"size:64;not null;index" json:"target_table"`
	TargetID    *uint     `json:"target_id"`
	OldValues   *string   `gorm:"type:text" json:"old_values"`
	NewValues   *string   `gorm:"type:text" json:"new_values"`
	Description string    `gorm:"type:text" json:"description"`
	IPAddress   *string   `gorm:"size:64" json:"ip_address"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent"`
	PerformedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"performed_at"`
}

// TableName pins the audit table name.
func (AuditLog) TableName() string {
	return "audit_logs"
}
