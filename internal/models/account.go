package models

import "time"

// Admin positions with elevated privileges.
const (
	AdminPositionSuperAdmin = "super_admin"
	AdminPositionAdmin      = "admin"
)

// AdminAccount holds admin login credentials.
type AdminAccount struct {
	AdminID      uint          `gorm:"column:admin_id;primaryKey" json:"admin_id"`
	Email        string        `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Position     string        `gorm:"size:32;not null;default:admin" json:"position"`
	IsActive     bool          `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Profile      *AdminProfile `gorm:"foreignKey:AdminID;references:AdminID" json:"profile,omitempty"`
}

// TableName pins the admin account table name.
func (AdminAccount) TableName() string {
	return "admin_accounts"
}

// AdminProfile stores display information for an admin.
type AdminProfile struct {
	ProfileID uint   `gorm:"column:profile_id;primaryKey" json:"profile_id"`
	AdminID   uint   `gorm:"uniqueIndex;not null" json:"admin_id"`
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
}

// TableName pins the admin profile table name.
func (AdminProfile) TableName() string {
	return "admin_profiles"
}

// StudentAccount holds student login credentials.
type StudentAccount struct {
	StudentID     uint            `gorm:"column:student_id;primaryKey" json:"student_id"`
	StudentNumber string          `gorm:"size:32;uniqueIndex;not null" json:"student_number"`
	Email         string          `gorm:"size:255;index" json:"email"`
	PasswordHash  string          `gorm:"size:255;not null" json:"-"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Profile       *StudentProfile `gorm:"foreignKey:StudentID;references:StudentID" json:"profile,omitempty"`
}

// TableName pins the student account table name.
func (StudentAccount) TableName() string {
	return "student_accounts"
}

// StudentProfile stores display information for a student.
type StudentProfile struct {
	ProfileID uint   `gorm:"column:profile_id;primaryKey" json:"profile_id"`
	StudentID uint   `gorm:"uniqueIndex;not null" json:"student_id"`
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
}

// TableName pins the student profile table name.
func (StudentProfile) TableName() string {
	return "student_profiles"
}
