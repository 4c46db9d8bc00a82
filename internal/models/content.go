package models

import (
	"time"

	"gorm.io/datatypes"
)

// Announcement is a bulletin post shown on the board.
type Announcement struct {
	AnnouncementID uint       `gorm:"column:announcement_id;primaryKey" json:"announcement_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	CategoryID     *uint      `gorm:"index" json:"category_id"`
	PostedBy       uint       `gorm:"not null;index" json:"posted_by"`
	StartsAt       time.Time  `gorm:"index" json:"starts_at"`
	EndsAt         *time.Time `gorm:"index" json:"ends_at"`
	IsPinned       bool       `gorm:"index" json:"is_pinned"`
	IsActive       bool       `gorm:"index" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName pins the announcement table name.
func (Announcement) TableName() string {
	return "announcements"
}

// WelcomeCard is a content block rendered on the public welcome page.
type WelcomeCard struct {
	CardID       uint              `gorm:"column:card_id;primaryKey" json:"card_id"`
	Title        string            `gorm:"size:255;not null" json:"title"`
	Content      string            `gorm:"type:text" json:"content"`
	ImageURL     string            `gorm:"size:512" json:"image_url"`
	DisplayOrder int               `gorm:"not null;index" json:"display_order"`
	IsActive     bool              `gorm:"not null" json:"is_active"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TableName pins the welcome card table name.
func (WelcomeCard) TableName() string {
	return "welcome_cards"
}

// UploadRecord stores metadata about uploaded files.
type UploadRecord struct {
	FileID     uint      `gorm:"column:file_id;primaryKey" json:"file_id"`
	UploadedBy *uint     `gorm:"index" json:"uploaded_by"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	MimeType   string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	Checksum   string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName pins the upload table name.
func (UploadRecord) TableName() string {
	return "files"
}
