package dto

import "time"

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AnnouncementRequest is the admin payload for creating or replacing an announcement.
type AnnouncementRequest struct {
	Title      string `json:"title" validate:"required,min=3,max=255"`
	Body       string `json:"body" validate:"required,min=1"`
	CategoryID *uint  `json:"category_id"`
	StartsAt   string `json:"starts_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt     string `json:"ends_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	IsPinned   bool   `json:"is_pinned"`
}

// AnnouncementResponse represents an announcement payload returned to the frontend.
type AnnouncementResponse struct {
	ID         uint       `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	CategoryID *uint      `json:"category_id"`
	PostedBy   uint       `json:"posted_by"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
	IsPinned   bool       `json:"is_pinned"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AnnouncementListResponse contains paginated announcements.
type AnnouncementListResponse struct {
	Items      []AnnouncementResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
	CacheHit   bool                   `json:"cache_hit"`
}

// WelcomeCardRequest is the admin payload for welcome page cards.
type WelcomeCardRequest struct {
	Title    string                 `json:"title" validate:"required,min=2,max=255"`
	Content  string                 `json:"content" validate:"omitempty,max=5000"`
	ImageURL string                 `json:"image_url" validate:"omitempty,url"`
	IsActive *bool                  `json:"is_active"`
	Metadata map[string]interface{} `json:"metadata"`
}

// WelcomeCardOrder assigns a display position to one card.
type WelcomeCardOrder struct {
	CardID       uint `json:"card_id" validate:"required"`
	DisplayOrder int  `json:"display_order" validate:"gte=0"`
}

// WelcomeCardReorderRequest reorders several cards at once.
type WelcomeCardReorderRequest struct {
	Items []WelcomeCardOrder `json:"items" validate:"required,min=1,dive"`
}

// WelcomeCardResponse serializes a welcome card.
type WelcomeCardResponse struct {
	ID           uint                   `json:"id"`
	Title        string                 `json:"title"`
	Content      string                 `json:"content"`
	ImageURL     string                 `json:"image_url"`
	DisplayOrder int                    `json:"display_order"`
	IsActive     bool                   `json:"is_active"`
	Metadata     map[string]interface{} `json:"metadata"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// UploadResponse describes the stored asset metadata returned to the client.
type UploadResponse struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Checksum  string `json:"checksum"`
	FileName  string `json:"file_name"`
}
