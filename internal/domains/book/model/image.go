package model

import (
	"time"

	"github.com/google/uuid"
)

// Image processing status
const (
	ImageStatusPending    = "pending"
	ImageStatusProcessing = "processing"
	ImageStatusReady      = "ready"
	ImageStatusFailed     = "failed"
)

// BookImage represents one persisted catalog photo of a book
type BookImage struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BookID       uuid.UUID `json:"book_id" db:"book_id"`
	StoragePath  string    `json:"storage_path" db:"storage_path"`
	OriginalURL  string    `json:"original_url" db:"original_url"`
	MediumURL    *string   `json:"medium_url" db:"medium_url"`
	ThumbnailURL *string   `json:"thumbnail_url" db:"thumbnail_url"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsCover      bool      `json:"is_cover" db:"is_cover"`
	AltText      *string   `json:"alt_text" db:"alt_text"`
	Status       string    `json:"status" db:"status"`
	ErrorMessage *string   `json:"error_message" db:"error_message"`
	FileSize     *int64    `json:"file_size" db:"file_size"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryLink joins a book to one subject category
type CategoryLink struct {
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	CategoryID uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
