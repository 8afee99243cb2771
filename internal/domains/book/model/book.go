package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BookStatus represents the lending availability of a title
type BookStatus string

const (
	BookStatusAvailable   BookStatus = "available"
	BookStatusBorrowed    BookStatus = "borrowed"
	BookStatusMaintenance BookStatus = "maintenance"
)

func (s BookStatus) IsValid() bool {
	switch s {
	case BookStatusAvailable, BookStatusBorrowed, BookStatusMaintenance:
		return true
	}
	return false
}

func (s BookStatus) String() string {
	return string(s)
}

// Book represents one physics title in the library catalog
type Book struct {
	// Identity
	ID    uuid.UUID `json:"id" db:"id"`
	Title string    `json:"title" db:"title"`
	Slug  string    `json:"slug" db:"slug"`
	ISBN  *string   `json:"isbn" db:"isbn"`

	// Bibliographic data
	Authors       pq.StringArray `json:"authors" db:"authors"`
	Publisher     *string        `json:"publisher" db:"publisher"`
	Edition       *string        `json:"edition" db:"edition"`
	PublishedYear *int           `json:"published_year" db:"published_year"`
	Language      string         `json:"language" db:"language"`
	Pages         *int           `json:"pages" db:"pages"`
	Description   *string        `json:"description" db:"description"`

	// Physical copies
	ShelfLocation   *string `json:"shelf_location" db:"shelf_location"`
	TotalCopies     int     `json:"total_copies" db:"total_copies"`
	AvailableCopies int     `json:"available_copies" db:"available_copies"`

	// Media
	CoverURL *string `json:"cover_url" db:"cover_url"`

	// Status & metrics
	Status    BookStatus `json:"status" db:"status"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	ViewCount int        `json:"view_count" db:"view_count"`

	// Timestamps
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// BookDraft carries the editable fields collected during an edit session.
// ExpectedUpdatedAt is the updated_at the editor last saw; the update is
// refused when the row has moved past it.
type BookDraft struct {
	Title             string    `json:"title"`
	ISBN              *string   `json:"isbn"`
	Authors           []string  `json:"authors"`
	Publisher         *string   `json:"publisher"`
	Edition           *string   `json:"edition"`
	PublishedYear     *int      `json:"published_year"`
	Language          string    `json:"language"`
	Pages             *int      `json:"pages"`
	Description       *string   `json:"description"`
	ShelfLocation     *string   `json:"shelf_location"`
	TotalCopies       int       `json:"total_copies"`
	Status            string    `json:"status"`
	IsActive          bool      `json:"is_active"`
	CategoryIDs       []string  `json:"category_ids"`
	ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
}

// BookFilter represents catalog list/search parameters
type BookFilter struct {
	Search     string `json:"search" form:"search"`
	CategoryID string `json:"category_id" form:"category_id"`
	Language   string `json:"language" form:"language"`
	Status     string `json:"status" form:"status"`
	IsActive   *bool  `json:"is_active" form:"is_active"`
	Page       int    `json:"page" form:"page"`
	Limit      int    `json:"limit" form:"limit"`
	Sort       string `json:"sort" form:"sort"`
}

func (f *BookFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

func (f *BookFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// BookListItem represents a simplified book for list views
type BookListItem struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Slug            string         `json:"slug"`
	Authors         pq.StringArray `json:"authors"`
	CoverURL        *string        `json:"cover_url,omitempty"`
	Status          BookStatus     `json:"status"`
	AvailableCopies int            `json:"available_copies"`
	ViewCount       int            `json:"view_count"`
}

// BookDetail is the full response with related rows joined in
type BookDetail struct {
	Book       Book              `json:"book"`
	Images     []*BookImage      `json:"images"`
	Categories []CategorySummary `json:"categories"`
}

// CategorySummary for nested responses
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}
