package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// BookDraftRequest is the request body for creating a book or saving an
// edit session.
type BookDraftRequest struct {
	Title             string    `json:"title" binding:"required"`
	ISBN              *string   `json:"isbn,omitempty"`
	Authors           []string  `json:"authors"`
	Publisher         *string   `json:"publisher,omitempty"`
	Edition           *string   `json:"edition,omitempty"`
	PublishedYear     *int      `json:"published_year,omitempty"`
	Language          string    `json:"language"`
	Pages             *int      `json:"pages,omitempty"`
	Description       *string   `json:"description,omitempty"`
	ShelfLocation     *string   `json:"shelf_location,omitempty"`
	TotalCopies       int       `json:"total_copies"`
	Status            string    `json:"status"`
	IsActive          bool      `json:"is_active"`
	CategoryIDs       []string  `json:"category_ids"`
	ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
}

func (r BookDraftRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 500),
		),
		validation.Field(&r.ISBN,
			validation.Length(10, 17),
		),
		validation.Field(&r.Authors,
			validation.Each(validation.Length(1, 200)),
		),
		validation.Field(&r.Language,
			validation.Required.Error("language is required"),
			validation.Length(2, 10),
		),
		validation.Field(&r.PublishedYear,
			validation.Min(1400),
			validation.Max(time.Now().Year()+1),
		),
		validation.Field(&r.Pages,
			validation.Min(1),
		),
		validation.Field(&r.TotalCopies,
			validation.Min(0),
		),
		validation.Field(&r.Status,
			validation.In(
				string(BookStatusAvailable),
				string(BookStatusBorrowed),
				string(BookStatusMaintenance),
				"",
			).Error("status must be available, borrowed or maintenance"),
		),
		validation.Field(&r.CategoryIDs,
			validation.Each(is.UUIDv4.Error("category id must be a uuid")),
		),
	)
}

// ToDraft maps the request body onto the domain draft.
func (r *BookDraftRequest) ToDraft() *BookDraft {
	status := r.Status
	if status == "" {
		status = string(BookStatusAvailable)
	}
	return &BookDraft{
		Title:             r.Title,
		ISBN:              r.ISBN,
		Authors:           r.Authors,
		Publisher:         r.Publisher,
		Edition:           r.Edition,
		PublishedYear:     r.PublishedYear,
		Language:          r.Language,
		Pages:             r.Pages,
		Description:       r.Description,
		ShelfLocation:     r.ShelfLocation,
		TotalCopies:       r.TotalCopies,
		Status:            status,
		IsActive:          r.IsActive,
		CategoryIDs:       r.CategoryIDs,
		ExpectedUpdatedAt: r.ExpectedUpdatedAt,
	}
}

// SaveBookRequest is the save endpoint body: the draft plus the upload
// session whose ready images should be folded in.
type SaveBookRequest struct {
	BookDraftRequest
	SessionID string `json:"session_id"`
}

func (r SaveBookRequest) Validate() error {
	if err := r.BookDraftRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, is.UUIDv4.Error("session id must be a uuid")),
	)
}

// UpdateAltTextRequest edits the accessibility text of one image.
type UpdateAltTextRequest struct {
	AltText *string `json:"alt_text"`
}

func (r UpdateAltTextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AltText, validation.Length(0, 500)),
	)
}
