package category

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is linked to books")
	ErrNameExists       = errors.New("category name already exists")
)

// Category is one physics subject area (Mecánica, Óptica, ...).
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description" db:"description"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	BookCount   int       `json:"book_count" db:"book_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sort_order"`
}

func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 120),
		),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.SortOrder, validation.Min(0)),
	)
}
