package borrow

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// Request status values. Transitions: pending -> approved -> returned,
// or pending -> rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusReturned = "returned"
)

var (
	ErrRequestNotFound   = errors.New("borrow request not found")
	ErrInvalidTransition = errors.New("invalid borrow request transition")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrDuplicateRequest  = errors.New("user already has a pending or approved request for this book")
	ErrPastDueDate       = errors.New("due date must be in the future")
)

// Request is one member's borrow request for a book.
type Request struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BookID      uuid.UUID  `json:"book_id" db:"book_id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Status      string     `json:"status" db:"status"`
	Note        *string    `json:"note,omitempty" db:"note"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	DecidedBy   *uuid.UUID `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt   *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
}

// RequestDetail joins in what the staff screen needs.
type RequestDetail struct {
	Request
	BookTitle string `json:"book_title" db:"book_title"`
	UserName  string `json:"user_name" db:"user_name"`
	UserEmail string `json:"user_email" db:"user_email"`
}

type CreateRequest struct {
	BookID string  `json:"book_id" binding:"required"`
	Note   *string `json:"note,omitempty"`
}

func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required, is.UUIDv4),
		validation.Field(&r.Note, validation.Length(0, 1000)),
	)
}

type ApproveRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
}

func (r ApproveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DueDate, validation.Required),
	)
}
