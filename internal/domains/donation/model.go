package donation

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrInvalidAmount    = errors.New("donation amount must be positive")
)

// Donation is a monetary contribution credited to a library member.
type Donation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Note      *string         `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DonorSummary aggregates a user's contributions for the recognition board.
type DonorSummary struct {
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DonationCount int             `json:"donation_count"`
	LastDonatedAt time.Time       `json:"last_donated_at"`
}

type CreateDonationRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	Amount   string  `json:"amount" binding:"required"`
	Currency string  `json:"currency"`
	Note     *string `json:"note,omitempty"`
}

func (r CreateDonationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Amount, validation.Required),
		validation.Field(&r.Currency, validation.Length(0, 3)),
		validation.Field(&r.Note, validation.Length(0, 500)),
	)
}
