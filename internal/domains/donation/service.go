package donation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	userdomain "physlib-backend/internal/domains/user"
)

type Service struct {
	repo     Repository
	userRepo userdomain.Repository
}

func NewService(repo Repository, userRepo userdomain.Repository) *Service {
	return &Service{repo: repo, userRepo: userRepo}
}

// Record credits a donation to a member. Librarians enter these from the
// front desk; there is no payment processing behind it.
func (s *Service) Record(ctx context.Context, req *CreateDonationRequest) (*Donation, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "EUR"
	}

	d := &Donation{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Amount:    amount,
		Currency:  currency,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("record donation: %w", err)
	}
	return d, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Donation, decimal.Decimal, error) {
	donations, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total, err := s.repo.TotalByUser(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return donations, total, nil
}

func (s *Service) TopDonors(ctx context.Context, limit int) ([]DonorSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.TopDonors(ctx, limit)
}
