package favorite

import (
	"context"
	"fmt"

	bookrepo "physlib-backend/internal/domains/book/repository"
)

type Service struct {
	repo     Repository
	bookRepo bookrepo.BookRepository
}

func NewService(repo Repository, bookRepo bookrepo.BookRepository) *Service {
	return &Service{repo: repo, bookRepo: bookRepo}
}

// Heart marks a book as a favorite of the user. Hearting a book that is
// already a favorite succeeds without a second row.
func (s *Service) Heart(ctx context.Context, bookID, userID string) error {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return err
	}
	if err := s.repo.Add(ctx, bookID, userID); err != nil {
		return fmt.Errorf("heart book: %w", err)
	}
	return nil
}

func (s *Service) Unheart(ctx context.Context, bookID, userID string) error {
	if err := s.repo.Remove(ctx, bookID, userID); err != nil {
		return fmt.Errorf("unheart book: %w", err)
	}
	return nil
}

// Status reports whether the user hearted the book and the book's total.
func (s *Service) Status(ctx context.Context, bookID, userID string) (hearted bool, count int, err error) {
	hearted, err = s.repo.Exists(ctx, bookID, userID)
	if err != nil {
		return false, 0, err
	}
	count, err = s.repo.CountByBook(ctx, bookID)
	if err != nil {
		return false, 0, err
	}
	return hearted, count, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]FavoriteBook, error) {
	return s.repo.ListByUser(ctx, userID)
}
