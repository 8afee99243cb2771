package borrow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	bookrepo "physlib-backend/internal/domains/book/repository"
	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/logger"
)

// TaskEnqueuer is the slice of asynq.Client this service needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Service struct {
	repo        Repository
	bookRepo    bookrepo.BookRepository
	asynqClient TaskEnqueuer
}

func NewService(repo Repository, bookRepo bookrepo.BookRepository, asynqClient TaskEnqueuer) *Service {
	return &Service{
		repo:        repo,
		bookRepo:    bookRepo,
		asynqClient: asynqClient,
	}
}

// Create registers a pending borrow request. One open request per
// user-book pair.
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Request, error) {
	book, err := s.bookRepo.GetByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if book.AvailableCopies <= 0 {
		return nil, ErrNoCopiesAvailable
	}

	open, err := s.repo.HasOpenRequest(ctx, req.BookID, userID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrDuplicateRequest
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	r := &Request{
		ID:          uuid.New(),
		BookID:      book.ID,
		UserID:      uid,
		Status:      StatusPending,
		Note:        req.Note,
		RequestedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Approve moves a pending request to approved with a due date and
// reserves one copy. The requester is mailed the decision.
func (s *Service) Approve(ctx context.Context, id, deciderID string, dueDate time.Time) error {
	if !dueDate.After(time.Now()) {
		return ErrPastDueDate
	}

	if err := s.repo.Decide(ctx, id, deciderID, StatusApproved, &dueDate); err != nil {
		return err
	}

	s.notifyDecision(ctx, id, true, dueDate.Format("2006-01-02"))
	return nil
}

// Reject moves a pending request to rejected.
func (s *Service) Reject(ctx context.Context, id, deciderID string) error {
	if err := s.repo.Decide(ctx, id, deciderID, StatusRejected, nil); err != nil {
		return err
	}

	s.notifyDecision(ctx, id, false, "")
	return nil
}

// Return closes an approved request and restores the copy.
func (s *Service) Return(ctx context.Context, id string) error {
	return s.repo.MarkReturned(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]RequestDetail, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListByStatus(ctx context.Context, status string, page, limit int) ([]RequestDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByStatus(ctx, status, limit, (page-1)*limit)
}

func (s *Service) notifyDecision(ctx context.Context, requestID string, approved bool, dueDate string) {
	if s.asynqClient == nil {
		return
	}

	detail, err := s.repo.GetDetail(ctx, requestID)
	if err != nil {
		logger.Warn("could not load request for decision email", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return
	}

	payload, _ := json.Marshal(types.BorrowDecisionEmailPayload{
		Email:     detail.UserEmail,
		BookTitle: detail.BookTitle,
		Approved:  approved,
		DueDate:   dueDate,
	})
	task := asynq.NewTask(types.TypeSendBorrowDecisionEmail, payload)
	if _, err := s.asynqClient.Enqueue(task, asynq.Queue(types.QueueEmail), asynq.MaxRetry(5)); err != nil {
		logger.Warn("could not enqueue decision email", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}
