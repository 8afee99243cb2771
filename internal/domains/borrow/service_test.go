package borrow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physlib-backend/internal/domains/book/model"
	bookrepo "physlib-backend/internal/domains/book/repository"
)

type fakeRequestRepo struct {
	hasOpenRequest bool
	decideErr      error
	created        *Request
	decided        []string
	detail         *RequestDetail
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *Request) error {
	f.created = r
	return nil
}
func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (*Request, error) {
	return nil, ErrRequestNotFound
}
func (f *fakeRequestRepo) GetDetail(ctx context.Context, id string) (*RequestDetail, error) {
	if f.detail == nil {
		return nil, ErrRequestNotFound
	}
	return f.detail, nil
}
func (f *fakeRequestRepo) ListByUser(ctx context.Context, userID string) ([]RequestDetail, error) {
	return nil, nil
}
func (f *fakeRequestRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]RequestDetail, int, error) {
	return nil, 0, nil
}
func (f *fakeRequestRepo) HasOpenRequest(ctx context.Context, bookID, userID string) (bool, error) {
	return f.hasOpenRequest, nil
}
func (f *fakeRequestRepo) Decide(ctx context.Context, id, deciderID, status string, dueDate *time.Time) error {
	if f.decideErr != nil {
		return f.decideErr
	}
	f.decided = append(f.decided, status)
	return nil
}
func (f *fakeRequestRepo) MarkReturned(ctx context.Context, id string) error { return nil }
func (f *fakeRequestRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	return 0, nil
}

type stubBookRepo struct {
	bookrepo.BookRepository
	book *model.Book
	err  error
}

func (s *stubBookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.book, nil
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func availableBook() *model.Book {
	return &model.Book{ID: uuid.New(), AvailableCopies: 2}
}

func TestBorrowService_Create(t *testing.T) {
	repo := &fakeRequestRepo{}
	books := &stubBookRepo{book: availableBook()}
	svc := NewService(repo, books, nil)

	created, err := svc.Create(context.Background(), uuid.New().String(), &CreateRequest{
		BookID: books.book.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, books.book.ID, created.BookID)
	require.NotNil(t, repo.created)
}

func TestBorrowService_CreateRejectsWhenNoCopies(t *testing.T) {
	books := &stubBookRepo{book: &model.Book{ID: uuid.New(), AvailableCopies: 0}}
	svc := NewService(&fakeRequestRepo{}, books, nil)

	_, err := svc.Create(context.Background(), uuid.New().String(), &CreateRequest{
		BookID: books.book.ID.String(),
	})
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)
}

func TestBorrowService_CreateRejectsDuplicate(t *testing.T) {
	books := &stubBookRepo{book: availableBook()}
	svc := NewService(&fakeRequestRepo{hasOpenRequest: true}, books, nil)

	_, err := svc.Create(context.Background(), uuid.New().String(), &CreateRequest{
		BookID: books.book.ID.String(),
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestBorrowService_CreateUnknownBook(t *testing.T) {
	books := &stubBookRepo{err: model.ErrBookNotFound}
	svc := NewService(&fakeRequestRepo{}, books, nil)

	_, err := svc.Create(context.Background(), uuid.New().String(), &CreateRequest{
		BookID: uuid.New().String(),
	})
	assert.ErrorIs(t, err, model.ErrBookNotFound)
}

func TestBorrowService_ApproveRejectsPastDueDate(t *testing.T) {
	repo := &fakeRequestRepo{}
	svc := NewService(repo, &stubBookRepo{}, nil)

	err := svc.Approve(context.Background(), "req-1", "staff-1", time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, ErrPastDueDate)
	assert.Empty(t, repo.decided)
}

func TestBorrowService_ApproveEnqueuesDecisionEmail(t *testing.T) {
	repo := &fakeRequestRepo{
		detail: &RequestDetail{
			BookTitle: "Optics",
			UserEmail: "student@physlib.edu",
		},
	}
	enqueuer := &captureEnqueuer{}
	svc := NewService(repo, &stubBookRepo{}, enqueuer)

	err := svc.Approve(context.Background(), "req-1", "staff-1", time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{StatusApproved}, repo.decided)
	require.Len(t, enqueuer.tasks, 1)
	assert.Contains(t, string(enqueuer.tasks[0].Payload()), "student@physlib.edu")
}

func TestBorrowService_ApproveSurfacesTransitionError(t *testing.T) {
	repo := &fakeRequestRepo{decideErr: ErrInvalidTransition}
	svc := NewService(repo, &stubBookRepo{}, nil)

	err := svc.Approve(context.Background(), "req-1", "staff-1", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBorrowService_RejectDoesNotFailOnMissingDetail(t *testing.T) {
	repo := &fakeRequestRepo{}
	enqueuer := &captureEnqueuer{}
	svc := NewService(repo, &stubBookRepo{}, enqueuer)

	// The decision itself succeeds; the notification is best-effort.
	err := svc.Reject(context.Background(), "req-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, []string{StatusRejected}, repo.decided)
	assert.Empty(t, enqueuer.tasks)
}
