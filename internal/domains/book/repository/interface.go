package repository

import (
	"context"
	"time"

	"physlib-backend/internal/domains/book/model"
)

// BookRepository is the persistence surface for catalog rows.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	GetBySlug(ctx context.Context, slug string) (*model.Book, error)
	List(ctx context.Context, filter *model.BookFilter) ([]model.Book, int, error)
	// UpdateDraft applies the draft fields to the row, guarded by the
	// updated_at the editor last saw. Returns ErrBookConflict when the
	// row moved past expectedUpdatedAt.
	UpdateDraft(ctx context.Context, bookID string, draft *model.BookDraft, expectedUpdatedAt time.Time) (*model.Book, error)
	SetCoverURL(ctx context.Context, bookID string, coverURL *string) error
	SoftDelete(ctx context.Context, bookID string, deletedAt time.Time) error
	IncrementViewCount(ctx context.Context, bookID string, delta int) error
	GenerateUniqueSlug(ctx context.Context, baseSlug string) (string, error)
	CheckISBNExistsExcept(ctx context.Context, isbn, excludeID string) (bool, error)
	ListMostViewed(ctx context.Context, limit int) ([]model.BookListItem, error)
	ListAllForExport(ctx context.Context) ([]model.Book, error)
}

// BookImageRepository is the persistence surface for catalog photos.
type BookImageRepository interface {
	CreateBatch(ctx context.Context, images []*model.BookImage) error
	GetByID(ctx context.Context, id string) (*model.BookImage, error)
	GetByBookID(ctx context.Context, bookID string) ([]*model.BookImage, error)
	MaxDisplayOrder(ctx context.Context, bookID string) (int, error)
	// UnsetAllCovers and SetCover together enforce the single-cover
	// invariant; callers issue them as two statements, unset first.
	UnsetAllCovers(ctx context.Context, bookID string) error
	SetCover(ctx context.Context, imageID string) error
	UpdateAltText(ctx context.Context, imageID string, altText *string) error
	UpdateVariants(ctx context.Context, imageID string, medium, thumbnail string) error
	UpdateStatus(ctx context.Context, imageID, status, errorMsg string) error
	Delete(ctx context.Context, imageID string) error
	DeleteByBookID(ctx context.Context, bookID string) error
}

// CategoryLinkRepository manages book-to-category join rows. The save
// flow rewrites the set as delete-all then insert, issued as two
// independent statements.
type CategoryLinkRepository interface {
	DeleteByBookID(ctx context.Context, bookID string) error
	InsertLinks(ctx context.Context, bookID string, categoryIDs []string) error
	ListByBookID(ctx context.Context, bookID string) ([]model.CategorySummary, error)
}
