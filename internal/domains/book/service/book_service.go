package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/xuri/excelize/v2"

	"physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/book/repository"
	"physlib-backend/internal/infrastructure/storage"
	types "physlib-backend/internal/shared"
	"physlib-backend/internal/shared/utils"
	"physlib-backend/pkg/cache"
	"physlib-backend/pkg/logger"
)

const (
	bookListCacheTTL    = 5 * time.Minute
	bookDetailCacheTTL  = 10 * time.Minute
	viewCountKeyPrefix  = "views:book:"
	bookListCachePrefix = "books:list:"
)

// BookService owns catalog reads and writes outside of the save flow.
type BookService struct {
	repo        repository.BookRepository
	imageRepo   repository.BookImageRepository
	linkRepo    repository.CategoryLinkRepository
	stage       storage.ObjectStage
	cache       cache.Cache
	asynqClient TaskEnqueuer
}

func NewBookService(
	repo repository.BookRepository,
	imageRepo repository.BookImageRepository,
	linkRepo repository.CategoryLinkRepository,
	stage storage.ObjectStage,
	cacheClient cache.Cache,
	asynqClient TaskEnqueuer,
) *BookService {
	return &BookService{
		repo:        repo,
		imageRepo:   imageRepo,
		linkRepo:    linkRepo,
		stage:       stage,
		cache:       cacheClient,
		asynqClient: asynqClient,
	}
}

// Create registers a new title. The slug is derived from the name and
// made unique with a numeric suffix when needed.
func (s *BookService) Create(ctx context.Context, draft *model.BookDraft) (*model.Book, error) {
	status := model.BookStatus(draft.Status)
	if draft.Status == "" {
		status = model.BookStatusAvailable
	}
	if !status.IsValid() {
		return nil, model.ErrInvalidStatus
	}

	if draft.ISBN != nil && *draft.ISBN != "" {
		exists, err := s.repo.CheckISBNExistsExcept(ctx, *draft.ISBN, uuid.Nil.String())
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrISBNAlreadyExists
		}
	}

	slug, err := s.repo.GenerateUniqueSlug(ctx, utils.GenerateSlug(draft.Title))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	book := &model.Book{
		ID:              uuid.New(),
		Title:           draft.Title,
		Slug:            slug,
		ISBN:            draft.ISBN,
		Authors:         draft.Authors,
		Publisher:       draft.Publisher,
		Edition:         draft.Edition,
		PublishedYear:   draft.PublishedYear,
		Language:        draft.Language,
		Pages:           draft.Pages,
		Description:     draft.Description,
		ShelfLocation:   draft.ShelfLocation,
		TotalCopies:     draft.TotalCopies,
		AvailableCopies: draft.TotalCopies,
		Status:          status,
		IsActive:        draft.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	if len(draft.CategoryIDs) > 0 {
		if err := s.linkRepo.InsertLinks(ctx, book.ID.String(), draft.CategoryIDs); err != nil {
			logger.Warn("category links not created for new book", map[string]interface{}{
				"book_id": book.ID.String(),
				"error":   err.Error(),
			})
		}
	}

	s.invalidateListCache(ctx)
	return book, nil
}

// List returns a filtered catalog page, served from cache when possible.
func (s *BookService) List(ctx context.Context, filter *model.BookFilter) ([]model.Book, int, error) {
	filter.Normalize()

	type listCache struct {
		Books []model.Book `json:"books"`
		Total int          `json:"total"`
	}

	cacheKey := listCacheKey(filter)
	var cached listCache
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached.Books, cached.Total, nil
	}

	books, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.Set(ctx, cacheKey, listCache{Books: books, Total: total}, bookListCacheTTL); err != nil {
		logger.Warn("book list cache write failed", map[string]interface{}{"error": err.Error()})
	}

	return books, total, nil
}

func listCacheKey(filter *model.BookFilter) string {
	raw, _ := json.Marshal(filter)
	return bookListCachePrefix + string(raw)
}

// GetDetail loads the book with its images and categories and records a
// catalog view in Redis for later batch flush.
func (s *BookService) GetDetail(ctx context.Context, id string) (*model.BookDetail, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.imageRepo.GetByBookID(ctx, id)
	if err != nil {
		return nil, err
	}

	categories, err := s.linkRepo.ListByBookID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.cache.Increment(ctx, viewCountKeyPrefix+id); err != nil {
		logger.Warn("view count increment failed", map[string]interface{}{
			"book_id": id,
			"error":   err.Error(),
		})
	}

	return &model.BookDetail{Book: *book, Images: images, Categories: categories}, nil
}

// GetBySlug serves the public catalog page lookup.
func (s *BookService) GetBySlug(ctx context.Context, slug string) (*model.BookDetail, error) {
	book, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, book.ID.String())
}

// Delete soft-deletes the title and hands storage cleanup to the worker.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, time.Now()); err != nil {
		return err
	}

	if s.asynqClient != nil {
		payload, _ := json.Marshal(types.DeleteBookImagesPayload{BookID: id})
		task := asynq.NewTask(types.TypeDeleteBookImages, payload)
		if _, err := s.asynqClient.Enqueue(task, asynq.Queue(types.QueueStorage), asynq.MaxRetry(5)); err != nil {
			logger.Warn("could not enqueue image cleanup task", map[string]interface{}{
				"book_id": id,
				"error":   err.Error(),
			})
		}
	}

	s.invalidateListCache(ctx)
	return nil
}

// SetExistingCover moves the cover mark to one persisted image. Two
// statements, unset-all first; a crash in between leaves zero covers,
// which readers must tolerate.
func (s *BookService) SetExistingCover(ctx context.Context, bookID, imageID string) error {
	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.BookID.String() != bookID {
		return model.ErrImageNotFound
	}

	if err := s.imageRepo.UnsetAllCovers(ctx, bookID); err != nil {
		return err
	}
	if err := s.imageRepo.SetCover(ctx, imageID); err != nil {
		return err
	}

	if err := s.repo.SetCoverURL(ctx, bookID, &img.OriginalURL); err != nil {
		logger.Warn("could not refresh cover url", map[string]interface{}{
			"book_id": bookID,
			"error":   err.Error(),
		})
	}
	return nil
}

// DeleteImage removes one persisted image row and best-effort deletes
// its objects. Deleting the current cover leaves the book with no cover
// until an editor assigns a new one.
func (s *BookService) DeleteImage(ctx context.Context, bookID, imageID string) error {
	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.BookID.String() != bookID {
		return model.ErrImageNotFound
	}

	if err := s.imageRepo.Delete(ctx, imageID); err != nil {
		return err
	}

	if err := s.stage.Remove(ctx, []string{img.StoragePath}); err != nil {
		logger.Warn("could not delete image object", map[string]interface{}{
			"path":  img.StoragePath,
			"error": err.Error(),
		})
	}

	if img.IsCover {
		if err := s.repo.SetCoverURL(ctx, bookID, nil); err != nil {
			logger.Warn("could not clear cover url", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

// UpdateImageAltText edits the accessibility text of a persisted image.
func (s *BookService) UpdateImageAltText(ctx context.Context, bookID, imageID string, altText *string) error {
	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.BookID.String() != bookID {
		return model.ErrImageNotFound
	}
	return s.imageRepo.UpdateAltText(ctx, imageID, altText)
}

// ListMostViewed serves the popularity shelf on the home page.
func (s *BookService) ListMostViewed(ctx context.Context, limit int) ([]model.BookListItem, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.repo.ListMostViewed(ctx, limit)
}

// FlushViewCounts drains the Redis view counters into the books table.
// Runs from the scheduler. Returns the number of books flushed.
func (s *BookService) FlushViewCounts(ctx context.Context) (int, error) {
	keys, err := s.cache.Keys(ctx, viewCountKeyPrefix+"*")
	if err != nil {
		return 0, err
	}

	flushed := 0
	for _, key := range keys {
		var count int
		found, err := s.cache.Get(ctx, key, &count)
		if err != nil || !found || count == 0 {
			continue
		}

		bookID := strings.TrimPrefix(key, viewCountKeyPrefix)
		if err := s.repo.IncrementViewCount(ctx, bookID, count); err != nil {
			logger.Warn("view count flush failed for book", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
			continue
		}

		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn("view count key delete failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		flushed++
	}
	return flushed, nil
}

// ExportCatalog writes the full catalog to an xlsx workbook.
func (s *BookService) ExportCatalog(ctx context.Context) ([]byte, error) {
	books, err := s.repo.ListAllForExport(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Catalog"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Title", "Authors", "ISBN", "Publisher", "Edition", "Year", "Language", "Status", "Shelf", "Copies", "Available", "Views"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, b := range books {
		values := []interface{}{
			b.Title,
			strings.Join(b.Authors, "; "),
			deref(b.ISBN),
			deref(b.Publisher),
			deref(b.Edition),
			derefInt(b.PublishedYear),
			b.Language,
			b.Status.String(),
			deref(b.ShelfLocation),
			b.TotalCopies,
			b.AvailableCopies,
			b.ViewCount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) interface{} {
	if n == nil {
		return ""
	}
	return *n
}

func (s *BookService) invalidateListCache(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, bookListCachePrefix+"*"); err != nil {
		logger.Warn("book list cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
