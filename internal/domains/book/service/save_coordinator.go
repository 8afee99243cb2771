package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/book/repository"
	"physlib-backend/internal/domains/upload"
	"physlib-backend/internal/infrastructure/storage"
	types "physlib-backend/internal/shared"
	"physlib-backend/internal/shared/utils"
	"physlib-backend/pkg/logger"
)

// TaskEnqueuer is the slice of asynq.Client the save flow needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SaveResult is the outcome reported back to the editor. RelocatedIDs
// lets the upload session drop moved images from its teardown sweep.
type SaveResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	ImagesProcessed int      `json:"images_processed"`
	RelocatedIDs    []string `json:"-"`
}

// finalImage is one staged image that survived relocation to permanent
// storage.
type finalImage struct {
	StagedID    string
	StoragePath string
	URL         string
	IsCover     bool
	AltText     string
	FileSize    int64
}

// SaveCoordinator persists a finished edit session: relocate staged
// images, update the book row, insert image rows, replace category
// links. The four steps run sequentially with no cross-table
// transaction; each step carries its own failure policy.
type SaveCoordinator struct {
	stage       storage.ObjectStage
	bookRepo    repository.BookRepository
	imageRepo   repository.BookImageRepository
	linkRepo    repository.CategoryLinkRepository
	asynqClient TaskEnqueuer
}

func NewSaveCoordinator(
	stage storage.ObjectStage,
	bookRepo repository.BookRepository,
	imageRepo repository.BookImageRepository,
	linkRepo repository.CategoryLinkRepository,
	asynqClient TaskEnqueuer,
) *SaveCoordinator {
	return &SaveCoordinator{
		stage:       stage,
		bookRepo:    bookRepo,
		imageRepo:   imageRepo,
		linkRepo:    linkRepo,
		asynqClient: asynqClient,
	}
}

// Save runs the four persistence steps in order.
//
//  1. Relocate staged images to permanent paths. A failed move drops
//     that image from the final set and the save continues.
//  2. Update the book row. Failure is fatal; later steps are skipped
//     and any images relocated in step 1 stay orphaned in permanent
//     storage.
//  3. Insert image rows, display order continuing after the current
//     maximum. Failure is fatal, but step 2 has already committed.
//  4. Replace category links as delete-all then insert. Failure is
//     logged as a warning and never fails the save.
//
// There is no retry at this layer; the editor re-invokes save manually.
func (c *SaveCoordinator) Save(ctx context.Context, bookID string, draft *model.BookDraft, readyImages []upload.StagedImage, categoryIDs []string) (*SaveResult, error) {
	finalImages := c.relocateImages(ctx, bookID, readyImages)

	book, err := c.bookRepo.UpdateDraft(ctx, bookID, draft, draft.ExpectedUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("book update failed: %w", err)
	}

	inserted, err := c.insertImageRows(ctx, book.ID, finalImages)
	if err != nil {
		return nil, fmt.Errorf("image rows insert failed: %w", err)
	}

	c.replaceCategoryLinks(ctx, bookID, categoryIDs)
	c.enqueueVariantTasks(inserted)

	relocated := make([]string, len(finalImages))
	for i, f := range finalImages {
		relocated[i] = f.StagedID
	}

	return &SaveResult{
		Success:         true,
		Message:         fmt.Sprintf("Book saved with %d new image(s)", len(finalImages)),
		ImagesProcessed: len(finalImages),
		RelocatedIDs:    relocated,
	}, nil
}

// relocateImages moves every ready staged object to a permanent path
// under the book's prefix. Move failures drop the image with a warning.
func (c *SaveCoordinator) relocateImages(ctx context.Context, bookID string, readyImages []upload.StagedImage) []finalImage {
	finals := make([]finalImage, 0, len(readyImages))

	for _, img := range readyImages {
		permPath := permanentPath(bookID, img.FileName)

		if err := c.stage.Move(ctx, img.RemoteTempPath, permPath); err != nil {
			logger.Warn("image relocation failed, dropping from save", map[string]interface{}{
				"book_id":   bookID,
				"temp_path": img.RemoteTempPath,
				"error":     err.Error(),
			})
			continue
		}

		finals = append(finals, finalImage{
			StagedID:    img.ID,
			StoragePath: permPath,
			URL:         c.stage.PublicURL(permPath),
			IsCover:     img.IsCover,
			AltText:     img.AltText,
			FileSize:    img.Size,
		})
	}

	return finals
}

func permanentPath(bookID, fileName string) string {
	return fmt.Sprintf("%s/%d_%s.%s",
		bookID,
		time.Now().UnixMilli(),
		randomPathToken(6),
		utils.FileExt(fileName),
	)
}

const pathTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomPathToken(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(pathTokenAlphabet[rand.IntN(len(pathTokenAlphabet))])
	}
	return b.String()
}

// insertImageRows writes one row per relocated image, continuing the
// display order after the book's current maximum. Skipped entirely when
// no image survived relocation.
func (c *SaveCoordinator) insertImageRows(ctx context.Context, bookID uuid.UUID, finals []finalImage) ([]*model.BookImage, error) {
	if len(finals) == 0 {
		return nil, nil
	}

	maxOrder, err := c.imageRepo.MaxDisplayOrder(ctx, bookID.String())
	if err != nil {
		return nil, err
	}

	rows := make([]*model.BookImage, len(finals))
	for i, f := range finals {
		row := &model.BookImage{
			ID:           uuid.New(),
			BookID:       bookID,
			StoragePath:  f.StoragePath,
			OriginalURL:  f.URL,
			DisplayOrder: maxOrder + 1 + i,
			IsCover:      f.IsCover,
			Status:       model.ImageStatusPending,
			FileSize:     &f.FileSize,
		}
		if f.AltText != "" {
			alt := f.AltText
			row.AltText = &alt
		}
		rows[i] = row
	}

	if err := c.imageRepo.CreateBatch(ctx, rows); err != nil {
		return nil, err
	}

	// Keep the denormalized cover_url in step with the new cover row.
	for _, row := range rows {
		if row.IsCover {
			if err := c.bookRepo.SetCoverURL(ctx, bookID.String(), &row.OriginalURL); err != nil {
				logger.Warn("could not refresh cover url", map[string]interface{}{
					"book_id": bookID.String(),
					"error":   err.Error(),
				})
			}
			break
		}
	}

	return rows, nil
}

// replaceCategoryLinks rewrites the book's category set. Best-effort:
// either statement failing logs a warning and the save still succeeds.
func (c *SaveCoordinator) replaceCategoryLinks(ctx context.Context, bookID string, categoryIDs []string) {
	if err := c.linkRepo.DeleteByBookID(ctx, bookID); err != nil {
		logger.Warn("category link delete failed", map[string]interface{}{
			"book_id": bookID,
			"error":   err.Error(),
		})
		return
	}

	if len(categoryIDs) == 0 {
		return
	}

	if err := c.linkRepo.InsertLinks(ctx, bookID, categoryIDs); err != nil {
		logger.Warn("category link insert failed", map[string]interface{}{
			"book_id": bookID,
			"error":   err.Error(),
		})
	}
}

// enqueueVariantTasks asks the worker to derive display sizes for each
// new image. Best-effort; variants can be regenerated later.
func (c *SaveCoordinator) enqueueVariantTasks(rows []*model.BookImage) {
	if c.asynqClient == nil {
		return
	}

	for _, row := range rows {
		payload, err := json.Marshal(types.ProcessBookImagePayload{ImageID: row.ID.String()})
		if err != nil {
			continue
		}
		task := asynq.NewTask(types.TypeProcessBookImage, payload)
		if _, err := c.asynqClient.Enqueue(task, asynq.Queue(types.QueueStorage), asynq.MaxRetry(3)); err != nil {
			logger.Warn("could not enqueue image processing task", map[string]interface{}{
				"image_id": row.ID.String(),
				"error":    err.Error(),
			})
		}
	}
}
