package service

import (
	"context"
	"fmt"
	"strings"

	"physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/book/repository"
	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/pkg/logger"
)

// ImageService runs the asynchronous image work: variant generation
// after a save and storage purge after a delete.
type ImageService struct {
	imageRepo repository.BookImageRepository
	stage     storage.ObjectStage
	processor *storage.ImageProcessor
}

func NewImageService(imageRepo repository.BookImageRepository, stage storage.ObjectStage, processor *storage.ImageProcessor) *ImageService {
	return &ImageService{
		imageRepo: imageRepo,
		stage:     stage,
		processor: processor,
	}
}

// ProcessImage derives the medium and thumbnail variants for one
// persisted image and stores their URLs on the row.
func (s *ImageService) ProcessImage(ctx context.Context, imageID string) error {
	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.Status == model.ImageStatusReady {
		return nil
	}

	if err := s.imageRepo.UpdateStatus(ctx, imageID, model.ImageStatusProcessing, ""); err != nil {
		return err
	}

	data, err := s.stage.Download(ctx, img.StoragePath)
	if err != nil {
		return s.failImage(ctx, imageID, fmt.Errorf("download original: %w", err))
	}

	variants, err := s.processor.ProcessVariants(data)
	if err != nil {
		return s.failImage(ctx, imageID, fmt.Errorf("generate variants: %w", err))
	}

	urls := map[string]string{}
	for name, bytes := range variants {
		key := variantKey(img.StoragePath, name)
		if err := s.stage.Upload(ctx, key, bytes, "image/jpeg"); err != nil {
			return s.failImage(ctx, imageID, fmt.Errorf("upload %s variant: %w", name, err))
		}
		urls[name] = s.stage.PublicURL(key)
	}

	if err := s.imageRepo.UpdateVariants(ctx, imageID, urls["medium"], urls["thumbnail"]); err != nil {
		return err
	}

	logger.Info("image variants generated", map[string]interface{}{
		"image_id": imageID,
	})
	return nil
}

// variantKey places the variant next to the original:
// books/<id>/<file>.jpg -> books/<id>/<file>_medium.jpg
func variantKey(originalPath, variant string) string {
	dot := strings.LastIndex(originalPath, ".")
	if dot == -1 {
		return fmt.Sprintf("%s_%s.jpg", originalPath, variant)
	}
	return fmt.Sprintf("%s_%s.jpg", originalPath[:dot], variant)
}

func (s *ImageService) failImage(ctx context.Context, imageID string, cause error) error {
	if err := s.imageRepo.UpdateStatus(ctx, imageID, model.ImageStatusFailed, cause.Error()); err != nil {
		logger.Error("could not mark image failed", err)
	}
	return cause
}

// PurgeBookImages deletes a deleted book's image rows and its whole
// storage prefix.
func (s *ImageService) PurgeBookImages(ctx context.Context, bookID string) error {
	if err := s.imageRepo.DeleteByBookID(ctx, bookID); err != nil {
		return err
	}
	if err := s.stage.RemovePrefix(ctx, bookID+"/"); err != nil {
		return fmt.Errorf("remove storage prefix: %w", err)
	}
	return nil
}
