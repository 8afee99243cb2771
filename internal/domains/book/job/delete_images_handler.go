package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/domains/book/service"
	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/logger"
)

// DeleteImagesHandler purges the storage prefix and image rows of a
// deleted book.
type DeleteImagesHandler struct {
	imageService *service.ImageService
}

func NewDeleteImagesHandler(imageService *service.ImageService) *DeleteImagesHandler {
	return &DeleteImagesHandler{imageService: imageService}
}

func (h *DeleteImagesHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload types.DeleteBookImagesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.imageService.PurgeBookImages(ctx, payload.BookID); err != nil {
		return fmt.Errorf("purge images for book %s: %w", payload.BookID, err)
	}

	logger.Info("book images purged", map[string]interface{}{
		"book_id": payload.BookID,
	})
	return nil
}
