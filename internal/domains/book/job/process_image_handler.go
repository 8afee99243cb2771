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

// ProcessImageHandler generates display variants for a saved image.
type ProcessImageHandler struct {
	imageService *service.ImageService
}

func NewProcessImageHandler(imageService *service.ImageService) *ProcessImageHandler {
	return &ProcessImageHandler{imageService: imageService}
}

func (h *ProcessImageHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload types.ProcessBookImagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.imageService.ProcessImage(ctx, payload.ImageID); err != nil {
		logger.Error("image processing failed", err)
		return fmt.Errorf("process image %s: %w", payload.ImageID, err)
	}

	logger.Info("book image processed", map[string]interface{}{
		"image_id": payload.ImageID,
	})
	return nil
}
