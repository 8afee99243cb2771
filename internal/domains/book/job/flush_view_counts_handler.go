package job

import (
	"context"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/domains/book/service"
	"physlib-backend/pkg/logger"
)

// FlushViewCountsHandler drains the Redis view counters into the book rows.
type FlushViewCountsHandler struct {
	bookService *service.BookService
}

func NewFlushViewCountsHandler(bookService *service.BookService) *FlushViewCountsHandler {
	return &FlushViewCountsHandler{bookService: bookService}
}

func (h *FlushViewCountsHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	flushed, err := h.bookService.FlushViewCounts(ctx)
	if err != nil {
		return err
	}
	if flushed > 0 {
		logger.Info("flushed view counters", map[string]interface{}{
			"books": flushed,
		})
	}
	return nil
}
