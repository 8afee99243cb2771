package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/infrastructure/email"
	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/logger"
)

// BorrowDecisionHandler mails the requester after an approve/reject decision.
type BorrowDecisionHandler struct {
	emailService email.EmailService
}

func NewBorrowDecisionHandler(emailService email.EmailService) *BorrowDecisionHandler {
	return &BorrowDecisionHandler{emailService: emailService}
}

func (h *BorrowDecisionHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload types.BorrowDecisionEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	err := h.emailService.SendBorrowDecisionEmail(ctx, email.BorrowDecisionData{
		Email:     payload.Email,
		BookTitle: payload.BookTitle,
		Approved:  payload.Approved,
		DueDate:   payload.DueDate,
	})
	if err != nil {
		return fmt.Errorf("send borrow decision email to %s: %w", payload.Email, err)
	}

	logger.Info("borrow decision email sent", map[string]interface{}{
		"email":    payload.Email,
		"approved": payload.Approved,
	})
	return nil
}
