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

// InvitationEmailHandler sends the account-setup invitation mail.
type InvitationEmailHandler struct {
	emailService email.EmailService
}

func NewInvitationEmailHandler(emailService email.EmailService) *InvitationEmailHandler {
	return &InvitationEmailHandler{emailService: emailService}
}

func (h *InvitationEmailHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload types.InvitationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	err := h.emailService.SendInvitationEmail(ctx, email.InvitationData{
		Email:       payload.Email,
		Name:        payload.Name,
		InviterName: payload.InviterName,
		Role:        payload.Role,
		SetupLink:   payload.SetupLink,
	})
	if err != nil {
		return fmt.Errorf("send invitation email to %s: %w", payload.Email, err)
	}

	logger.Info("invitation email sent", map[string]interface{}{
		"user_id": payload.UserID,
	})
	return nil
}
