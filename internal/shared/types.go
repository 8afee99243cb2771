package shared

// Asynq queue names.
const (
	QueueDefault = "default"
	QueueEmail   = "email"
	QueueStorage = "storage"
)

// Asynq task types.
const (
	TypeSendInvitationEmail     = "email:invitation"
	TypeSendBorrowDecisionEmail = "email:borrow_decision"
	TypeProcessBookImage        = "book:process_image"
	TypeDeleteBookImages        = "book:delete_images"
	TypeSweepUploadSessions     = "upload:sweep_sessions"
	TypeFlushViewCounts         = "book:flush_view_counts"
)

// InvitationEmailPayload is the task payload for invitation mail.
type InvitationEmailPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	InviterName string `json:"inviter_name"`
	Role        string `json:"role"`
	SetupLink   string `json:"setup_link"`
}

// BorrowDecisionEmailPayload notifies a user of an approve/reject decision.
type BorrowDecisionEmailPayload struct {
	Email     string `json:"email"`
	BookTitle string `json:"book_title"`
	Approved  bool   `json:"approved"`
	DueDate   string `json:"due_date,omitempty"`
}

// ProcessBookImagePayload asks the worker to generate display variants.
type ProcessBookImagePayload struct {
	ImageID string `json:"image_id"`
}

// DeleteBookImagesPayload asks the worker to purge a book's storage prefix.
type DeleteBookImagesPayload struct {
	BookID string `json:"book_id"`
}
