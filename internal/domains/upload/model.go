package upload

import (
	"errors"
	"time"
)

// UploadState is the lifecycle state of a staged image. Cancelled images
// are removed from the session entirely rather than kept in a terminal
// state.
type UploadState string

const (
	StatePending   UploadState = "pending"
	StateUploading UploadState = "uploading"
	StateUploaded  UploadState = "uploaded"
	StateFailed    UploadState = "failed"
)

// StagedImage tracks one file through the temp-storage staging flow. All
// mutation happens under the owning session's lock; callers only ever see
// copies.
type StagedImage struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`

	IsCover bool   `json:"is_cover"`
	AltText string `json:"alt_text"`

	State           UploadState `json:"state"`
	ProgressPercent int         `json:"progress_percent"`
	RetryCount      int         `json:"retry_count"`
	RemoteTempPath  string      `json:"remote_temp_path,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FileInput is one user-selected file handed to AcceptFiles.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
	AltText     string
}

// ValidationIssue reports a file rejected before any network call.
type ValidationIssue struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

var (
	ErrSessionClosed   = errors.New("upload session is closed")
	ErrSessionNotFound = errors.New("upload session not found")
	ErrImageNotFound   = errors.New("staged image not found")
)
