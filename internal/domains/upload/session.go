package upload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"physlib-backend/internal/config"
	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/internal/shared/utils"
	"physlib-backend/pkg/logger"
)

const (
	tempPrefix          = "temp/"
	maxBaseNameLen      = 20
	progressTick        = 200 * time.Millisecond
	progressStep        = 10
	progressCeiling     = 90
	tokenAlphabet       = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength         = 6
)

// Session is the upload orchestrator for one book-edit session. It stages
// user-selected files to temporary object storage with retry, and exposes
// the resulting ready set to the save step.
//
// Every state transition of a staged image is serialized behind mu; the
// per-image upload tasks run as independent goroutines with no ordering
// between them. Cancellation contexts live in a side table keyed by image
// id rather than inside the StagedImage record.
type Session struct {
	ID     string
	BookID string

	cfg       config.UploadConfig
	stage     storage.ObjectStage
	processor *storage.ImageProcessor

	mu           sync.Mutex
	images       map[string]*StagedImage
	order        []string
	cancels      map[string]context.CancelFunc
	tempPaths    map[string]string // image id -> staged temp path, pending relocation
	hasCover     bool              // covers both staged and pre-existing images
	lastActivity time.Time
	closed       bool

	inflight sync.WaitGroup

	// sleep is the backoff wait, injectable so tests run without delay.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSession creates an orchestrator for one edit session.
// hasExistingCover must be true when the book already has a persisted
// cover image, so newly staged files do not steal the cover mark.
func NewSession(id, bookID string, hasExistingCover bool, cfg config.UploadConfig, stage storage.ObjectStage, processor *storage.ImageProcessor) *Session {
	return &Session{
		ID:           id,
		BookID:       bookID,
		cfg:          cfg,
		stage:        stage,
		processor:    processor,
		images:       map[string]*StagedImage{},
		cancels:      map[string]context.CancelFunc{},
		tempPaths:    map[string]string{},
		hasCover:     hasExistingCover,
		lastActivity: time.Now(),
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomToken(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
	}
	return string(b)
}

// AcceptFiles validates each file pre-flight (MIME allowlist and size cap,
// applied uniformly) and starts an independent staged upload for every
// accepted one. The first accepted image becomes the cover when no cover
// exists yet. Returns the accepted image ids and one issue per rejected
// file.
func (s *Session) AcceptFiles(files []FileInput) ([]string, []ValidationIssue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		issues := make([]ValidationIssue, len(files))
		for i, f := range files {
			issues[i] = ValidationIssue{FileName: f.Name, Reason: "upload session is closed"}
		}
		return nil, issues
	}
	s.lastActivity = time.Now()

	var accepted []string
	var rejected []ValidationIssue

	for i, f := range files {
		if err := s.processor.ValidateMIME(f.ContentType); err != nil {
			rejected = append(rejected, ValidationIssue{FileName: f.Name, Reason: err.Error()})
			continue
		}
		if int64(len(f.Data)) > s.cfg.MaxFileSizeBytes {
			rejected = append(rejected, ValidationIssue{
				FileName: f.Name,
				Reason:   fmt.Sprintf("file exceeds %dMB", s.cfg.MaxFileSizeBytes/(1024*1024)),
			})
			continue
		}

		img := &StagedImage{
			ID:        fmt.Sprintf("upload_%d_%d_%s", time.Now().UnixMilli(), i, randomToken(tokenLength)),
			FileName:  f.Name,
			Size:      int64(len(f.Data)),
			MIMEType:  f.ContentType,
			AltText:   f.AltText,
			State:     StatePending,
			CreatedAt: time.Now(),
		}
		if !s.hasCover {
			img.IsCover = true
			s.hasCover = true
		}

		s.images[img.ID] = img
		s.order = append(s.order, img.ID)
		accepted = append(accepted, img.ID)

		s.startUploadLocked(img.ID, f.Data)
	}

	return accepted, rejected
}

// startUploadLocked transitions the image to Uploading and launches the
// upload task. Caller holds mu.
func (s *Session) startUploadLocked(id string, data []byte) {
	img := s.images[id]
	img.State = StateUploading

	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[id] = cancel

	s.inflight.Add(1)
	go s.uploadWithRetry(ctx, id, img.FileName, img.MIMEType, data)
}

// uploadWithRetry stages one file to temp storage. The temp path is
// derived once and reused across attempts so a retry after a lost
// acknowledgement can detect the earlier success instead of writing a
// duplicate. Linear backoff: base delay times the failed attempt number.
func (s *Session) uploadWithRetry(ctx context.Context, id, fileName, contentType string, data []byte) {
	defer s.inflight.Done()

	tempName := fmt.Sprintf("temp_%s_%d_%s_%s.%s",
		s.BookID,
		time.Now().UnixMilli(),
		randomToken(tokenLength),
		utils.SanitizeBaseName(fileName, maxBaseNameLen),
		utils.FileExt(fileName),
	)
	tempPath := tempPrefix + tempName

	stopProgress := s.startProgressTicker(ctx, id)
	defer stopProgress()

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return
		}

		if attempt > 0 {
			s.setRetryCount(id, attempt)

			// The previous attempt may have landed even though we never
			// saw the response; probe before re-uploading.
			if s.tempObjectExists(ctx, tempName) {
				s.completeUpload(id, tempPath)
				return
			}
		}

		lastErr = s.stage.Upload(ctx, tempPath, data, contentType)
		if lastErr == nil {
			s.completeUpload(id, tempPath)
			return
		}
		if ctx.Err() != nil {
			return
		}

		logger.Warn("staged upload attempt failed", map[string]interface{}{
			"session_id": s.ID,
			"image_id":   id,
			"attempt":    attempt + 1,
			"error":      lastErr.Error(),
		})

		if attempt < s.cfg.MaxRetries {
			delay := s.cfg.RetryBaseDelay * time.Duration(attempt+1)
			if err := s.sleep(ctx, delay); err != nil {
				return
			}
		}
	}

	s.failUpload(id, fmt.Sprintf("upload failed after %d attempts: %v", s.cfg.MaxRetries+1, lastErr))
}

// tempObjectExists probes temp storage for the derived file name.
func (s *Session) tempObjectExists(ctx context.Context, tempName string) bool {
	entries, err := s.stage.List(ctx, tempPrefix, tempName)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// startProgressTicker advances the advisory progress percentage toward 90
// while the upload is in flight. The value is a UX estimate, not real
// byte-level progress.
func (s *Session) startProgressTicker(ctx context.Context, id string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if img, ok := s.images[id]; ok && img.State == StateUploading && img.ProgressPercent < progressCeiling {
					img.ProgressPercent += progressStep
					if img.ProgressPercent > progressCeiling {
						img.ProgressPercent = progressCeiling
					}
				}
				s.mu.Unlock()
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func (s *Session) setRetryCount(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img, ok := s.images[id]; ok {
		img.RetryCount = n
	}
}

func (s *Session) completeUpload(id, tempPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[id]
	if !ok {
		// Removed while the upload was in flight; the teardown sweep
		// collects the orphaned temp object.
		return
	}
	img.State = StateUploaded
	img.ProgressPercent = 100
	img.RemoteTempPath = tempPath
	s.tempPaths[id] = tempPath
	delete(s.cancels, id)
}

func (s *Session) failUpload(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[id]
	if !ok {
		return
	}
	img.State = StateFailed
	img.ProgressPercent = 0
	img.ErrorMessage = message
	delete(s.cancels, id)
}

// CancelUpload cancels an in-flight upload and removes the image from the
// session entirely.
func (s *Session) CancelUpload(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return ErrImageNotFound
	}
	s.lastActivity = time.Now()

	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.removeLocked(id)
	return nil
}

// RemoveImage removes a staged image. In-flight uploads are cancelled
// first; already-staged temp objects get a best-effort delete that is
// logged but never surfaced as a failure.
func (s *Session) RemoveImage(ctx context.Context, id string) error {
	s.mu.Lock()

	img, ok := s.images[id]
	if !ok {
		s.mu.Unlock()
		return ErrImageNotFound
	}
	s.lastActivity = time.Now()

	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}

	tempPath := img.RemoteTempPath
	uploaded := img.State == StateUploaded
	s.removeLocked(id)
	s.mu.Unlock()

	if uploaded && tempPath != "" {
		if err := s.stage.Remove(ctx, []string{tempPath}); err != nil {
			logger.Warn("could not delete staged temp object", map[string]interface{}{
				"session_id": s.ID,
				"path":       tempPath,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// removeLocked drops the image from all tracking tables and, if it was
// the cover, promotes the first remaining staged image. Caller holds mu.
func (s *Session) removeLocked(id string) {
	img := s.images[id]
	wasCover := img != nil && img.IsCover

	delete(s.images, id)
	delete(s.tempPaths, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if wasCover {
		s.hasCover = false
		for _, other := range s.order {
			if next, ok := s.images[other]; ok {
				next.IsCover = true
				s.hasCover = true
				break
			}
		}
	}
}

// SetCover marks one staged image as the cover and unsets every other
// staged image. The returned flag tells the caller to also unset the
// cover on the book's persisted images, since the single-cover invariant
// spans both sets.
func (s *Session) SetCover(id string) (unsetExisting bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return false, ErrImageNotFound
	}
	s.lastActivity = time.Now()

	for otherID, img := range s.images {
		img.IsCover = otherID == id
	}
	s.hasCover = true
	return true, nil
}

// SetAltText updates the alt text on a staged image.
func (s *Session) SetAltText(id, altText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[id]
	if !ok {
		return ErrImageNotFound
	}
	img.AltText = altText
	return nil
}

// Images returns a snapshot of every staged image in acceptance order.
func (s *Session) Images() []StagedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StagedImage, 0, len(s.order))
	for _, id := range s.order {
		if img, ok := s.images[id]; ok {
			out = append(out, *img)
		}
	}
	return out
}

// Uploading reports whether any staged image is still in flight. The
// caller must block save while this is true.
func (s *Session) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range s.images {
		if img.State == StateUploading || img.State == StatePending {
			return true
		}
	}
	return false
}

// Finalize returns a snapshot of the images that are ready to be folded
// into the book save: only those in the Uploaded state. Failed images are
// saved around; callers must not invoke save while Uploading() is true.
func (s *Session) Finalize() []StagedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()

	var ready []StagedImage
	for _, id := range s.order {
		if img, ok := s.images[id]; ok && img.State == StateUploaded {
			ready = append(ready, *img)
		}
	}
	return ready
}

// MarkRelocated drops images from the temp-path tracking once the save
// step has moved them to permanent storage, so the teardown sweep does
// not touch them.
func (s *Session) MarkRelocated(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.tempPaths, id)
	}
}

// LastActivity reports when the session was last touched.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Wait blocks until every in-flight upload task has finished. Used by
// Close and by tests that need deterministic state.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close tears the session down: cancels in-flight uploads, waits for
// their tasks, and best-effort deletes every staged temp object not yet
// relocated to permanent storage. Idempotent.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	paths := make([]string, 0, len(s.tempPaths))
	for _, p := range s.tempPaths {
		paths = append(paths, p)
	}
	s.tempPaths = map[string]string{}
	s.mu.Unlock()

	if len(paths) > 0 {
		if err := s.stage.Remove(ctx, paths); err != nil {
			logger.Warn("temp sweep could not delete staged objects", map[string]interface{}{
				"session_id": s.ID,
				"count":      len(paths),
				"error":      err.Error(),
			})
		}
	}
}
