package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"physlib-backend/internal/config"
	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/pkg/cache"
	"physlib-backend/pkg/logger"
)

const sessionActivityKeyPrefix = "upload:session:"

// Registry tracks live upload sessions by id. Sessions are in-process
// state; a server restart drops them and the scheduled temp sweep
// collects whatever they staged. Last activity is mirrored to Redis so
// operators can see live sessions across restarts.
type Registry struct {
	cfg       config.UploadConfig
	stage     storage.ObjectStage
	processor *storage.ImageProcessor
	cache     cache.Cache

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(cfg config.UploadConfig, stage storage.ObjectStage, processor *storage.ImageProcessor, cacheClient cache.Cache) *Registry {
	return &Registry{
		cfg:       cfg,
		stage:     stage,
		processor: processor,
		cache:     cacheClient,
		sessions:  map[string]*Session{},
	}
}

// Open creates a new session bound to one book edit.
func (r *Registry) Open(bookID string, hasExistingCover bool) *Session {
	id := uuid.New().String()
	session := NewSession(id, bookID, hasExistingCover, r.cfg, r.stage, r.processor)

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.touchActivityIndex(id, bookID)

	logger.Debug("upload session opened", map[string]interface{}{
		"session_id": id,
		"book_id":    bookID,
	})
	return session
}

func (r *Registry) touchActivityIndex(id, bookID string) {
	if r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.cache.Set(ctx, sessionActivityKeyPrefix+id, bookID, r.cfg.SessionIdleTTL); err != nil {
		logger.Debug("session activity index write failed", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
	}
}

// Get looks up a live session and refreshes its activity index entry.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.touchActivityIndex(id, session.BookID)
	return session, nil
}

// Close tears a session down and forgets it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.Close(ctx)

	if r.cache != nil {
		if err := r.cache.Delete(ctx, sessionActivityKeyPrefix+id); err != nil {
			logger.Debug("session activity index delete failed", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// SweepIdle closes every session without activity for the idle TTL.
// Runs from the scheduler so abandoned edits do not leak temp objects.
func (r *Registry) SweepIdle(ctx context.Context) int {
	cutoff := time.Now().Add(-r.cfg.SessionIdleTTL)

	r.mu.Lock()
	var stale []*Session
	for id, session := range r.sessions {
		if session.LastActivity().Before(cutoff) {
			stale = append(stale, session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, session := range stale {
		session.Close(ctx)
		if r.cache != nil {
			_ = r.cache.Delete(ctx, sessionActivityKeyPrefix+session.ID)
		}
		logger.Info("idle upload session swept", map[string]interface{}{
			"session_id": session.ID,
			"book_id":    session.BookID,
		})
	}
	return len(stale)
}

// CloseAll tears down every live session. Used on shutdown so staged
// temp objects are cleaned rather than left for the sweep.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for id, session := range r.sessions {
		remaining = append(remaining, session)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, session := range remaining {
		session.Close(ctx)
		if r.cache != nil {
			_ = r.cache.Delete(ctx, sessionActivityKeyPrefix+session.ID)
		}
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
