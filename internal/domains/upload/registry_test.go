package upload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/internal/infrastructure/storagetest"
)

func newTestRegistry(t *testing.T) (*Registry, *storagetest.FakeStage) {
	t.Helper()

	stage := storagetest.NewFakeStage()
	cfg := testUploadConfig()
	processor := storage.NewImageProcessor(cfg.MaxFileSizeBytes)
	return NewRegistry(cfg, stage, processor, nil), stage
}

func TestRegistry_OpenAndGet(t *testing.T) {
	registry, _ := newTestRegistry(t)

	session := registry.Open("book-1", false)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, "book-1", session.BookID)
	assert.Equal(t, 1, registry.Len())

	got, err := registry.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_CloseRemovesSessionAndSweepsTemp(t *testing.T) {
	registry, stage := newTestRegistry(t)

	session := registry.Open("book-1", false)
	session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()
	require.Len(t, stage.Keys("temp/"), 1)

	err := registry.Close(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, stage.Keys("temp/"))

	err = registry.Close(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_SweepIdleClosesStaleSessions(t *testing.T) {
	registry, stage := newTestRegistry(t)

	stale := registry.Open("book-1", false)
	stale.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	stale.Wait()

	fresh := registry.Open("book-2", false)

	// Age the first session past the idle TTL.
	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	swept := registry.SweepIdle(context.Background())
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, registry.Len())
	assert.Empty(t, stage.Keys("temp/"))

	_, err := registry.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = registry.Get(fresh.ID)
	assert.NoError(t, err)
}
